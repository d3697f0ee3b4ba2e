package rbac

import (
	"github.com/casbin/casbin/v2"
)

// Enforcer answers role/resource/action checks from the static policy files.
// Role management itself lives in the identity system; this service only
// consumes the role claim.
type Enforcer struct {
	e *casbin.Enforcer
}

func NewEnforcer(modelPath, policyPath string) (*Enforcer, error) {
	e, err := casbin.NewEnforcer(modelPath, policyPath)
	if err != nil {
		return nil, err
	}
	return &Enforcer{e: e}, nil
}

func (e *Enforcer) Allowed(role, resource, action string) (bool, error) {
	return e.e.Enforce(role, resource, action)
}
