package rbac

const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleWorker  = "WORKER"
)
