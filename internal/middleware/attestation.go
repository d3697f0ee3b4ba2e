package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-timeclock/internal/shared/response"
)

// AttestationVerifier checks that a request came from a genuine client build.
// The real verifier lives in the attestation backend; this interface is the
// seam it plugs into.
type AttestationVerifier interface {
	Verify(ctx context.Context, token string) error
}

var errAttestationFailed = errors.New("attestation token rejected")

// HMACAttestationVerifier accepts tokens of the form "<device>.<hex hmac>"
// where the mac is HMAC-SHA256(device) under a shared secret. Good enough for
// staging; production wires the vendor SDK behind the same interface.
type HMACAttestationVerifier struct {
	secret []byte
}

func NewHMACAttestationVerifier(secret string) *HMACAttestationVerifier {
	return &HMACAttestationVerifier{secret: []byte(secret)}
}

func (v *HMACAttestationVerifier) Verify(_ context.Context, token string) error {
	dot := -1
	for i := len(token) - 1; i >= 0; i-- {
		if token[i] == '.' {
			dot = i
			break
		}
	}
	if dot <= 0 || dot == len(token)-1 {
		return errAttestationFailed
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(token[:dot]))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(token[dot+1:])) {
		return errAttestationFailed
	}
	return nil
}

// Attestation aborts any request without a valid X-Attestation-Token before
// business logic runs. A nil verifier disables the check (local development).
func Attestation(verifier AttestationVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}

		token := c.GetHeader("X-Attestation-Token")
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Attestation token missing", nil)
			c.Abort()
			return
		}

		if err := verifier.Verify(c.Request.Context(), token); err != nil {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Attestation check failed", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
