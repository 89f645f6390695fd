package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", NewUnauthenticated("sign in"), http.StatusUnauthorized},
		{"not provisioned", NewUserNotProvisioned("ext_1"), http.StatusForbidden},
		{"no org", NewNoOrganizationContext(), http.StatusForbidden},
		{"pool", NewPoolExhausted(errors.New("timeout")), http.StatusServiceUnavailable},
		{"constraint", NewConstraintViolation("uq", nil), http.StatusConflict},
		{"wrapped", fmt.Errorf("approve: %w", NewForbidden("nope")), http.StatusForbidden},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.err))
		})
	}
}

func TestHasCode_DistinguishesIdentityFailures(t *testing.T) {
	err := fmt.Errorf("resolve: %w", NewUserNotProvisioned("ext_1"))

	assert.True(t, HasCode(err, CodeUserNotProvisioned))
	assert.False(t, HasCode(err, CodeUnauthenticated))
	assert.False(t, IsForbidden(err))
}

func TestAppError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewDatabaseUnavailable(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), CodeDatabaseUnavailable)
}
