package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("healthz", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readyz", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/readyz", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("api routes require a role", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/conventions/123", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
