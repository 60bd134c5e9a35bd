package httpserver

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/helixir/convention-service/internal/domain"
	"github.com/helixir/convention-service/internal/observability"
)

// actorRoleHeader carries the role asserted by the authentication gateway
// sitting in front of this service.
const actorRoleHeader = "X-Actor-Role"

// actorRoleMiddleware extracts the acting role from the request header,
// validates it and stores it in the request context.
func actorRoleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get(actorRoleHeader)
		if role == "" {
			writeError(w, http.StatusUnauthorized, "missing actor role")
			return
		}
		if !domain.Role(role).IsValid() {
			writeError(w, http.StatusForbidden, fmt.Sprintf("unknown actor role: %s", role))
			return
		}

		ctx := observability.WithActorRole(r.Context(), role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// correlationIDMiddleware ensures every request has a correlation ID.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = middleware.GetReqID(r.Context())
		}
		if correlationID == "" {
			buf := make([]byte, 8)
			if _, err := rand.Read(buf); err != nil {
				// Fallback to timestamp-based ID if crypto/rand fails.
				correlationID = fmt.Sprintf("%x", time.Now().UnixNano())
			} else {
				correlationID = fmt.Sprintf("%x", buf)
			}
		}

		w.Header().Set("X-Correlation-ID", correlationID)
		ctx := observability.WithRequestID(r.Context(), correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// jsonContentTypeMiddleware sets Content-Type: application/json for all responses.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// actorRoleFromRequest extracts the validated role from the request context.
func actorRoleFromRequest(r *http.Request) domain.Role {
	return domain.Role(observability.ActorRoleFromContext(r.Context()))
}
