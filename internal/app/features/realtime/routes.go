// internal/app/features/realtime/routes.go
package realtime

import (
	"net/http"

	"github.com/dalemusser/solarhub/internal/app/system/auth"
	"github.com/dalemusser/solarhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the realtime endpoint. limiter, when set,
// bounds how often one user may (re)connect.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.Use(auth.RequireSignedIn)
	if limiter != nil {
		r.Use(ratelimit.Middleware(limiter, userKey))
	}

	r.Get("/", h.Serve)

	return r
}

func userKey(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ratelimit.ClientIP(r)
}
