// internal/app/features/profile/routes.go
package profile

import (
	"github.com/go-chi/chi/v5"

	"github.com/hackhub-events/hackhub/internal/app/system/auth"
)

// Routes mounts the profile routes. Typically: r.Mount("/profile", profile.Routes(h, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeProfile)
		pr.Patch("/", h.HandlePatch)
		pr.Get("/logins", h.ServeLogins)
	})

	return r
}
