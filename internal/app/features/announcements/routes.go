// internal/app/features/announcements/routes.go
package announcements

import (
	"github.com/go-chi/chi/v5"

	"github.com/hackhub-events/hackhub/internal/app/system/auth"
	"github.com/hackhub-events/hackhub/internal/domain/models"
)

// Routes mounts the announcement routes. Typically:
// r.Mount("/announcements", announcements.Routes(h, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// The active list is public: the dashboard shows it before sign-in.
	r.Get("/", h.ServeActive)

	r.Group(func(ar chi.Router) {
		ar.Use(sm.RequireSignedIn)
		ar.Use(sm.RequireRole(models.RoleAdmin))

		ar.Get("/all", h.ServeAll)
		ar.Post("/", h.HandleCreate)
		ar.Patch("/{id}", h.HandlePatch)
		ar.Delete("/{id}", h.HandleDelete)
	})

	return r
}
