// internal/app/features/submissions/routes.go
package submissions

import (
	"github.com/go-chi/chi/v5"

	"github.com/hackhub-events/hackhub/internal/app/system/auth"
	"github.com/hackhub-events/hackhub/internal/domain/models"
)

// Routes mounts the submission routes. Typically:
// r.Mount("/submissions", submissions.Routes(h, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/mine", h.ServeMine)
		pr.Put("/mine", h.HandleSave)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(sm.RequireSignedIn)
		ar.Use(sm.RequireRole(models.RoleAdmin))

		ar.Get("/", h.ServeList)
	})

	return r
}
