package quotes

import (
	"github.com/go-chi/chi/v5"

	"github.com/glassline-erp/glassline-erp/internal/auth"
)

// MountRoutes registers quote endpoints. All routes require an
// authenticated session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Get("/quotes", h.List)
		r.Post("/quotes", h.Create)
		r.Get("/quotes/{id}", h.Show)
		r.Get("/quotes/number/{number}", h.ShowByNumber)
		r.Post("/quotes/{id}/edit", h.Update)
		r.Post("/quotes/{id}/items", h.ReplaceItems)
		r.Post("/quotes/{id}/duplicate", h.Duplicate)
		r.Post("/quotes/{id}/status", h.UpdateStatus)
		r.Post("/quotes/{id}/delete", h.Delete)
	})
}
