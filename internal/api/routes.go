package api

import "github.com/go-chi/chi/v5"

// SetupRoutes registers the API routes.
func SetupRoutes(router chi.Router, h *Handlers) {
	router.Route("/api/tables", func(r chi.Router) {
		r.Get("/", h.ListTables)
		r.Route("/{table}", func(r chi.Router) {
			r.Get("/", h.DescribeTable)
			r.Get("/rows", h.FetchPage)
			r.Post("/rows", h.InsertRow)
			r.Patch("/rows/{key}", h.EditCell)
			r.Put("/rows/{key}/status", h.SetStatus)
			r.Delete("/rows/{key}", h.DeleteRow)
			r.Get("/search", h.Search)
			r.Post("/delete", h.DeleteRows)
			r.Post("/resync", h.Resync)
		})
	})

	router.Route("/api/backups", func(r chi.Router) {
		r.Get("/", h.ListBackups)
		r.Post("/", h.RunBackup)
	})

	router.Post("/api/query", h.RunQuery)
	router.Get("/api/journal", h.ListJournal)
}
