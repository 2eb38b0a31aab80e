package jobs

import (
	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the import queue API.
func Router(store *Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/", ListHandler(store))
	r.Post("/", SubmitHandler(store))
	r.Get("/{importId}", GetHandler(store))
	r.Post("/{importId}/cancel", CancelHandler(store))
	return r
}
