package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ListEventsHandler handles GET /api/v1/audit/events
// Query params: actor, resourceType, resourceId, outcome, pageSize, pageToken
func ListEventsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ListFilter{
			Actor:        q.Get("actor"),
			ResourceType: q.Get("resourceType"),
			ResourceID:   q.Get("resourceId"),
			Outcome:      q.Get("outcome"),
		}

		pageSize := 20
		if ps := q.Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}

		events, next, total, err := store.List(filter, pageSize, q.Get("pageToken"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list audit events: %v", err))
			return
		}
		if events == nil {
			events = []Event{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"events":        events,
			"nextPageToken": next,
			"totalSize":     total,
		})
	}
}

// GetEventHandler handles GET /api/v1/audit/events/{eventId}
func GetEventHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "eventId")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing event ID")
			return
		}

		event, err := store.Get(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get audit event: %v", err))
			return
		}
		if event == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("audit event %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, event)
	}
}

// Router creates a chi.Router for the audit API.
func Router(store *Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/events", ListEventsHandler(store))
	r.Get("/events/{eventId}", GetEventHandler(store))
	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
