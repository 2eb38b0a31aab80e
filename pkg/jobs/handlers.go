package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/passssat/fleet-registry/pkg/audit"
	"github.com/passssat/fleet-registry/pkg/seed"
)

// maxDocumentBytes bounds a submitted import document.
const maxDocumentBytes = 4 << 20

type submitRequest struct {
	Document       string `json:"document"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// SubmitHandler handles POST /api/v1/imports. The document is checked for
// syntax before it is queued; the registry rules run in the worker.
func SubmitHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if strings.TrimSpace(req.Document) == "" {
			writeError(w, http.StatusBadRequest, "document is required")
			return
		}
		if _, err := seed.Parse([]byte(req.Document)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		requestedBy := strings.TrimSpace(r.Header.Get(audit.ActorHeader))
		if requestedBy == "" {
			requestedBy = "anonymous"
		}
		job := &Import{RequestedBy: requestedBy, Document: req.Document}
		if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
			job.IdempotencyKey = &key
		}

		job, created, err := store.Enqueue(r.Context(), job)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to queue import: %v", err))
			return
		}
		status := http.StatusAccepted
		if !created {
			status = http.StatusOK
		}
		writeJSON(w, status, job)
	}
}

// ListHandler handles GET /api/v1/imports
// Query params: state, requestedBy, pageSize, pageToken
func ListHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ListFilter{State: q.Get("state"), RequestedBy: q.Get("requestedBy")}

		pageSize := 20
		if ps := q.Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}

		jobs, next, total, err := store.List(r.Context(), filter, pageSize, q.Get("pageToken"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list imports: %v", err))
			return
		}
		if jobs == nil {
			jobs = []Import{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"imports":       jobs,
			"nextPageToken": next,
			"totalSize":     total,
		})
	}
}

// GetHandler handles GET /api/v1/imports/{importId}
func GetHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "importId")
		job, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get import: %v", err))
			return
		}
		if job == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("import %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

// CancelHandler handles POST /api/v1/imports/{importId}/cancel
func CancelHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "importId")
		err := store.Cancel(r.Context(), id)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotCancelable):
			writeError(w, http.StatusConflict, err.Error())
		case err != nil:
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to cancel import: %v", err))
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": string(StateCanceled), "id": id})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
