package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/passssat/fleet-registry/pkg/registry"
)

// maxBodyBytes bounds request payloads.
const maxBodyBytes = 1 << 20

// errorBody is the JSON error envelope.
type errorBody struct {
	Error    string           `json:"error"`
	Rule     string           `json:"rule,omitempty"`
	Blockers map[string]int64 `json:"blockers,omitempty"`
	Count    int64            `json:"count,omitempty"`
}

// statusFor maps a registry error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrConflict), errors.Is(err, registry.ErrIntegrity):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeServiceError renders err with the status it maps to. Validation and
// dependency failures carry their rule and blocker counts.
func writeServiceError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error()}
	var (
		ve *registry.ValidationError
		de *registry.DependencyError
	)
	if errors.As(err, &ve) {
		body.Rule = ve.Rule
	}
	if errors.As(err, &de) {
		body.Blockers = de.Blockers
		body.Count = de.Count()
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		body = errorBody{Error: "internal error"}
	}
	writeJSON(w, status, body)
}

// decodeBody reads a JSON payload into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

// queryID parses an optional positive integer query parameter; absent means 0.
func queryID(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return def
}
