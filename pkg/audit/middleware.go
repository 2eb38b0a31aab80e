package audit

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Config controls audit behavior.
type Config struct {
	Enabled       bool
	RetentionDays int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Enabled: true, RetentionDays: 90}
}

// ActorHeader names the caller in the audit trail. Requests without it are
// recorded as anonymous.
const ActorHeader = "X-Fleet-Actor"

// Middleware records one Event per mutating request under /api/, after the
// handler has produced its status code. Write failures are logged and never
// affect the response.
func Middleware(store *Store, cfg Config, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || store == nil || !isAudited(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			actor := strings.TrimSpace(r.Header.Get(ActorHeader))
			if actor == "" {
				actor = "anonymous"
			}
			resourceType, resourceID := resourceFromPath(r.URL.Path)
			requestID := middleware.GetReqID(r.Context())

			event := &Event{
				ID:           uuid.New().String(),
				Actor:        actor,
				RequestID:    requestID,
				Method:       r.Method,
				Path:         r.URL.Path,
				ResourceType: resourceType,
				ResourceID:   resourceID,
				Action:       actionFor(r.Method, r.URL.Path),
				Outcome:      outcomeFromStatus(status),
				StatusCode:   status,
				CreatedAt:    start,
				Metadata: Metadata{
					"duration": time.Since(start).String(),
					"bytes":    ww.BytesWritten(),
				},
			}
			if err := store.Append(event); err != nil {
				logger.Error("failed to write audit event", "error", err, "requestID", requestID)
			}
		})
	}
}

// outcomeFromStatus maps HTTP status codes to audit outcomes.
func outcomeFromStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "success"
	case code == http.StatusConflict:
		return "blocked"
	case code >= 400 && code < 500:
		return "rejected"
	default:
		return "failure"
	}
}
