package cache

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// HeaderCache reports whether a response came from the cache.
const HeaderCache = "X-Cache"

// Middleware serves GET requests from c, keyed by path and query. Only 200
// responses are stored, and only when no purge happened while the handler
// ran. A nil cache disables it.
func Middleware(c *Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := r.URL.RequestURI()
			if resp, ok := c.Get(key); ok {
				if resp.ContentType != "" {
					w.Header().Set("Content-Type", resp.ContentType)
				}
				w.Header().Set(HeaderCache, "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(resp.Body)
				return
			}

			gen := c.Generation()
			w.Header().Set(HeaderCache, "MISS")
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			var body bytes.Buffer
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			if ww.Status() == http.StatusOK {
				c.SetIfCurrent(key, Response{Body: body.Bytes(), ContentType: ww.Header().Get("Content-Type")}, gen)
			}
		})
	}
}

// InvalidateOnWrite purges all of c after every mutating request that did
// not fail.
func InvalidateOnWrite(c *Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if status := ww.Status(); status == 0 || status < http.StatusBadRequest {
				c.Purge()
			}
		})
	}
}
