package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zasterix/zasterix/internal/port/cache"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyBody   = 1 << 20 // 1 MB
)

// perRequestHeaders are set by other middleware on every request and are not
// replayed.
var perRequestHeaders = []string{headerRequestID, "X-RateLimit-Remaining", "X-RateLimit-Reset"}

// storedResponse is the cached form of a completed mutation.
type storedResponse struct {
	Status int         `json:"status_code"`
	Header http.Header `json:"headers"`
	Body   []byte      `json:"body"`
}

func (s storedResponse) replay(w http.ResponseWriter) {
	for k, vals := range s.Header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set(headerReplayed, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// Idempotency returns middleware that deduplicates mutating requests carrying
// an Idempotency-Key header. Responses are kept in store for ttl, scoped per
// caller, method and path. Server errors are not cached so the client can
// retry. Store failures degrade to processing the request normally.
func Idempotency(store cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := idempotencyKey(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			if prev, found := lookup(r, store, key); found {
				prev.replay(w)
				return
			}

			capture := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusInternalServerError || capture.overflow {
				return
			}

			header := w.Header().Clone()
			for _, h := range perRequestHeaders {
				header.Del(h)
			}
			payload, err := json.Marshal(storedResponse{Status: capture.status, Header: header, Body: capture.body.Bytes()})
			if err != nil {
				return
			}
			if err := store.Set(ctx, key, payload, ttl); err != nil {
				slog.WarnContext(ctx, "idempotency: store response failed", "error", err)
			}
		})
	}
}

// idempotencyKey builds the store key for r. It reports false for safe
// methods and requests without the header.
func idempotencyKey(r *http.Request) (string, bool) {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "", false
	}
	client := r.Header.Get(headerIdempotencyKey)
	if client == "" {
		return "", false
	}
	return strings.Join([]string{"idem", IdentityFromContext(r.Context()).UserID, r.Method, r.URL.Path, client}, ":"), true
}

func lookup(r *http.Request, store cache.Cache, key string) (storedResponse, bool) {
	var prev storedResponse
	data, found, err := store.Get(r.Context(), key)
	if err != nil {
		slog.WarnContext(r.Context(), "idempotency: lookup failed", "error", err)
		return prev, false
	}
	if !found {
		return prev, false
	}
	if err := json.Unmarshal(data, &prev); err != nil {
		slog.WarnContext(r.Context(), "idempotency: corrupt cache entry", "error", err)
		return prev, false
	}
	return prev, true
}

// capturingWriter tees the response into a buffer until it exceeds
// maxIdempotencyBody.
type capturingWriter struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	overflow bool
}

func (c *capturingWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	if !c.overflow {
		if c.body.Len()+len(b) > maxIdempotencyBody {
			c.overflow = true
			c.body.Reset()
		} else {
			c.body.Write(b)
		}
	}
	return c.ResponseWriter.Write(b)
}
