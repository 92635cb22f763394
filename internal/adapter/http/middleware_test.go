package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zasterix/zasterix/internal/middleware"
)

// hijackable adds http.Hijacker to a recorder; only delegation is under test.
type hijackable struct {
	*httptest.ResponseRecorder
	called bool
}

func (h *hijackable) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.called = true
	return nil, nil, nil
}

func TestResponseWriterHijack(t *testing.T) {
	inner := &hijackable{ResponseRecorder: httptest.NewRecorder()}
	var w http.ResponseWriter = &responseWriter{ResponseWriter: inner}
	if _, _, err := w.(http.Hijacker).Hijack(); err != nil || !inner.called {
		t.Fatalf("hijack not delegated: err=%v", err)
	}

	w = &responseWriter{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := w.(http.Hijacker).Hijack(); !errors.Is(err, errNoHijack) {
		t.Fatalf("err = %v, want errNoHijack", err)
	}
}

func TestResponseWriterFlush(t *testing.T) {
	inner := httptest.NewRecorder()
	var w http.ResponseWriter = &responseWriter{ResponseWriter: inner}
	w.(http.Flusher).Flush()
	if !inner.Flushed {
		t.Fatal("flush not delegated")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := middleware.IdentityFromHeaders(Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"store"}`))
	})))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", http.NoBody)
	req.Header.Set("X-Organization-ID", "org-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line["level"] != "ERROR" || line["status"] != float64(http.StatusBadGateway) {
		t.Fatalf("line = %v", line)
	}
	if line["bytes"] != float64(len(`{"error":"store"}`)) || line["organization_id"] != "org-7" {
		t.Fatalf("line = %v", line)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		origin      string
		method      string
		wantStatus  int
		credentials string
	}{
		{"preflight", "https://app.zasterix.ch", http.MethodOptions, http.StatusNoContent, "true"},
		{"pass through", "https://app.zasterix.ch", http.MethodGet, http.StatusTeapot, "true"},
		{"wildcard drops credentials", "*", http.MethodGet, http.StatusTeapot, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			})
			rec := httptest.NewRecorder()
			CORS(tt.origin)(next).ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/v1/modules", http.NoBody))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.origin {
				t.Errorf("allow origin = %q", got)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.credentials {
				t.Errorf("allow credentials = %q, want %q", got, tt.credentials)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	for _, h := range securityHeaders {
		if got := rec.Header().Get(h[0]); got != h[1] {
			t.Errorf("%s = %q, want %q", h[0], got, h[1])
		}
	}
}
