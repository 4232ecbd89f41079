package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/basketfreq/internal/logging"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "no trusted proxies ignores headers",
			remote:  "203.0.113.9:5000",
			headers: map[string]string{"X-Real-IP": "198.51.100.1"},
			want:    "203.0.113.9:5000",
		},
		{
			name:    "trusted proxy X-Real-IP",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:5000",
			headers: map[string]string{"X-Real-IP": "198.51.100.1"},
			want:    "198.51.100.1",
		},
		{
			name:    "trusted single address with X-Forwarded-For",
			trusted: []string{"127.0.0.1"},
			remote:  "127.0.0.1:5000",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.1"},
			want:    "198.51.100.2",
		},
		{
			name:    "untrusted source keeps address",
			trusted: []string{"10.0.0.0/8"},
			remote:  "192.0.2.50:5000",
			headers: map[string]string{"X-Real-IP": "198.51.100.1"},
			want:    "192.0.2.50:5000",
		},
		{
			name:    "invalid header value ignored",
			trusted: []string{"10.0.0.0/8", "not-a-cidr"},
			remote:  "10.1.2.3:5000",
			headers: map[string]string{"X-Real-IP": "garbage"},
			want:    "10.1.2.3:5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientIP(req))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", ClientIP(req))
}

func TestLogger_RecordsRoutePatternAndStatus(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logging.SetupWriter(&buf, "info", "json")

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Logger)
	r.Get("/api/history/{runID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/history/abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "/api/history/{runID}", entry["route"])
	assert.Equal(t, "/api/history/abc", entry["path"])
	assert.EqualValues(t, http.StatusNotFound, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	_, _ = ww.Write([]byte("ok"))
	ww.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, ww.status)
	assert.Equal(t, http.StatusOK, rec.Code)
}
