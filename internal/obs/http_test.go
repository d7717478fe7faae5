package obs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextMiddleware_GeneratesRequestID(t *testing.T) {
	var seen Correlation
	handler := RequestContextMiddleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/page1.html", nil)
	req.RemoteAddr = "192.0.2.10:54321"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, strings.HasPrefix(seen.RequestID, "req-"))
	assert.Equal(t, seen.RequestID, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "192.0.2.10", seen.ClientIP)
}

func TestRequestContextMiddleware_UsesTraceparent(t *testing.T) {
	var seen Correlation
	handler := RequestContextMiddleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4BF92F3577B34DA6A3CE929D0E0E4736-00f067aa0ba902b7-01")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", seen.TraceID)
	assert.Equal(t, seen.TraceID, seen.RequestID)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:999"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "10.1.2.3", ClientIP(req, false))
	assert.Equal(t, "10.0.0.1", ClientIP(req, true))

	req.Header.Add("X-Forwarded-For", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", ClientIP(req, true))

	req.Header.Set("X-Forwarded-For", "203.0.113.7,")
	assert.Equal(t, "10.1.2.3", ClientIP(req, true))

	req.RemoteAddr = "not-an-addr"
	assert.Equal(t, "not-an-addr", ClientIP(req, false))
}

func TestExtractTraceID_RejectsMalformed(t *testing.T) {
	for _, tp := range []string{
		"",
		"00-abc-01",
		"00-00000000000000000000000000000000-00f067aa0ba902b7-01",
		"00-zzf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	} {
		assert.Empty(t, extractTraceID(tp), "traceparent %q", tp)
	}
}

func TestAccessLogMiddleware_LogsStatus(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()
	SetLevel(slog.LevelDebug)
	defer SetLevel(slog.LevelInfo)

	handler := RequestContextMiddleware(false)(AccessLogMiddleware("web", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var event map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &event))
	assert.Equal(t, "http_access", event["msg"])
	assert.Equal(t, "web", event["pkg"])
	assert.Equal(t, float64(http.StatusTeapot), event["status"])
	assert.Equal(t, float64(len("short and stout")), event["resp_bytes"])
	assert.NotEmpty(t, event["request_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}
