package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentInsight, Output: &buf})
	logger.WithComponent(ComponentWorker).Info("report built", FieldTxCount, 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentWorker {
		t.Fatalf("component = %v, want %s", entry[FieldComponent], ComponentWorker)
	}
	if entry[FieldTxCount] != float64(3) {
		t.Fatalf("transactions = %v", entry[FieldTxCount])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger %+v", l)
	}
	logger := New(DefaultConfig())
	if got := FromContext(WithContext(context.Background(), logger)); got != logger {
		t.Fatalf("expected stored logger")
	}
}

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf})

	var seen *Logger
	h := middleware.RequestID(Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		LogError(r.Context(), "lookup failed", errors.New("boom"), OpLoad, nil)
		w.WriteHeader(http.StatusTeapot)
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/report?mode=week", nil))

	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("handler did not receive the request logger")
	}
	out := buf.String()
	for _, want := range []string{"HTTP request completed", "status_code=418", "request_id=", "error=boom", "path=/api/report"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
