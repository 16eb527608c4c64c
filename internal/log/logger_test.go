package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_JSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf, Component: ComponentAuth})

	logger.Info("login ok", FieldUserID, int64(7))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentAuth {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentAuth)
	}
	if rec[FieldUserID] != float64(7) {
		t.Errorf("user_id = %v, want 7", rec[FieldUserID])
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestLogger_WritesFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "app.log")
	logger := New(Config{Level: slog.LevelInfo, Output: &buf, File: path})

	logger.Info("to both")

	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("stdout writer missing record: %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	logger := Discard().WithComponent(ComponentCard)
	if logger.Component() != ComponentCard {
		t.Errorf("Component() = %s, want %s", logger.Component(), ComponentCard)
	}
}

func TestMiddleware_FromContext(t *testing.T) {
	logger := Discard().WithComponent(ComponentHTTP)
	var got *Logger

	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != logger {
		t.Errorf("FromContext returned a different logger")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Errorf("expected fallback logger for empty context")
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithUser(3).
		WithExpense(9, 1250, "Food").
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldUserID] != int64(3) || f[FieldExpenseID] != int64(9) || f[FieldAmountCents] != int64(1250) {
		t.Errorf("unexpected fields: %v", f)
	}
	if f[FieldError] != "boom" {
		t.Errorf("error field = %v", f[FieldError])
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length mismatch")
	}
}
