package server_test

import (
	"bytes"
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/gojulius/internal/engine"
	"github.com/example/gojulius/internal/server"
	"github.com/example/gojulius/internal/testutil"
)

// capturingHandler captures all slog records during a test.
type capturingHandler struct {
	records []slog.Record
}

func (c *capturingHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }
func (c *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	c.records = append(c.records, r)
	return nil
}
func (c *capturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return c }
func (c *capturingHandler) WithGroup(name string) slog.Handler      { return c }

func (c *capturingHandler) attrMap(idx int) map[string]any {
	m := make(map[string]any)
	c.records[idx].Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	return m
}

func recognizeRequest(t *testing.T) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", "input.wav")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(testutil.SilenceWAV(16000, 100)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/recognize", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestRecognize_LogsStatusAndFrames(t *testing.T) {
	cap := &capturingHandler{}
	logger := slog.New(cap)

	h := server.NewHandler(
		&stubRecognizer{result: engine.Result{Status: engine.StatusOK, Frames: 42}},
		server.WithLogger(logger),
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, recognizeRequest(t))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	if len(cap.records) == 0 {
		t.Fatal("want at least one log record, got none")
	}

	var found bool
	for i := range cap.records {
		attrs := cap.attrMap(i)
		if status, ok := attrs["status"]; ok {
			found = true
			if status != "OK" {
				t.Errorf("want status=OK, got %v", status)
			}
			if _, ok := attrs["frames"]; !ok {
				t.Error("want frames attribute in log record")
			}
			if _, ok := attrs["duration_ms"]; !ok {
				t.Error("want duration_ms attribute in log record")
			}
		}
	}
	if !found {
		t.Error("no log record contained a 'status' attribute")
	}
}

func TestRecognize_LogsErrorOnFailure(t *testing.T) {
	cap := &capturingHandler{}
	logger := slog.New(cap)

	h := server.NewHandler(
		&stubRecognizer{err: errRecognizeFailed},
		server.WithLogger(logger),
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, recognizeRequest(t))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}

	var foundError bool
	for i := range cap.records {
		attrs := cap.attrMap(i)
		if _, ok := attrs["error"]; ok {
			foundError = true
		}
	}
	if !foundError {
		t.Error("want a log record with an 'error' attribute on recognition failure")
	}
}

func TestSetupLogger_LevelFromString(t *testing.T) {
	cases := []struct {
		level   string
		wantLvl slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo}, // default
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			lvl, err := server.ParseLogLevel(tc.level)
			if err != nil {
				t.Fatalf("ParseLogLevel(%q) error: %v", tc.level, err)
			}
			if lvl != tc.wantLvl {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.level, lvl, tc.wantLvl)
			}
		})
	}
}

func TestSetupLogger_InvalidLevelReturnsError(t *testing.T) {
	_, err := server.ParseLogLevel("verbose")
	if err == nil {
		t.Error("want error for unknown log level")
	}
}
