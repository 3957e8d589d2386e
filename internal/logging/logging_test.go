package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func resetDefault(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	prevLevel := level.Level()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		level.Set(prevLevel)
	})
}

func TestInitText(t *testing.T) {
	resetDefault(t)
	var buf bytes.Buffer
	if err := InitWriter(&buf, "info", "text"); err != nil {
		t.Fatal(err)
	}
	slog.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("text output missing message: %q", buf.String())
	}
}

func TestInitJSON(t *testing.T) {
	resetDefault(t)
	var buf bytes.Buffer
	if err := InitWriter(&buf, "debug", "json"); err != nil {
		t.Fatal(err)
	}
	slog.Debug("detail")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "detail" {
		t.Fatalf("msg = %v, want detail", rec["msg"])
	}
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	resetDefault(t)
	if err := InitWriter(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	resetDefault(t)
	if err := InitWriter(&bytes.Buffer{}, "loud", "text"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"  Error  ", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSetLevel(t *testing.T) {
	SetLevel(slog.LevelWarn)
	if level.Level() != slog.LevelWarn {
		t.Errorf("SetLevel(Warn): got %v", level.Level())
	}
	SetLevel(slog.LevelInfo)
}

func TestDynamicHandlerEnabled(t *testing.T) {
	resetDefault(t)
	if err := InitWriter(&bytes.Buffer{}, "warn", "text"); err != nil {
		t.Fatal(err)
	}

	h := &dynamicHandler{component: "test"}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestDynamicHandlerWithAttrs(t *testing.T) {
	h := &dynamicHandler{component: "test"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")})
	dh, ok := h2.(*dynamicHandler)
	if !ok {
		t.Fatal("WithAttrs should return *dynamicHandler")
	}
	if dh.component != "test" || len(dh.attrs) != 1 {
		t.Fatalf("unexpected handler: %+v", dh)
	}
	if len(h.attrs) != 0 {
		t.Fatal("WithAttrs must not mutate the receiver")
	}
	if h.WithGroup("grp") != h {
		t.Error("WithGroup should return same handler")
	}
}

func TestCaptureForTest(t *testing.T) {
	c := CaptureForTest(t)

	slog.Info("hello")
	slog.Warn("warning message")
	slog.Debug("debug detail")

	if n := len(c.Records()); n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}
	if !c.Has(slog.LevelInfo, "hello") {
		t.Error("should have info 'hello'")
	}
	if !c.Has(slog.LevelWarn, "warning") {
		t.Error("should have warn 'warning'")
	}
	if c.Has(slog.LevelError, "hello") {
		t.Error("should not match error level")
	}
	if c.Count(slog.LevelDebug) != 1 {
		t.Errorf("expected 1 debug, got %d", c.Count(slog.LevelDebug))
	}
	if c.Count(slog.LevelError) != 0 {
		t.Errorf("expected 0 error, got %d", c.Count(slog.LevelError))
	}
}

func TestCaptureRestore(t *testing.T) {
	prev := slog.Default()
	c := capture()
	c.Restore()

	if slog.Default() != prev {
		t.Error("default logger not restored")
	}
}

func TestForWithCapture(t *testing.T) {
	c := CaptureForTest(t)

	logger := For("mycomp").With("restore_id", "abc")
	logger.Info("component log")

	if !c.Has(slog.LevelInfo, "component log") {
		t.Error("For() logger should use captured handler")
	}
	if !c.HasAttr("component log", "component") {
		t.Error("record should carry the component attribute")
	}
	if !c.HasAttr("component log", "restore_id") {
		t.Error("record should carry attributes bound with With")
	}
	if c.HasAttr("component log", "missing") {
		t.Error("HasAttr matched an absent attribute")
	}
}
