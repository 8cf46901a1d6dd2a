package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerIncludesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("loaded manifest", String(FieldComponent, "album"), String(FieldGameID, "1234"))

	out := buf.String()
	if !strings.Contains(out, "[album]") {
		t.Fatalf("expected component prefix in output, got %q", out)
	}
	if !strings.Contains(out, "game_id=1234") {
		t.Fatalf("expected game_id attr in output, got %q", out)
	}
	if !strings.Contains(out, "loaded manifest") {
		t.Fatalf("expected message in output, got %q", out)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected info record to be suppressed, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn record, got %q", buf.String())
	}
}

func TestWithContextAddsGameAndSlide(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	ctx := WithSlideID(WithGameID(context.Background(), "g-77"), "s-3")
	WithContext(ctx, logger).Info("transcoding")

	out := buf.String()
	if !strings.Contains(out, "game_id=g-77") || !strings.Contains(out, "slide_id=s-3") {
		t.Fatalf("expected context fields in output, got %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
