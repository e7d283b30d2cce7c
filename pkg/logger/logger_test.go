package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	if Named("test") == nil {
		t.Fatal("named logger is nil")
	}
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(WithWriter(&buf))

	log.Info(context.Background(), "fetched", String("source", "a/b"), Int("attempt", 2), Duration("delay", time.Second))

	out := buf.String()
	for _, want := range []string{"fetched", "attempt=2", "delay=1s", "logger_test.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got %q", want, out)
		}
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	log := New(WithWriter(&buf), WithLevel(level), WithSource(false))

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info message should be filtered at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing: %q", buf.String())
	}
}

func TestLoggerNamedJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(WithWriter(&buf), WithFormat(FormatJSON), WithSource(false)).Named("fetch")

	log.Error(context.Background(), "failed", String("class", "transient"))

	if !strings.Contains(buf.String(), `"fetch":{"class":"transient"}`) {
		t.Errorf("expected grouped JSON attributes, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNop(t *testing.T) {
	Nop().Info(context.Background(), "discarded")
}
