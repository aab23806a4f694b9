package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"ERR", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"something", zerolog.InfoLevel},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Fatalf("parseLevel(%q)=%v, want %v", c.in, got, c.want)
		}
	}
}

func TestGetenv(t *testing.T) {
	t.Setenv("SPIMEX_TEST_VAR", "val")
	if v := getenv("SPIMEX_TEST_VAR", "def"); v != "val" {
		t.Fatalf("getenv returned %q, want 'val'", v)
	}
	if v := getenv("SPIMEX_TEST_UNSET", "def"); v != "def" {
		t.Fatalf("getenv returned %q, want 'def'", v)
	}
}

func TestInitAndL(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_PRETTY", "")
	Init()
	if L().GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %v", L().GetLevel())
	}

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	Init()
	if L().GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", L().GetLevel())
	}
}

// L() must lazily initialise an unset logger.
func TestLoggerAccessor_NotNil(t *testing.T) {
	base = zerolog.Logger{}
	lg := L()
	if lg == nil {
		t.Fatalf("logger is nil")
	}
	if lg.GetLevel() == zerolog.NoLevel {
		t.Fatalf("logger level not initialized")
	}
}

func TestCtx_CarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	old := base
	base = newLogger(&buf, zerolog.InfoLevel)
	t.Cleanup(func() { base = old })

	ctx := WithRequestID(context.Background(), "rid-1")
	Ctx(ctx).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	if line["request_id"] != "rid-1" || line["service"] != ServiceName {
		t.Fatalf("unexpected fields: %v", line)
	}
}

func TestCtx_FallsBackToGlobal(t *testing.T) {
	if Ctx(context.Background()) != L() {
		t.Fatalf("expected the global logger for a bare context")
	}
}
