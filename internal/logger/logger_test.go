package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("ingest finished")

	output := buf.String()
	if output == "" {
		t.Fatal("Expected log output, got empty string")
	}
	if !strings.Contains(output, "ingest finished") {
		t.Errorf("Expected output to contain 'ingest finished', got: %s", output)
	}
}

func TestWithLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithLevel(NewWithWriter(buf), "warn")

	log.Info().Msg("hidden")
	log.Warn().Msg("visible")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info message should be filtered at warn level, got: %s", output)
	}
	if !strings.Contains(output, "visible") {
		t.Errorf("warn message missing, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	ctx := WithContext(context.Background(), New())

	if ctx.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)

	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"batch_id": "b-1",
		"received": 12,
	})

	log.Info().Msg("batch stored")

	output := buf.String()
	if !strings.Contains(output, `"batch_id":"b-1"`) {
		t.Errorf("Expected batch_id field, got: %s", output)
	}
	if !strings.Contains(output, `"received":12`) {
		t.Errorf("Expected received field, got: %s", output)
	}
}
