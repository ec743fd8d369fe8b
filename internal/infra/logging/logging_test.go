//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"wifi-loyalty-portal/internal/config"
)

func TestWith(t *testing.T) {
	t.Run("should attach context fields to log lines", func(t *testing.T) {
		var buf bytes.Buffer
		base := NewWriter(config.LogConfig{Level: "info", Format: "json"}, false, &buf)

		ctx := WithOrigin(WithTraceID(context.Background(), "t-1"), "10.0.0.9")
		With(ctx, base).Info().Msg("hello")

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
		}
		if line["trace_id"] != "t-1" || line["origin"] != "10.0.0.9" {
			t.Errorf("missing context fields: %v", line)
		}
	})

	t.Run("should fall back to info for an unknown level", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWriter(config.LogConfig{Level: "loud", Format: "json"}, false, &buf)
		l.Debug().Msg("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected debug to be filtered, got %q", buf.String())
		}
		l.Info().Msg("shown")
		if buf.Len() == 0 {
			t.Error("expected info line")
		}
	})
}

func TestRedact(t *testing.T) {
	if got := Redact("LR0123456789ABCDEF", false); got != "LR01...EF" {
		t.Errorf("unexpected redaction %q", got)
	}
	if got := Redact("short", false); got != "***" {
		t.Errorf("expected *** for short input, got %q", got)
	}
	if got := Redact("LR0123456789ABCDEF", true); got != "LR0123456789ABCDEF" {
		t.Errorf("dev mode should not redact, got %q", got)
	}
}
