//go:build !integration

package events

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewPublisher(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("should disable publishing without a url", func(t *testing.T) {
		p, err := NewPublisher("", &logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := p.(NopPublisher); !ok {
			t.Fatalf("expected NopPublisher, got %T", p)
		}
		if err := p.Publish(context.Background(), "voucher.created", map[string]string{"code": "x"}); err != nil {
			t.Errorf("nop publish returned %v", err)
		}
		if err := p.Close(); err != nil {
			t.Errorf("nop close returned %v", err)
		}
	})

	t.Run("should fail fast on an unreachable server", func(t *testing.T) {
		if _, err := NewPublisher("nats://127.0.0.1:1", &logger); err == nil {
			t.Fatal("expected a connection error")
		}
	})
}
