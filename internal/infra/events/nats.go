package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain/ports/adapter"
)

var (
	_ adapter.EventPublisher = (*NATSPublisher)(nil)
	_ adapter.EventPublisher = (*NopPublisher)(nil)
)

type NATSPublisher struct {
	conn *nats.Conn
	log  *zerolog.Logger
}

// NewPublisher connects to NATS, or returns a NopPublisher when url is empty.
func NewPublisher(url string, logger *zerolog.Logger) (adapter.EventPublisher, error) {
	l := logger.With().Str("component", "events").Logger()
	if url == "" {
		l.Info().Msg("nats url not set, domain events are disabled")
		return NopPublisher{}, nil
	}
	conn, err := nats.Connect(url,
		nats.Name("wifi-loyalty-portal"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, log: &l}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	n.log.Debug().Str("subject", subject).Int("bytes", len(payload)).Msg("publishing event")
	return n.conn.Publish(subject, payload)
}

// Close flushes pending messages before closing the connection.
func (n *NATSPublisher) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }
