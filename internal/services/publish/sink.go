package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/metrics"
)

// ArticleMessage is the JSON body published for each article
type ArticleMessage struct {
	Article   interfaces.ArticleEventPayload `json:"article"`
	Timestamp time.Time                      `json:"timestamp"`
	Source    string                         `json:"source"`
	Version   string                         `json:"version"`
}

// NATSSink publishes article events to a NATS subject
type NATSSink struct {
	conn    *nats.Conn
	subject string
	source  string
	logger  arbor.ILogger
}

// NewNATSSink connects to NATS. Reconnects are unbounded.
func NewNATSSink(config common.NATSConfig, logger arbor.ILogger) (*NATSSink, error) {
	nc, err := nats.Connect(config.URL,
		nats.Name(config.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", config.URL, err)
	}

	logger.Info().
		Str("url", config.URL).
		Str("subject", config.Subject).
		Msg("NATS event sink connected")

	return &NATSSink{
		conn:    nc,
		subject: config.Subject,
		source:  config.Name,
		logger:  logger,
	}, nil
}

// Send publishes one article event
func (s *NATSSink) Send(ctx context.Context, payload interfaces.ArticleEventPayload) error {
	data, err := json.Marshal(ArticleMessage{
		Article:   payload,
		Timestamp: time.Now().UTC(),
		Source:    s.source,
		Version:   common.GetVersion(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal article event: %w", err)
	}

	if err := s.conn.Publish(s.subject, data); err != nil {
		metrics.NatsMessagesPublished.WithLabelValues(s.subject, "error").Inc()
		return fmt.Errorf("failed to publish to %s: %w", s.subject, err)
	}
	metrics.NatsMessagesPublished.WithLabelValues(s.subject, "ok").Inc()

	s.logger.Debug().
		Str("subject", s.subject).
		Str("post_id", payload.PostID).
		Msg("Published article event to NATS")
	return nil
}

// Close drains pending messages and closes the connection
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

// NoopSink discards events; used when NATS is disabled
type NoopSink struct{}

func (NoopSink) Send(ctx context.Context, payload interfaces.ArticleEventPayload) error { return nil }
func (NoopSink) Close() error                                                          { return nil }

// NewSink returns a NATS sink when enabled, otherwise a no-op sink
func NewSink(config common.NATSConfig, logger arbor.ILogger) (interfaces.EventSink, error) {
	if !config.Enabled {
		return NoopSink{}, nil
	}
	return NewNATSSink(config, logger)
}
