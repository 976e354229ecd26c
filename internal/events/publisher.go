package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mossy-p/flowsync-signaling/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Config holds presence feed settings
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns presence feed defaults; URL is left empty which
// disables the feed.
func DefaultConfig() Config {
	return Config{
		SubjectPrefix: "flowsync",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes presence events on core NATS subjects
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher connects to NATS
func NewNATSPublisher(cfg Config) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("flowsync-signaling"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, prefix: cfg.SubjectPrefix}, nil
}

// Publish sends ev without waiting for delivery. Failures are logged.
func (p *NATSPublisher) Publish(ev models.PresenceEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal presence event")
		return
	}

	subject := Subject(p.prefix, ev)
	if err := p.nc.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("failed to publish presence event")
	}
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}

// Subject builds {prefix}.rooms.{code}.{kind}
func Subject(prefix string, ev models.PresenceEvent) string {
	return fmt.Sprintf("%s.rooms.%s.%s", prefix, ev.RoomCode, ev.Kind)
}

// Nop discards presence events; used when no NATS URL is configured
type Nop struct{}

// Publish does nothing
func (Nop) Publish(models.PresenceEvent) {}
