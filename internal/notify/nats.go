package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/plantkeeper/internal/logfields"
)

// NATSConfig configures the optional reminder event stream.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Stream  string `yaml:"stream"`
}

// NATSPublisher publishes reminder events to a JetStream subject so
// out-of-process delivery pipelines (push notifications, chat bots) can
// consume them alongside or instead of direct email.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to NATS and ensures the reminder stream exists.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("reminder event stream is disabled")
	}
	if cfg.Subject == "" {
		cfg.Subject = "plantkeeper.reminders"
	}
	if cfg.Stream == "" {
		cfg.Stream = "PLANTKEEPER_REMINDERS"
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure reminder stream: %w", err)
	}

	slog.Info("NATS reminder publisher initialized",
		"url", cfg.URL,
		"subject", cfg.Subject,
		"stream", cfg.Stream)

	return &NATSPublisher{conn: conn, js: js, subject: cfg.Subject}, nil
}

// Send publishes the reminder as a JSON event.
func (p *NATSPublisher) Send(ctx context.Context, r Reminder) error {
	data, err := json.Marshal(&r)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder event: %w", err)
	}

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish reminder event: %w", err)
	}

	slog.Debug("Published reminder event",
		logfields.PlantID(r.PlantID),
		logfields.PlantName(r.PlantName))
	return nil
}

// Close drains the NATS connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
