// Package notify publishes build activity to NATS. Every item goes out as
// it is produced, followed by a run summary, so downstream consumers can
// mirror deploy state without polling the output tree.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mogelbrod/kirby-staticbuilder/internal/builder"
	"github.com/mogelbrod/kirby-staticbuilder/internal/logfields"
)

// Publisher wraps one NATS connection. Items are published to
// <subject>.item and run summaries to <subject>.run.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials the NATS server at url.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("staticbuilder"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	logger.Info("notify connected", logfields.Target(url))
	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// Observer returns a builder observer publishing every item. Publish
// failures are logged and dropped; notification must never fail a build.
func (p *Publisher) Observer() builder.Observer {
	subject := p.subject + ".item"
	return func(item builder.Item) {
		data, err := json.Marshal(item)
		if err != nil {
			p.logger.Warn("notify marshal failed", logfields.Error(err))
			return
		}
		if err := p.conn.Publish(subject, data); err != nil {
			p.logger.Warn("notify publish failed",
				logfields.Item(item.URI),
				logfields.Error(err))
		}
	}
}

// runMessage is the summary payload published after each run.
type runMessage struct {
	RunID      string         `json:"run_id"`
	Mode       string         `json:"mode"`
	Started    time.Time      `json:"started"`
	DurationMS int64          `json:"duration_ms"`
	Items      int            `json:"items"`
	Counts     map[string]int `json:"counts"`
}

func newRunMessage(sum *builder.Summary) runMessage {
	counts := make(map[string]int)
	for status, n := range sum.Counts() {
		counts[string(status)] = n
	}
	return runMessage{
		RunID:      sum.RunID,
		Mode:       string(sum.Mode),
		Started:    sum.Started,
		DurationMS: sum.Duration.Milliseconds(),
		Items:      len(sum.Items),
		Counts:     counts,
	}
}

// PublishRun publishes the run summary and flushes the connection.
func (p *Publisher) PublishRun(sum *builder.Summary) error {
	data, err := json.Marshal(newRunMessage(sum))
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	if err := p.conn.Publish(p.subject+".run", data); err != nil {
		return fmt.Errorf("publish run summary: %w", err)
	}
	return p.conn.Flush()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
