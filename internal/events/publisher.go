// Package events publishes workflow notifications over NATS. The publisher
// is optional: the service runs without it, just with no downstream signals.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectExchangeCompleted is published after both rows of an exchange
	// are durably stored and the session has advanced.
	SubjectExchangeCompleted = "ippo.exchange.completed"

	// SubjectReviewGenerated is published after a review report is produced.
	SubjectReviewGenerated = "ippo.review.generated"
)

// ExchangeCompleted describes one persisted coaching exchange.
type ExchangeCompleted struct {
	SessionID  string `json:"session_id"`
	EmployeeID string `json:"employee_id"`
	Turn       int    `json:"turn"`
	Completed  bool   `json:"completed"`
	Timestamp  string `json:"timestamp"`
}

// ReviewGenerated describes one generated review report.
type ReviewGenerated struct {
	TargetEmployeeID string `json:"target_employee_id"`
	RequestedBy      string `json:"requested_by"`
	Timestamp        string `json:"timestamp"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	p.conn.Close()
}
