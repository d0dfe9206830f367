// Package coach drives the five-turn coaching dialogue: it composes the
// phase-specific instruction, invokes the completion service, records both
// sides of the exchange, and advances the turn counter.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ippolabs/ippo/internal/events"
	"github.com/ippolabs/ippo/internal/openai"
	"github.com/ippolabs/ippo/internal/transcript"
)

// ErrEmptyInput is returned when the submitted text is blank. The API
// boundary rejects these before they reach the driver; this is the backstop.
var ErrEmptyInput = errors.New("empty user input")

// Reply is the outcome of one completed exchange.
type Reply struct {
	Text      string `json:"text"`
	Turn      int    `json:"turn"`
	Completed bool   `json:"completed"`
}

type Coach struct {
	llm    *openai.Client
	store  transcript.Store
	events *events.Publisher
	logger *slog.Logger
}

// New builds a dialogue driver. The events publisher may be nil; exchanges
// then complete without downstream notification.
func New(llm *openai.Client, store transcript.Store, pub *events.Publisher, logger *slog.Logger) *Coach {
	return &Coach{llm: llm, store: store, events: pub, logger: logger}
}

// HandleTurn runs one exchange on the session. On completion-service failure
// nothing is written and the turn does not advance: the caller may retry the
// same input. On success the user message and the reply are appended in one
// transaction, both stamped with the pre-advance turn, and only then does
// the session advance.
func (c *Coach) HandleTurn(ctx context.Context, s *Session, kpis []string, text string) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, ErrEmptyInput
	}

	// One in-flight exchange per session.
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := s.turn
	system := systemPrompt(s.Employee.Department, kpis, turn)

	msgs := make([]openai.Message, 0, len(s.history)+1)
	msgs = append(msgs, s.history...)
	msgs = append(msgs, openai.Message{Role: "user", Content: text})

	reply, err := c.llm.Complete(ctx, system, msgs)
	if err != nil {
		return Reply{}, fmt.Errorf("coach completion (turn %d): %w", turn, err)
	}

	if err := c.store.AppendExchange(ctx, s.Employee.ID, turn, text, reply, time.Now()); err != nil {
		return Reply{}, fmt.Errorf("record exchange (turn %d): %w", turn, err)
	}

	s.history = append(s.history,
		openai.Message{Role: "user", Content: text},
		openai.Message{Role: "assistant", Content: reply},
	)
	s.advance()

	completed := turn == FinalTurn && strings.Contains(reply, CompletionMarker)
	if turn == FinalTurn && !completed {
		c.logger.Warn("final-turn reply missing completion marker",
			"employee_id", s.Employee.ID,
			"session_id", s.ID.String(),
		)
	}

	if c.events != nil {
		if err := c.events.Publish(events.SubjectExchangeCompleted, events.ExchangeCompleted{
			SessionID:  s.ID.String(),
			EmployeeID: s.Employee.ID,
			Turn:       turn,
			Completed:  completed,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			c.logger.Warn("failed to publish exchange event", "error", err)
		}
	}

	c.logger.Info("exchange completed",
		"employee_id", s.Employee.ID,
		"turn", turn,
		"next_turn", s.turn,
	)

	return Reply{Text: reply, Turn: turn, Completed: completed}, nil
}
