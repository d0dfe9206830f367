// Package transcript provides the append-only conversation log. Messages are
// immutable once written; the store exposes no update or delete path.
package transcript

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TimeFormat is the wire format for message timestamps: local time, second
// precision. Preserved exactly from the original data layout.
const TimeFormat = "2006-01-02 15:04:05"

// Message is one side of a coaching exchange.
type Message struct {
	ID         int64  `json:"id"`
	EmployeeID string `json:"employee_id"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	Turn       int    `json:"turn_count"`
	CreatedAt  string `json:"timestamp"`
}

// Store persists role-tagged messages per employee.
type Store interface {
	// AppendExchange writes one completed exchange: the employee's message
	// followed by the assistant's reply, both stamped with the same turn.
	// The two rows are written atomically — either both land or neither.
	AppendExchange(ctx context.Context, employeeID string, turn int, userText, assistantText string, at time.Time) error

	// History returns all messages for one employee in insertion order.
	History(ctx context.Context, employeeID string) ([]Message, error)

	// All returns every stored message in insertion order.
	All(ctx context.Context) ([]Message, error)

	// LastMatching returns the most recent assistant message for the
	// employee whose content contains substr, or nil if none exists.
	LastMatching(ctx context.Context, employeeID, substr string) (*Message, error)
}
