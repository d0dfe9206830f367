package transcript

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store for tests and local development. A single
// mutex serialises the append path; reads return copies.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	rows   []Message
}

func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

func (s *Memory) AppendExchange(_ context.Context, employeeID string, turn int, userText, assistantText string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := at.Format(TimeFormat)
	for _, pair := range []struct {
		role, content string
	}{
		{RoleUser, userText},
		{RoleAssistant, assistantText},
	} {
		s.rows = append(s.rows, Message{
			ID:         s.nextID,
			EmployeeID: employeeID,
			Role:       pair.role,
			Content:    pair.content,
			Turn:       turn,
			CreatedAt:  ts,
		})
		s.nextID++
	}
	return nil
}

func (s *Memory) History(_ context.Context, employeeID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Message
	for _, m := range s.rows {
		if m.EmployeeID == employeeID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Memory) All(_ context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *Memory) LastMatching(_ context.Context, employeeID, substr string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.rows) - 1; i >= 0; i-- {
		m := s.rows[i]
		if m.EmployeeID == employeeID && m.Role == RoleAssistant && strings.Contains(m.Content, substr) {
			return &m, nil
		}
	}
	return nil, nil
}
