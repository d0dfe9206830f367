package coach

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ippolabs/ippo/internal/directory"
	"github.com/ippolabs/ippo/internal/openai"
)

const (
	FirstTurn = 1
	FinalTurn = 5
)

// Phase is one step of the five-step coaching flow.
type Phase struct {
	Turn      int    `json:"turn"`
	Label     string `json:"label"`
	Objective string `json:"objective"`
}

var phases = [FinalTurn]Phase{
	{1, "共有", "今週の出来事を報告"},
	{2, "深掘りI", "行動や数値を具体化"},
	{3, "深掘りII", "リスクや懸念の検証"},
	{4, "フィードバック", "KPI視点での助言"},
	{5, "次の目標", "来週の目標を確定"},
}

// PhaseFor returns the phase for a turn index. Out-of-range turns clamp to
// the nearest phase.
func PhaseFor(turn int) Phase {
	if turn < FirstTurn {
		turn = FirstTurn
	}
	if turn > FinalTurn {
		turn = FinalTurn
	}
	return phases[turn-1]
}

// Session is one employee's active coaching dialogue. The turn counter lives
// only here; its effect survives as the turn stamped on each stored message.
type Session struct {
	ID       uuid.UUID
	Employee directory.Employee

	mu      sync.Mutex
	turn    int
	history []openai.Message
}

func newSession(e directory.Employee) *Session {
	return &Session{
		ID:       uuid.New(),
		Employee: e,
		turn:     FirstTurn,
		history:  []openai.Message{{Role: "assistant", Content: Greeting}},
	}
}

// Turn returns the current turn index, always in [1,5].
func (s *Session) Turn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}

// Phase returns the phase the session is currently in.
func (s *Session) Phase() Phase {
	return PhaseFor(s.Turn())
}

// Advance moves the session to the next turn. At the final turn it is a
// no-op: the phase is absorbing, further exchanges stay at turn 5.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
}

func (s *Session) advance() {
	if s.turn < FinalTurn {
		s.turn++
	}
}

// History returns a copy of the dialogue so far, the opening greeting
// included.
func (s *Session) History() []openai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]openai.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Sessions tracks the active dialogue per employee. At most one session per
// employee exists; starting a new one replaces the old.
type Sessions struct {
	mu     sync.Mutex
	active map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{active: make(map[string]*Session)}
}

// Start creates a fresh session at turn 1 for the employee.
func (m *Sessions) Start(e directory.Employee) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newSession(e)
	m.active[e.ID] = s
	return s
}

// Get returns the employee's active session, if any.
func (m *Sessions) Get(employeeID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.active[employeeID]
	return s, ok
}

// End discards the employee's active session (logout).
func (m *Sessions) End(employeeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, employeeID)
}
