package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Postgres{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id          BIGSERIAL PRIMARY KEY,
			employee_id TEXT NOT NULL,
			role        TEXT NOT NULL,
			content     TEXT NOT NULL,
			turn_count  INTEGER NOT NULL,
			timestamp   TEXT NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_messages_employee ON messages (employee_id, id)`)
	return err
}

// AppendExchange writes the user row then the assistant row in one
// transaction, both stamped with the pre-advance turn.
func (s *Postgres) AppendExchange(ctx context.Context, employeeID string, turn int, userText, assistantText string, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ts := at.Format(TimeFormat)

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (employee_id, role, content, turn_count, timestamp)
		VALUES ($1, $2, $3, $4, $5)`,
		employeeID, RoleUser, userText, turn, ts,
	)
	if err != nil {
		return fmt.Errorf("insert user message: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (employee_id, role, content, turn_count, timestamp)
		VALUES ($1, $2, $3, $4, $5)`,
		employeeID, RoleAssistant, assistantText, turn, ts,
	)
	if err != nil {
		return fmt.Errorf("insert assistant message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Postgres) History(ctx context.Context, employeeID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, employee_id, role, content, turn_count, timestamp
		FROM messages WHERE employee_id = $1 ORDER BY id`,
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *Postgres) All(ctx context.Context) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, employee_id, role, content, turn_count, timestamp
		FROM messages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query all messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *Postgres) LastMatching(ctx context.Context, employeeID, substr string) (*Message, error) {
	var m Message
	err := s.pool.QueryRow(ctx, `
		SELECT id, employee_id, role, content, turn_count, timestamp
		FROM messages
		WHERE employee_id = $1 AND role = $2 AND position($3 in content) > 0
		ORDER BY id DESC LIMIT 1`,
		employeeID, RoleAssistant, substr,
	).Scan(&m.ID, &m.EmployeeID, &m.Role, &m.Content, &m.Turn, &m.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last matching: %w", err)
	}
	return &m, nil
}

func scanMessages(rows pgx.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.EmployeeID, &m.Role, &m.Content, &m.Turn, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return out, nil
}
