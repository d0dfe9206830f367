// Package review produces a structured evaluation from an employee's full
// transcript. It is strictly read-only over the transcript store.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ippolabs/ippo/internal/directory"
	"github.com/ippolabs/ippo/internal/events"
	"github.com/ippolabs/ippo/internal/openai"
	"github.com/ippolabs/ippo/internal/transcript"
)

// ErrSelfReview is returned when a caller requests a review of themselves.
var ErrSelfReview = errors.New("cannot review own transcript")

// ErrUnknownEmployee is returned when the target is not in the directory.
var ErrUnknownEmployee = errors.New("unknown employee")

// Report is a derived evaluation; it is never persisted.
type Report struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Department   string `json:"department"`
	Text         string `json:"text,omitempty"`
	NoData       bool   `json:"no_data"`
	GeneratedAt  string `json:"generated_at"`
}

type Reviewer struct {
	llm    *openai.Client
	store  transcript.Store
	dir    *directory.Directory
	events *events.Publisher
	logger *slog.Logger
}

func New(llm *openai.Client, store transcript.Store, dir *directory.Directory, pub *events.Publisher, logger *slog.Logger) *Reviewer {
	return &Reviewer{llm: llm, store: store, dir: dir, events: pub, logger: logger}
}

// Generate builds an assessment of the target's transcript: achievements,
// KPI contribution, development gaps and an S–D tier recommendation. An
// empty transcript yields an explicit no-data report, not an error.
// Completion-service failures surface to the caller.
func (r *Reviewer) Generate(ctx context.Context, callerID, targetID string) (Report, error) {
	if callerID == targetID {
		return Report{}, ErrSelfReview
	}
	target, ok := r.dir.Lookup(targetID)
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownEmployee, targetID)
	}

	history, err := r.store.History(ctx, targetID)
	if err != nil {
		return Report{}, fmt.Errorf("load transcript: %w", err)
	}

	report := Report{
		EmployeeID:   target.ID,
		EmployeeName: target.Name,
		Department:   target.Department,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	if len(history) == 0 {
		report.NoData = true
		return report, nil
	}

	kpiText := strings.Join(r.dir.KPIs(target.Department), "、")
	if kpiText == "" {
		kpiText = "全般的な業務貢献"
	}

	system := fmt.Sprintf(reviewSystemPrompt, kpiText)
	user := fmt.Sprintf(reviewUserPrompt, flatten(history))

	r.logger.Info("generating review",
		"target", targetID,
		"requested_by", callerID,
		"messages", len(history),
	)

	text, err := r.llm.Complete(ctx, system, []openai.Message{{Role: "user", Content: user}})
	if err != nil {
		return Report{}, fmt.Errorf("review completion: %w", err)
	}
	report.Text = text

	if r.events != nil {
		if err := r.events.Publish(events.SubjectReviewGenerated, events.ReviewGenerated{
			TargetEmployeeID: targetID,
			RequestedBy:      callerID,
			Timestamp:        report.GeneratedAt,
		}); err != nil {
			r.logger.Warn("failed to publish review event", "error", err)
		}
	}

	return report, nil
}

// flatten renders the transcript one line per row, chronological order,
// timestamp and role on each line.
func flatten(history []transcript.Message) string {
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = fmt.Sprintf("%s [%s]: %s", m.CreatedAt, m.Role, m.Content)
	}
	return strings.Join(lines, "\n")
}
