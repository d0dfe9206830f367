// Package goal isolates the committed action goal from a completed coaching
// session. Extraction is deliberately offline and deterministic: a regex
// anchored on the goal lead-in, with a sentence-position fallback. No
// completion-service call is involved.
package goal

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ippolabs/ippo/internal/coach"
	"github.com/ippolabs/ippo/internal/transcript"
)

// Placeholder is returned when a completed session exists but no goal
// sentence could be isolated from it.
const Placeholder = "（目標を抽出できませんでした）"

// leadIn captures the goal clause up to the next sentence boundary.
var leadIn = regexp.MustCompile(`目標は、\s*([^。！？!?]+)`)

var sentenceEnd = regexp.MustCompile(`[。！？!?]`)

// Result is the outcome of an extraction. Found is false when the employee
// has no session-completed message at all.
type Result struct {
	Text  string `json:"text"`
	Found bool   `json:"found"`
}

// Extract returns the goal committed in the employee's most recent completed
// session. A missing completion marker is a normal outcome, not an error;
// only store failures propagate.
func Extract(ctx context.Context, store transcript.Store, employeeID string) (Result, error) {
	m, err := store.LastMatching(ctx, employeeID, coach.CompletionMarker)
	if err != nil {
		return Result{}, fmt.Errorf("find completed session: %w", err)
	}
	if m == nil {
		return Result{}, nil
	}
	return Result{Text: isolate(m.Content), Found: true}, nil
}

// isolate applies the lead-in match first, then falls back to the
// second-to-last sentence of the message.
func isolate(content string) string {
	if sub := leadIn.FindStringSubmatch(content); sub != nil {
		goal := strings.TrimSpace(sub[1])
		if goal != "" && !strings.Contains(goal, coach.CompletionMarker) {
			return goal
		}
	}

	var sentences []string
	for _, s := range sentenceEnd.Split(content, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) >= 2 {
		return sentences[len(sentences)-2]
	}
	return Placeholder
}
