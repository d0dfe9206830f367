// Package export flattens transcripts into tabular text for external
// consumption.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ippolabs/ippo/internal/transcript"
)

var header = []string{"id", "employee_id", "role", "content", "turn_count", "timestamp"}

// CSV writes the given messages as CSV rows. A UTF-8 BOM is emitted first so
// spreadsheet tools pick up the Japanese content correctly.
func CSV(w io.Writer, messages []transcript.Message) error {
	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range messages {
		record := []string{
			strconv.FormatInt(m.ID, 10),
			m.EmployeeID,
			m.Role,
			m.Content,
			strconv.Itoa(m.Turn),
			m.CreatedAt,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
