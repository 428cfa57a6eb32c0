package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"name", "score", "correct", "correctRate"}

// WriteCSV writes one row per participant in ranking order.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, e := range r.Ranking {
		row := []string{
			e.Name,
			strconv.Itoa(e.Score),
			strconv.Itoa(e.CorrectCount),
			e.CorrectRate.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", e.ParticipantID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
