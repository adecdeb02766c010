package audit

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// WriteCSV serialises timeline rows as CSV.
func WriteCSV(w io.Writer, rows []TimelineRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"At", "Actor ID", "Actor", "Action", "Entity", "Entity ID", "Meta"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Actor,
			row.Action,
			row.Entity,
			row.EntityID,
			string(row.Meta),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
