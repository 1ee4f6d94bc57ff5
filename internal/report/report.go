// Package report renders one finished batch run as a JSON document and
// publishes it to the configured sinks.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/conveyorhq/conveyor/internal/model"

	"github.com/google/uuid"
)

// Entry is one item of the run in submission order.
type Entry struct {
	Path   string `json:"path"`
	Status string `json:"status"` // "ok" | "error"
	Error  string `json:"error,omitempty"`
}

// Report is the document describing one run.
type Report struct {
	ID        string  `json:"id"`
	Processor string  `json:"processor"`
	Started   string  `json:"started"`  // RFC3339, UTC
	Finished  string  `json:"finished"` // RFC3339, UTC
	Items     []Entry `json:"items"`
	Failed    int     `json:"failed"`
}

// New assembles a Report from the drained outcome list. Entries keep the
// submission order of the items.
func New(processor string, started, finished time.Time, outcomes []model.Outcome) Report {
	// items MUST be initialized, an empty run still reports a list
	entries := make([]Entry, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		e := Entry{Path: string(o.Item), Status: "ok"}
		if o.Err != nil {
			e.Status = "error"
			e.Error = o.Err.Error()
			failed++
		}
		entries = append(entries, e)
	}

	return Report{
		ID:        uuid.New().String(),
		Processor: processor,
		Started:   started.UTC().Format(time.RFC3339),
		Finished:  finished.UTC().Format(time.RFC3339),
		Items:     entries,
		Failed:    failed,
	}
}

// AsJSON writes the indented JSON form of the report to w.
func (r Report) AsJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
