package report

import (
	"strings"

	"github.com/Requip-Digital/Inspection-Tool/internal/record"
)

// Entry is one label/value row of a key/value table
type Entry struct {
	Label string
	Value string
}

// Entries converts bound rows to table entries, keeping order
func Entries(b *record.Bound) []Entry {
	if b == nil {
		return nil
	}
	rows := b.Rows()
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{Label: r.Label, Value: r.Value})
	}
	return out
}

// FilterRows drops rows whose value is empty or N/A. Applying it twice
// yields the same result as applying it once.
func FilterRows(rows []Entry) []Entry {
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		v := strings.TrimSpace(r.Value)
		if v == "" || v == record.NotApplicable {
			continue
		}
		out = append(out, r)
	}
	return out
}
