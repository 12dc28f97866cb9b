package timeline

import (
	"errors"
	"fmt"
	"sort"
)

// SortField names a sortable trace table column.
type SortField string

const (
	SortByTimestamp SortField = "timestampMs"
	SortByDuration  SortField = "durationMs"
	SortByOffset    SortField = "offsetMs"
)

// ErrUnknownSortField is returned by ParseSortField for unsupported columns.
var ErrUnknownSortField = errors.New("unknown sort field")

// Column describes one display column of the trace table.
type Column struct {
	Field SortField `json:"field"`
	Label string    `json:"label"`
}

// Columns are the trace table columns in display order.
var Columns = []Column{
	{Field: SortByTimestamp, Label: "Type"},
	{Field: SortByDuration, Label: "Duration"},
}

// ParseSortField validates a sort field name. An empty name selects timestamps.
func ParseSortField(name string) (SortField, error) {
	switch SortField(name) {
	case "":
		return SortByTimestamp, nil
	case SortByTimestamp, SortByDuration, SortByOffset:
		return SortField(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortField, name)
	}
}

// SortRows returns a copy of rows ordered by the given field. Rows that compare
// equal keep their merged order.
func SortRows(rows []Row, by SortField, asc bool) []Row {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)

	key := func(r Row) float64 {
		switch by {
		case SortByDuration:
			return r.DurationMs
		case SortByOffset:
			return float64(r.OffsetMs)
		default:
			return float64(r.TimestampMs)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if asc {
			return key(sorted[i]) < key(sorted[j])
		}
		return key(sorted[i]) > key(sorted[j])
	})

	return sorted
}
