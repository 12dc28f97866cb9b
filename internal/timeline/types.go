// Package timeline interleaves replay frames and backend trace events into the
// rows of a replay trace table.
package timeline

import "math"

// Frame is a discrete occurrence recorded in a replay (navigation, click, ...).
type Frame struct {
	TimestampMs int64  `json:"timestamp_ms"`
	OffsetMs    int64  `json:"offset_ms"`
	Kind        string `json:"kind"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// DisplayTitle returns the frame title, falling back to its kind.
func (f Frame) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Kind
}

// Event is a backend trace or transaction that started during a replay.
type Event struct {
	TraceID     string `json:"trace"`
	Transaction string `json:"transaction"`
	Op          string `json:"transaction.op,omitempty"`
	Project     string `json:"project,omitempty"`
	// StartTimestamp is epoch seconds with sub-second precision.
	StartTimestamp float64 `json:"start_timestamp"`
	DurationMs     float64 `json:"transaction.duration"`
}

// StartMs truncates StartTimestamp to whole epoch milliseconds. Frame
// timestamps are whole milliseconds, so StartMs() >= ts exactly when the raw
// start is at or after ts.
func (e Event) StartMs() int64 {
	return int64(math.Floor(e.StartTimestamp * 1000))
}

// Row is one line of the trace table. Exactly one of Frame or Event is set.
type Row struct {
	TimestampMs int64   `json:"timestamp_ms"`
	OffsetMs    int64   `json:"offset_ms"`
	DurationMs  float64 `json:"duration_ms"`
	Frame       *Frame  `json:"replay_frame,omitempty"`
	Event       *Event  `json:"trace,omitempty"`
}

// IsFrame reports whether the row marks a frame boundary.
func (r Row) IsFrame() bool {
	return r.Frame != nil
}

// Title is the text shown in the table's Type column.
func (r Row) Title() string {
	if r.Frame != nil {
		return r.Frame.DisplayTitle()
	}
	return "Trace"
}
