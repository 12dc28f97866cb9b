package models

import (
	"time"

	"replaytrace/internal/timeline"
)

// TraceTable is the merged timeline of a replay's frames and backend traces.
type TraceTable struct {
	ReplayID         string            `json:"replay_id"`
	StartTimestampMs int64             `json:"start_timestamp_ms"`
	Columns          []timeline.Column `json:"columns"`
	Rows             []timeline.Row    `json:"rows"`
	FrameCount       int               `json:"frame_count"`
	EventCount       int               `json:"event_count"`
	// UnclaimedEvents counts traces that started before the first frame and
	// therefore have no row.
	UnclaimedEvents int       `json:"unclaimed_events"`
	Degraded        bool      `json:"degraded"`
	Fingerprint     string    `json:"fingerprint"`
	GeneratedAt     time.Time `json:"generated_at"`
}
