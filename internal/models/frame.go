package models

import "fmt"

// FrameInput is one frame as submitted by a replay SDK. OffsetMs is derived
// from the replay start when omitted.
type FrameInput struct {
	TimestampMs int64  `json:"timestamp_ms"`
	OffsetMs    *int64 `json:"offset_ms,omitempty"`
	Kind        string `json:"kind"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// AppendFramesRequest is the body of POST /api/replays/{replayID}/frames.
type AppendFramesRequest struct {
	Frames []FrameInput `json:"frames"`
}

// Validate rejects empty batches and frames without a kind or timestamp.
func (r *AppendFramesRequest) Validate() error {
	if len(r.Frames) == 0 {
		return fmt.Errorf("no frames in payload")
	}
	for i, f := range r.Frames {
		if f.Kind == "" {
			return fmt.Errorf("frame %d: kind is required", i)
		}
		if f.TimestampMs <= 0 {
			return fmt.Errorf("frame %d: timestamp_ms must be positive", i)
		}
	}
	return nil
}
