package tempo

import (
	"strconv"

	"replaytrace/internal/timeline"
)

// SearchResponse is the body returned by Tempo's /api/search endpoint.
type SearchResponse struct {
	Traces []TraceSummary `json:"traces"`
}

// TraceSummary is one search hit. Tempo encodes the start time as a string of nanoseconds.
type TraceSummary struct {
	TraceID           string `json:"traceID"`
	RootServiceName   string `json:"rootServiceName"`
	RootTraceName     string `json:"rootTraceName"`
	StartTimeUnixNano string `json:"startTimeUnixNano"`
	DurationMs        int64  `json:"durationMs"`
}

// StartNanos parses StartTimeUnixNano. Unparseable values yield zero.
func (t TraceSummary) StartNanos() int64 {
	n, err := strconv.ParseInt(t.StartTimeUnixNano, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Event converts the summary into a trace table event.
func (t TraceSummary) Event() timeline.Event {
	nanos := t.StartNanos()
	return timeline.Event{
		TraceID:        t.TraceID,
		Transaction:    t.RootTraceName,
		Project:        t.RootServiceName,
		StartTimestamp: float64(nanos/1e9) + float64(nanos%1e9)/1e9,
		DurationMs:     float64(t.DurationMs),
	}
}
