package timeline

import "sort"

// Merge interleaves events between the frames they started after.
//
// frames must be sorted ascending by TimestampMs. Each frame is followed by the
// events whose start falls in [frame, next frame), ordered by start. Events
// with the same start keep the order they were given in. Events that start
// before the first frame are dropped; Unclaimed returns them. Neither input is
// modified.
func Merge(frames []Frame, events []Event, sessionStartMs int64) []Row {
	if len(frames) == 0 {
		return []Row{}
	}

	buckets := bucketEvents(frames, events)

	rows := make([]Row, 0, len(frames)+len(events))
	for i := range frames {
		frame := frames[i]

		var durationMs float64
		if i+1 < len(frames) {
			durationMs = float64(frames[i+1].TimestampMs - frame.TimestampMs)
		}

		rows = append(rows, Row{
			TimestampMs: frame.TimestampMs,
			OffsetMs:    frame.OffsetMs,
			DurationMs:  durationMs,
			Frame:       &frame,
		})

		for _, idx := range buckets[i] {
			event := events[idx]
			ts := event.StartMs()
			rows = append(rows, Row{
				TimestampMs: ts,
				OffsetMs:    ts - sessionStartMs,
				DurationMs:  event.DurationMs,
				Event:       &event,
			})
		}
	}

	return rows
}

// Unclaimed returns the events Merge drops for lack of a preceding frame.
func Unclaimed(frames []Frame, events []Event) []Event {
	var dropped []Event
	for _, event := range events {
		if frameIndex(frames, event.StartMs()) < 0 {
			dropped = append(dropped, event)
		}
	}
	return dropped
}

// bucketEvents maps each frame index to the indexes of the events it claims,
// stably ordered by start.
func bucketEvents(frames []Frame, events []Event) [][]int {
	buckets := make([][]int, len(frames))
	for idx, event := range events {
		if i := frameIndex(frames, event.StartMs()); i >= 0 {
			buckets[i] = append(buckets[i], idx)
		}
	}
	for _, bucket := range buckets {
		if len(bucket) < 2 {
			continue
		}
		sort.SliceStable(bucket, func(a, b int) bool {
			return events[bucket[a]].StartMs() < events[bucket[b]].StartMs()
		})
	}
	return buckets
}

// frameIndex returns the last frame at or before ms, or -1.
func frameIndex(frames []Frame, ms int64) int {
	return sort.Search(len(frames), func(i int) bool {
		return frames[i].TimestampMs > ms
	}) - 1
}
