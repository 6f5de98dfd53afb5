package metrics

import "sync/atomic"

// PipelineCounters tracks message-processing outcomes for the ops endpoint.
type PipelineCounters struct {
	Replied atomic.Int64
	NoMatch atomic.Int64
	Indexed atomic.Int64
	Errors  atomic.Int64
}

// NewPipelineCounters constructs a zeroed counter set.
func NewPipelineCounters() *PipelineCounters {
	return &PipelineCounters{}
}

// CounterSnapshot is a point-in-time copy suitable for JSON responses.
type CounterSnapshot struct {
	Replied int64 `json:"replied"`
	NoMatch int64 `json:"noMatch"`
	Indexed int64 `json:"indexed"`
	Errors  int64 `json:"errors"`
}

// Snapshot reads all counters at once.
func (c *PipelineCounters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Replied: c.Replied.Load(),
		NoMatch: c.NoMatch.Load(),
		Indexed: c.Indexed.Load(),
		Errors:  c.Errors.Load(),
	}
}
