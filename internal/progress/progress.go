// Package progress models the two progress sources of the pipeline: a
// synthetic ramp for operations whose underlying work reports nothing, and a
// real files-processed tracker fed by a line-oriented output stream.
package progress

import (
	"bufio"
	"io"
)

// Ramp produces a monotonically increasing percentage for operations with no
// real progress signal. It is a heuristic, not a measurement: values climb by
// a fixed step and stall at the cap until the caller reports completion.
type Ramp struct {
	current int
	step    int
	cap     int
}

// NewRamp creates a ramp that advances by step and stalls at cap
func NewRamp(step, cap int) *Ramp {
	if step < 1 {
		step = 1
	}
	if cap < 1 || cap > 99 {
		cap = 95
	}
	return &Ramp{step: step, cap: cap}
}

// Next returns the next percentage value
func (r *Ramp) Next() int {
	r.current += r.step
	if r.current > r.cap {
		r.current = r.cap
	}
	return r.current
}

// Current returns the last value produced
func (r *Ramp) Current() int {
	return r.current
}

// Tracker computes real progress from a files-processed count.
type Tracker struct {
	total     int
	processed int
	last      int
}

// NewTracker creates a tracker for the given total file count.
// A zero or negative total reports 100 immediately to avoid dividing by zero.
func NewTracker(total int) *Tracker {
	return &Tracker{total: total, last: -1}
}

// Advance records one processed file and returns the current percentage and
// whether it changed since the previous emission.
func (t *Tracker) Advance() (int, bool) {
	t.processed++
	percent := t.Percent()
	changed := percent != t.last
	if changed {
		t.last = percent
	}
	return percent, changed
}

// Percent returns the current percentage, capped at 100
func (t *Tracker) Percent() int {
	if t.total <= 0 {
		return 100
	}
	percent := t.processed * 100 / t.total
	if percent > 100 {
		percent = 100
	}
	return percent
}

// ObserveLines consumes a line-oriented stream, advancing the tracker once
// per line and emitting the percentage whenever it changes. The read blocks
// until a line arrives or the stream closes.
func ObserveLines(r io.Reader, tracker *Tracker, emit func(percent int)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if percent, changed := tracker.Advance(); changed {
			emit(percent)
		}
	}
	return scanner.Err()
}
