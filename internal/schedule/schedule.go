// Package schedule implements the temporal math for recurring job
// executions: enumeration, report-window overlap checks and pairwise
// conflict detection between schedules committed to the same provider.
//
// All timestamps and durations are in milliseconds since the Unix epoch.
package schedule

import (
	"errors"

	"github.com/taskmesh/marketplace/internal/checked"
)

// MaxExecutionsPerJob bounds the number of executions a single schedule
// may describe. Registrations above this bound are rejected.
const MaxExecutionsPerJob uint64 = 64

var (
	// ErrOverflow is returned when a timestamp computation leaves the
	// uint64 range. Callers must propagate it, never treat it as "no
	// overlap".
	ErrOverflow = errors.New("schedule: timestamp overflow")
	// ErrOverlap is returned by Fits when two schedules would double-book
	// a provider.
	ErrOverlap = errors.New("schedule: schedules overlap")
)

// Schedule describes a recurring execution plan. Executions start at
// StartTime and repeat every Interval; each runs for Duration. The last
// execution must complete by EndTime.
type Schedule struct {
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time"`
	Duration  uint64 `json:"duration"`
	Interval  uint64 `json:"interval"`
}

// Interval is a half-open execution window [Start, End).
type Interval struct {
	Start uint64
	End   uint64
}

// ExecutionCount returns the number of executions between StartTime and
// EndTime. A schedule that cannot fit a single full execution yields 0.
func (s Schedule) ExecutionCount() uint64 {
	if s.Interval == 0 || s.EndTime <= s.StartTime {
		return 0
	}
	span := s.EndTime - s.StartTime
	if span < s.Duration {
		return 0
	}
	return (span-s.Duration)/s.Interval + 1
}

// Iter returns a restartable iterator over the execution intervals of the
// schedule, each shifted by startDelay.
func (s Schedule) Iter(startDelay uint64) (*Iterator, error) {
	base, ok := checked.AddU64(s.StartTime, startDelay)
	if !ok {
		return nil, ErrOverflow
	}
	return &Iterator{schedule: s, base: base, count: s.ExecutionCount()}, nil
}

// Iterator lazily enumerates the execution intervals of a schedule in
// ascending order. It is finite and can be restarted with Reset.
type Iterator struct {
	schedule Schedule
	base     uint64
	count    uint64
	next     uint64
}

// Next returns the next execution interval. The second return value is
// false once the sequence is exhausted.
func (it *Iterator) Next() (Interval, bool, error) {
	if it.next >= it.count {
		return Interval{}, false, nil
	}
	offset, ok := checked.MulU64(it.next, it.schedule.Interval)
	if !ok {
		return Interval{}, false, ErrOverflow
	}
	start, ok := checked.AddU64(it.base, offset)
	if !ok {
		return Interval{}, false, ErrOverflow
	}
	end, ok := checked.AddU64(start, it.schedule.Duration)
	if !ok {
		return Interval{}, false, ErrOverflow
	}
	it.next++
	return Interval{Start: start, End: end}, true, nil
}

// Reset rewinds the iterator to the first execution.
func (it *Iterator) Reset() {
	it.next = 0
}

// Overlaps reports whether any execution interval [start, start+Duration)
// of the delayed schedule intersects the inclusive window [lower, upper].
// It is used to check that a report arrives within the agreed schedule.
func (s Schedule) Overlaps(startDelay, lower, upper uint64) (bool, error) {
	count := s.ExecutionCount()
	if count == 0 || s.Duration == 0 || upper < lower {
		return false, nil
	}
	base, ok := checked.AddU64(s.StartTime, startDelay)
	if !ok {
		return false, ErrOverflow
	}
	if upper < base {
		return false, nil
	}

	// Index of the last execution starting at or before lower. Only that
	// execution and its successor can intersect the window.
	var k uint64
	if lower > base {
		k = (lower - base) / s.Interval
	}
	for i := 0; i < 2 && k < count; i++ {
		offset, ok := checked.MulU64(k, s.Interval)
		if !ok {
			return false, ErrOverflow
		}
		start, ok := checked.AddU64(base, offset)
		if !ok {
			return false, ErrOverflow
		}
		if start > upper {
			return false, nil
		}
		end, ok := checked.AddU64(start, s.Duration)
		if !ok {
			return false, ErrOverflow
		}
		if end > lower {
			return true, nil
		}
		k++
	}
	return false, nil
}

// Fits checks whether two delayed schedules can be committed to the same
// provider without double-booking. Disjoint [StartTime, EndTime) periods
// are accepted immediately; otherwise the two sorted execution-interval
// sequences are merged with two pointers and any interval starting before
// the previous one ended signals ErrOverlap.
func Fits(a Schedule, delayA uint64, b Schedule, delayB uint64) error {
	if a.StartTime >= b.EndTime || a.EndTime <= b.StartTime {
		return nil
	}

	itA, err := a.Iter(delayA)
	if err != nil {
		return err
	}
	itB, err := b.Iter(delayB)
	if err != nil {
		return err
	}

	curA, okA, err := itA.Next()
	if err != nil {
		return err
	}
	curB, okB, err := itB.Next()
	if err != nil {
		return err
	}

	var prevEnd uint64
	for okA || okB {
		var cur Interval
		if okA && (!okB || curA.Start <= curB.Start) {
			cur = curA
			curA, okA, err = itA.Next()
		} else {
			cur = curB
			curB, okB, err = itB.Next()
		}
		if err != nil {
			return err
		}
		if cur.Start < prevEnd {
			return ErrOverlap
		}
		prevEnd = cur.End
	}
	return nil
}
