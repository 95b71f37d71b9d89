// Package maxhost models the host application collaborators consumed by the
// translation engine: animation time, validity intervals, class identifiers
// and parameter blocks with change notification.
package maxhost

import (
	"math"
	"strconv"
)

// TimeValue is a point in animation time measured in ticks.
type TimeValue int32

const (
	// TicksPerFrame at the default frame rate.
	TicksPerFrame = 160

	TimeNegInfinity TimeValue = math.MinInt32
	TimePosInfinity TimeValue = math.MaxInt32
)

// Frame returns the time at the start of frame f.
func Frame(f int) TimeValue { return TimeValue(f * TicksPerFrame) }

// Interval is a closed range of animation time over which derived state is known
// to be correct. An interval with End < Start is empty.
type Interval struct {
	Start, End TimeValue
}

// Forever returns the interval covering all time.
func Forever() Interval { return Interval{Start: TimeNegInfinity, End: TimePosInfinity} }

// Never returns the empty interval.
func Never() Interval { return Interval{Start: 0, End: -1} }

// Instant returns the interval containing only t.
func Instant(t TimeValue) Interval { return Interval{Start: t, End: t} }

// IsEmpty reports whether the interval contains no time at all.
func (iv Interval) IsEmpty() bool { return iv.End < iv.Start }

// IsForever reports whether the interval covers all time.
func (iv Interval) IsForever() bool {
	return iv.Start == TimeNegInfinity && iv.End == TimePosInfinity
}

// Contains reports whether t lies inside the interval.
func (iv Interval) Contains(t TimeValue) bool {
	return !iv.IsEmpty() && iv.Start <= t && t <= iv.End
}

// Intersect returns the time common to both intervals.
func (iv Interval) Intersect(other Interval) Interval {
	if iv.IsEmpty() || other.IsEmpty() {
		return Never()
	}
	result := Interval{Start: max(iv.Start, other.Start), End: min(iv.End, other.End)}
	if result.IsEmpty() {
		return Never()
	}
	return result
}

func (iv Interval) String() string {
	if iv.IsEmpty() {
		return "[never]"
	}
	b := make([]byte, 0, 32)
	b = append(b, '[')
	b = appendTime(b, iv.Start)
	b = append(b, ',')
	b = appendTime(b, iv.End)
	b = append(b, ']')
	return string(b)
}

func appendTime(b []byte, t TimeValue) []byte {
	switch t {
	case TimeNegInfinity:
		return append(b, "-inf"...)
	case TimePosInfinity:
		return append(b, "+inf"...)
	}
	return strconv.AppendInt(b, int64(t), 10)
}

// ClassID is the two-part type identifier the host assigns to every plugin class.
type ClassID struct {
	A, B uint32
}

// IsZero reports whether c is the zero identifier.
func (c ClassID) IsZero() bool { return c.A == 0 && c.B == 0 }

func (c ClassID) String() string {
	b := make([]byte, 0, 24)
	b = append(b, "(0x"...)
	b = strconv.AppendUint(b, uint64(c.A), 16)
	b = append(b, ", 0x"...)
	b = strconv.AppendUint(b, uint64(c.B), 16)
	b = append(b, ')')
	return string(b)
}

// Cache holds a value derived from host state together with the interval over
// which the value remains correct. The zero Cache is invalid at every time.
type Cache[T any] struct {
	value T
	valid Interval
	set   bool
}

// IsValid reports whether the cached value may be used at time t.
func (c *Cache[T]) IsValid(t TimeValue) bool { return c.set && c.valid.Contains(t) }

// Get returns the cached value regardless of validity.
func (c *Cache[T]) Get() T { return c.value }

// Set stores v as correct over valid.
func (c *Cache[T]) Set(v T, valid Interval) {
	c.value = v
	c.valid = valid
	c.set = true
}

// Validity returns the interval over which the cached value is correct.
func (c *Cache[T]) Validity() Interval {
	if !c.set {
		return Never()
	}
	return c.valid
}

// Invalidate collapses the validity interval so the next IsValid call fails.
func (c *Cache[T]) Invalidate() { c.valid = Never() }
