// Package timestamp provides the millisecond timestamps and the per-source
// frame clock stamped onto every published envelope.
//
// Timestamps are int64 milliseconds since the Unix epoch (UTC). A value of 0
// means "not set".
package timestamp

import (
	"strconv"
	"sync/atomic"
	"time"
)

// Now returns the current time as Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// ToUnixMs converts a time.Time to Unix milliseconds.
func ToUnixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMs converts Unix milliseconds to time.Time.
// Returns zero time if timestamp is 0.
func FromUnixMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Format converts Unix milliseconds to an RFC3339 string with milliseconds.
// Returns empty string if timestamp is 0.
func Format(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Parse converts an RFC3339 string or a decimal millisecond string to Unix
// milliseconds. Returns 0 for empty or unparseable input.
func Parse(s string) int64 {
	if s == "" {
		return 0
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ToUnixMs(t)
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms
	}
	return 0
}

// Since returns the duration since the given timestamp.
// Returns 0 if timestamp is zero.
func Since(ms int64) time.Duration {
	if ms == 0 {
		return 0
	}
	return time.Since(time.UnixMilli(ms))
}

// Clock stamps frames with a wall-clock time and a sequence number that
// increases by one per Stamp call. A Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Uint64
	now func() time.Time
}

// NewClock returns a clock whose first stamp has sequence 1.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Stamp returns the next sequence number and the current time in milliseconds.
func (c *Clock) Stamp() (seq uint64, ms int64) {
	return c.seq.Add(1), ToUnixMs(c.now())
}

// Last returns the most recently issued sequence number, 0 if none.
func (c *Clock) Last() uint64 {
	return c.seq.Load()
}
