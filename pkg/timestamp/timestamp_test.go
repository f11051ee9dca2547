package timestamp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	testTime   = time.Date(2023, 1, 15, 12, 30, 45, 123000000, time.UTC)
	testTimeMs = int64(1673785845123)
)

func TestNow(t *testing.T) {
	before := time.Now().UnixMilli()
	ts := Now()
	after := time.Now().UnixMilli()

	if ts < before || ts > after {
		t.Errorf("Now() = %d, expected between %d and %d", ts, before, after)
	}
}

func TestConversions(t *testing.T) {
	assert.Equal(t, testTimeMs, ToUnixMs(testTime))
	assert.Equal(t, int64(0), ToUnixMs(time.Time{}))
	assert.True(t, FromUnixMs(testTimeMs).Equal(testTime))
	assert.True(t, FromUnixMs(0).IsZero())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "2023-01-15T12:30:45.123Z", Format(testTimeMs))
	assert.Equal(t, "", Format(0))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{"rfc3339", "2023-01-15T12:30:45Z", 1673785845000},
		{"rfc3339 millis", "2023-01-15T12:30:45.123Z", testTimeMs},
		{"milliseconds", "1673785845123", testTimeMs},
		{"empty", "", 0},
		{"garbage", "yesterday", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.input); got != tt.expected {
				t.Errorf("Parse(%q) = %d, expected %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSince(t *testing.T) {
	assert.Equal(t, time.Duration(0), Since(0))
	assert.GreaterOrEqual(t, Since(Now()-50), 50*time.Millisecond)
}

func TestClock_Sequence(t *testing.T) {
	c := NewClock()
	c.now = func() time.Time { return testTime }

	seq, ms := c.Stamp()
	assert.Equal(t, uint64(1), seq)
	assert.Equal(t, testTimeMs, ms)

	seq, _ = c.Stamp()
	assert.Equal(t, uint64(2), seq)
	assert.Equal(t, uint64(2), c.Last())
}

func TestClock_ConcurrentStampsAreUnique(t *testing.T) {
	c := NewClock()
	const workers, per = 8, 200

	var mu sync.Mutex
	seen := make(map[uint64]bool, workers*per)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range per {
				seq, _ := c.Stamp()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*per)
	assert.Equal(t, uint64(workers*per), c.Last())
}
