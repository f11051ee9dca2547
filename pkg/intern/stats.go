package intern

import (
	"sync/atomic"
)

// Statistics tracks name cache lookups.
type Statistics struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Hit records a cache hit.
func (s *Statistics) Hit() {
	s.hits.Add(1)
}

// Miss records a cache miss.
func (s *Statistics) Miss() {
	s.misses.Add(1)
}

// Hits returns the total number of cache hits.
func (s *Statistics) Hits() int64 {
	return s.hits.Load()
}

// Misses returns the total number of cache misses.
func (s *Statistics) Misses() int64 {
	return s.misses.Load()
}

// HitRatio returns hits / (hits + misses), 0 when there were no lookups.
func (s *Statistics) HitRatio() float64 {
	hits := s.Hits()
	total := hits + s.Misses()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}
