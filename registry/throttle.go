package registry

type throttleKey struct {
	method string
	what   string
}

// throttle picks which occurrences of a repeated log line are written: the
// first and then every Nth. Counters live for the life of the registry.
// Callers hold the registry lock.
type throttle struct {
	every  uint64
	counts map[throttleKey]uint64
}

func newThrottle(every uint64) *throttle {
	return &throttle{every: every, counts: make(map[throttleKey]uint64)}
}

func (t *throttle) allow(method, what string) (uint64, bool) {
	k := throttleKey{method, what}
	n := t.counts[k] + 1
	t.counts[k] = n
	return n, t.every <= 1 || n%t.every == 1
}
