package sim

import "swarmops-sim/internal/world"

// History is a bounded ring of world snapshots ordered oldest to
// newest. Entries are the engine's own clones; callers must clone again
// before mutating anything they take out.
type History struct {
	snaps []*world.State
	start int
	count int
}

// NewHistory returns an empty ring holding at most capacity snapshots.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{snaps: make([]*world.State, capacity)}
}

// Cap returns the maximum number of snapshots retained.
func (h *History) Cap() int {
	return len(h.snaps)
}

// Len returns the number of snapshots currently stored.
func (h *History) Len() int {
	return h.count
}

// Push appends a snapshot, evicting the oldest when the ring is full.
func (h *History) Push(s *world.State) {
	if h.count < len(h.snaps) {
		h.snaps[(h.start+h.count)%len(h.snaps)] = s
		h.count++
		return
	}
	h.snaps[h.start] = s
	h.start = (h.start + 1) % len(h.snaps)
}

// At returns the i-th oldest snapshot, or nil when out of range.
func (h *History) At(i int) *world.State {
	if i < 0 || i >= h.count {
		return nil
	}
	return h.snaps[(h.start+i)%len(h.snaps)]
}

// Newest returns the most recent snapshot, or nil when empty.
func (h *History) Newest() *world.State {
	return h.At(h.count - 1)
}

// TruncateTo keeps the n oldest snapshots and drops everything newer.
// Resuming forward from a rewound position discards the un-taken future
// through here.
func (h *History) TruncateTo(n int) {
	if n < 0 {
		n = 0
	}
	if n >= h.count {
		return
	}
	for i := n; i < h.count; i++ {
		h.snaps[(h.start+i)%len(h.snaps)] = nil
	}
	h.count = n
}
