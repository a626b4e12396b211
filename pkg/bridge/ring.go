package bridge

import "sync/atomic"

// ring is a bounded single-producer/single-consumer queue of Commands.
// Push is called only from the UI side, Pop only from the audio callback;
// neither blocks, locks, or allocates once constructed.
type ring struct {
	buf  []Command
	mask uint64
	head atomic.Uint64 // next slot to read (consumer-owned)
	tail atomic.Uint64 // next slot to write (producer-owned)
}

func newRing(capacity int) *ring {
	n := 1
	for n < capacity {
		n <<= 1
	}
	if n < 1 {
		n = 1
	}
	return &ring{buf: make([]Command, n), mask: uint64(n - 1)}
}

func (r *ring) capacity() int { return len(r.buf) }

// push attempts to enqueue cmd, returning false if the ring is full.
func (r *ring) push(cmd Command) bool {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head >= uint64(len(r.buf)) {
		return false
	}
	r.buf[tail&r.mask] = cmd
	r.tail.Store(tail + 1)
	return true
}

// pop attempts to dequeue the next Command, returning false if empty.
func (r *ring) pop() (Command, bool) {
	head := r.head.Load()
	tail := r.tail.Load()
	if head == tail {
		return Command{}, false
	}
	cmd := r.buf[head&r.mask]
	r.head.Store(head + 1)
	return cmd, true
}

// len returns the number of queued commands. Approximate under concurrent
// access but exact at any instant either side calls it alone.
func (r *ring) len() int {
	return int(r.tail.Load() - r.head.Load())
}
