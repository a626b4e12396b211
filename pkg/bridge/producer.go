package bridge

import "sync/atomic"

// Producer is the UI-side handle for sending Commands into the ring. It
// implements spec §4.4's overflow policy: a full ring drops the newest
// structural command and sets a sticky pending-recompile flag (so the
// next successful drain forces a full rebuild, per §7's recovery policy);
// a full ring dropping a real-time event (NoteOn/NoteOff/SetParam) instead
// logs a backpressure signal to the diagnostic ring; it is never silently
// lost.
type Producer struct {
	r              *ring
	diag           *DiagRing
	pendingRecomp  atomic.Bool
	dropped        atomic.Uint64
}

// Send enqueues cmd, applying the overflow policy on a full ring. It never
// blocks.
func (p *Producer) Send(cmd Command) {
	if p.r.push(cmd) {
		return
	}
	p.dropped.Add(1)
	if cmd.Kind.IsStructural() {
		p.pendingRecomp.Store(true)
		return
	}
	p.diag.Push(DiagEvent{Kind: DiagCommandRingFull, Command: cmd.Kind})
}

// DroppedCount returns the number of commands ever dropped due to ring
// overflow.
func (p *Producer) DroppedCount() uint64 { return p.dropped.Load() }

// PendingRecompile reports whether overflow dropped a structural command,
// meaning the engine must force a recompile on its next successful drain.
func (p *Producer) PendingRecompile() bool { return p.pendingRecomp.Load() }

// ConsumePendingRecompile clears and returns the pending-recompile flag;
// the engine calls this once per block.
func (p *Producer) ConsumePendingRecompile() bool {
	return p.pendingRecomp.Swap(false)
}

// Capacity returns the ring's fixed capacity.
func (p *Producer) Capacity() int { return p.r.capacity() }

// Diag returns the diagnostic ring shared with this channel's audio-side
// Consumer, so the UI side can drain non-fatal runtime errors (spec §7).
func (p *Producer) Diag() *DiagRing { return p.diag }

// Consumer is the audio-side handle for draining Commands.
type Consumer struct {
	r *ring
}

// Drain pops every currently-queued command in FIFO order and calls fn for
// each. fn must not block or allocate.
func (c *Consumer) Drain(fn func(Command)) (count int) {
	for {
		cmd, ok := c.r.pop()
		if !ok {
			return count
		}
		fn(cmd)
		count++
	}
}

// Pending returns the number of commands currently queued.
func (c *Consumer) Pending() int { return c.r.len() }

// NewChannel creates a linked Producer/Consumer pair backed by a ring of
// the given capacity (rounded up to a power of two), and a diagnostic ring
// of diagCapacity.
func NewChannel(capacity, diagCapacity int) (*Producer, *Consumer) {
	r := newRing(capacity)
	diag := NewDiagRing(diagCapacity)
	return &Producer{r: r, diag: diag}, &Consumer{r: r}
}

// NewChannelWithDiag is like NewChannel but lets the caller supply (and
// thus share) an existing DiagRing, e.g. one also used for runtime error
// reporting outside the command path.
func NewChannelWithDiag(capacity int, diag *DiagRing) (*Producer, *Consumer) {
	r := newRing(capacity)
	return &Producer{r: r, diag: diag}, &Consumer{r: r}
}
