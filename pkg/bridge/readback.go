package bridge

import (
	"math"
	"sync/atomic"
)

// Readback is the atomic struct the audio thread publishes once per block
// and the UI thread polls for meters (spec §4.4). Writers use release
// ordering implicitly via atomic.Store; readers may observe a
// non-atomic snapshot across fields, which is acceptable for meters per
// spec §4.4.
type Readback struct {
	samplePosition atomic.Uint64
	beatPosition   atomic.Uint64 // float64 bits
	activeVoices   atomic.Uint32
	peakLeft       atomic.Uint32 // float32 bits
	peakRight      atomic.Uint32 // float32 bits
	running        atomic.Bool
	cpuLoad        atomic.Uint32 // float32 bits, fraction of block budget used
}

// NewReadback returns a zeroed Readback.
func NewReadback() *Readback { return &Readback{} }

// Publish is called once per block from the audio thread.
func (r *Readback) Publish(samplePosition uint64, beatPosition float64, activeVoices int, peakLeft, peakRight, cpuLoad float32, running bool) {
	r.samplePosition.Store(samplePosition)
	r.beatPosition.Store(math.Float64bits(beatPosition))
	r.activeVoices.Store(uint32(activeVoices))
	r.peakLeft.Store(math.Float32bits(peakLeft))
	r.peakRight.Store(math.Float32bits(peakRight))
	r.cpuLoad.Store(math.Float32bits(cpuLoad))
	r.running.Store(running)
}

// Snapshot is a point-in-time copy of Readback for UI-side consumption.
type Snapshot struct {
	SamplePosition uint64
	BeatPosition   float64
	ActiveVoices   int
	PeakLeft       float32
	PeakRight      float32
	CPULoad        float32
	Running        bool
}

// Read returns a Snapshot. Fields are read independently and may be torn
// across a concurrent Publish; that is an accepted tradeoff for meters.
func (r *Readback) Read() Snapshot {
	return Snapshot{
		SamplePosition: r.samplePosition.Load(),
		BeatPosition:   math.Float64frombits(r.beatPosition.Load()),
		ActiveVoices:   int(r.activeVoices.Load()),
		PeakLeft:       math.Float32frombits(r.peakLeft.Load()),
		PeakRight:      math.Float32frombits(r.peakRight.Load()),
		CPULoad:        math.Float32frombits(r.cpuLoad.Load()),
		Running:        r.running.Load(),
	}
}
