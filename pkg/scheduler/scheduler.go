// Package scheduler converts beat-positioned musical events into the
// sample-accurate event stream the graph runtime consumes for one block.
// It holds no state of its own: tempo and sample rate are supplied by the
// caller once per block (spec §4.3: "bpm is read once per block").
package scheduler

import (
	"math"
	"sort"

	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// SamplesPerBeat converts a tempo to samples-per-beat at sampleRate.
func SamplesPerBeat(bpm, sampleRate float64) float64 {
	return 60.0 / bpm * sampleRate
}

// BlockEndBeat returns the beat position blockFrames samples after
// blockStartBeat at the given samplesPerBeat.
func BlockEndBeat(blockStartBeat float64, blockFrames int, samplesPerBeat float64) float64 {
	return blockStartBeat + float64(blockFrames)/samplesPerBeat
}

// AdvanceBeatPosition returns the next beat_position after rendering
// blockFrames samples, or beatPosition unchanged if the transport isn't
// playing (spec §4.3: "drives beat_position forward only while
// transport.playing").
func AdvanceBeatPosition(beatPosition float64, playing bool, blockFrames int, samplesPerBeat float64) float64 {
	if !playing {
		return beatPosition
	}
	return beatPosition + float64(blockFrames)/samplesPerBeat
}

// ClipEvent is one musical occurrence at an absolute beat position,
// produced by package clip from the arrangement's clip/timeline state.
// It names the RuntimeNode id it targets directly (the track's
// target_node, or a player node for audio regions) rather than a voice,
// leaving voice assignment to the caller (see pkg/voice.Allocator).
type ClipEvent struct {
	Beat   float64
	Target id.NodeID
	Kind   node.EventKind

	Note     uint8
	Velocity float32

	AudioID         uint32
	SourceOffsetSec float64
	Gain            float32

	// Seq is the order events were appended in, used as the final,
	// deterministic tie-break for events landing on the same sample
	// offset (spec §5: "ties resolved by event enqueue order").
	Seq int
}

// ScheduledEvent is a ClipEvent resolved to a sample offset within the
// current block.
type ScheduledEvent struct {
	ClipEvent
	SampleOffset int
}

// Materialize converts events (beat-tagged, from package clip, plus any
// live/injected events already expressed as ClipEvents at the current
// block's start beat) into sample-accurate offsets within the block and
// returns them sorted by sample offset, stably tie-broken by Seq (spec
// §4.3: "beat → sample_offset_in_block = round((event_beat −
// block_start_beat) × samples_per_beat)").
func Materialize(events []ClipEvent, blockStartBeat, samplesPerBeat float64) []ScheduledEvent {
	out := make([]ScheduledEvent, len(events))
	for i, e := range events {
		offset := int(math.Round((e.Beat - blockStartBeat) * samplesPerBeat))
		if offset < 0 {
			offset = 0
		}
		out[i] = ScheduledEvent{ClipEvent: e, SampleOffset: offset}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SampleOffset != out[j].SampleOffset {
			return out[i].SampleOffset < out[j].SampleOffset
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}
