// Package reg provides the reference node-type registry Hyasynth ships
// with: a small built-in instrument and effect palette plus the stable
// ABI constants spec §6 requires ("NodeTypeId values and ParamId values
// are part of the ABI ... and must not be renumbered once published").
// Hosts needing custom DSP register their own node.Descriptor directly
// with node.Registry; nothing here is privileged.
package reg

import "github.com/hyasynth/hyasynth/pkg/node"

// Node type ids. These match the numbering already published in the
// original engine's stable ABI (include/hyasynth.h, src/nodes/mod.rs's
// node_types module) wherever a name overlaps, rather than inventing a
// fresh numbering: Oscillators 1-9, Envelopes 10-19, Effects 20-39,
// Filters 40-49, Modulators 50-59, Samplers 60-69, Utility 100+. Gaps
// within each block (e.g. 5-9 in Oscillators, 22 and 26-39 in Effects) are
// published-but-unassigned room for a host's own types or a future
// reference type to land in without colliding with Output.
const (
	TypeSineOsc     node.TypeID = 1
	TypeSawOsc      node.TypeID = 2
	TypeSquareOsc   node.TypeID = 3
	TypeTriangleOsc node.TypeID = 4

	TypeADSREnv node.TypeID = 10

	TypeVolume     node.TypeID = 20
	TypePan        node.TypeID = 21
	TypeDelay      node.TypeID = 23
	TypeReverb     node.TypeID = 24
	TypeDistortion node.TypeID = 25

	TypeFilterLP node.TypeID = 40

	TypeLFO node.TypeID = 50

	TypeAudioPlayer node.TypeID = 60

	TypeOutput node.TypeID = 100
)

// Register adds every reference node type to reg. Safe to call once per
// node.Registry; returns the first registration error, if any (only
// possible on a double-registration of the same Registry).
func Register(reg *node.Registry) error {
	descs := []node.Descriptor{
		sineOscDescriptor(),
		sawOscDescriptor(),
		squareOscDescriptor(),
		triangleOscDescriptor(),
		adsrEnvDescriptor(),
		filterLPDescriptor(),
		delayDescriptor(),
		reverbDescriptor(),
		distortionDescriptor(),
		lfoDescriptor(),
		audioPlayerDescriptor(),
		volumeDescriptor(),
		panDescriptor(),
		outputDescriptor(),
	}
	for _, d := range descs {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}
