package reg

import "github.com/hyasynth/hyasynth/pkg/node"

func audioPlayerDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeAudioPlayer, Name: "AUDIO_PLAYER", Polyphony: node.Global,
		ChannelCount: 2, InputPorts: 0, Factory: newAudioPlayerDSP,
	}
}

// audioPlayerDSP plays back sample data from the audio pool (spec's
// optional audio-player capability: start_audio/stop_audio/load_audio,
// clip-driven StartAudio/StopAudio events addressed by node.TargetGlobal so
// a clip's AudioStart always lands here regardless of which voice, if any,
// triggered the clip). Handles are cached by id so a clip can re-trigger
// the same sample repeatedly after loading it once; only one voice plays
// at a time, matching a single audio-track player strip.
type audioPlayerDSP struct {
	handles map[uint32]node.AudioHandle

	playing    bool
	handle     node.AudioHandle
	readFrame  int
	framesLeft int
	gain       float32
}

func newAudioPlayerDSP() node.DSP {
	return &audioPlayerDSP{handles: make(map[uint32]node.AudioHandle)}
}

func (d *audioPlayerDSP) Prepare(float64, int) {}

func (d *audioPlayerDSP) Process(ctx *node.Context, _ [][]float32, out []float32) bool {
	for _, ev := range ctx.Events {
		switch ev.Kind {
		case node.KindAudioStart:
			d.startAudio(ev)
		case node.KindAudioStop:
			if d.playing && d.handle.ID == ev.AudioID {
				d.playing = false
			}
		}
	}

	frames := len(out) / 2
	silent := true
	for i := 0; i < frames; i++ {
		var left, right float32
		if d.playing && d.framesLeft > 0 {
			left, right = d.sampleAt(d.readFrame)
			left *= d.gain
			right *= d.gain
			d.readFrame++
			d.framesLeft--
			if d.framesLeft == 0 || d.readFrame >= len(d.handle.Samples)/maxInt(d.handle.Channels, 1) {
				d.playing = false
			}
		}
		if left != 0 || right != 0 {
			silent = false
		}
		out[i*2] = left
		out[i*2+1] = right
	}
	return silent
}

func (d *audioPlayerDSP) sampleAt(frame int) (left, right float32) {
	ch := d.handle.Channels
	if ch <= 0 {
		ch = 1
	}
	base := frame * ch
	if base >= len(d.handle.Samples) {
		return 0, 0
	}
	if ch == 1 {
		s := d.handle.Samples[base]
		return s, s
	}
	left = d.handle.Samples[base]
	right = d.handle.Samples[base+1]
	return left, right
}

func (d *audioPlayerDSP) startAudio(ev node.Event) {
	handle, ok := d.handles[ev.AudioID]
	if !ok {
		return
	}
	d.StartAudio(ev.AudioID, int(ev.SourceOffsetS*handle.SampleRate), 0, ev.Gain)
}

// StartAudio satisfies node.AudioPlayer. duration == 0 means play to the
// end of the loaded sample data.
func (d *audioPlayerDSP) StartAudio(audioID uint32, startFrame int, duration int, gain float32) {
	handle, ok := d.handles[audioID]
	if !ok {
		return
	}
	totalFrames := len(handle.Samples) / maxInt(handle.Channels, 1)
	if startFrame < 0 || startFrame >= totalFrames {
		return
	}
	remaining := totalFrames - startFrame
	if duration > 0 && duration < remaining {
		remaining = duration
	}
	d.handle = handle
	d.readFrame = startFrame
	d.framesLeft = remaining
	d.gain = gain
	d.playing = true
}

func (d *audioPlayerDSP) StopAudio(audioID uint32) {
	if d.playing && d.handle.ID == audioID {
		d.playing = false
	}
}

func (d *audioPlayerDSP) LoadAudio(handle node.AudioHandle) {
	d.handles[handle.ID] = handle
}

func (d *audioPlayerDSP) SetParam(node.ParamID, float32) {}

func (d *audioPlayerDSP) Reset() {
	d.playing = false
	d.readFrame = 0
	d.framesLeft = 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
