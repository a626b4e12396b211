package reg

// stereoSample reads frame i's left/right samples from in, which may be
// mono (one sample per frame, duplicated to both channels) or already
// interleaved stereo (two samples per frame, passed through untouched):
// the same channel-count detection pkg/graph/synthetic.go's trackStripDSP
// uses, needed by any stereo Global node (OUTPUT, VOLUME, PAN) that may be
// wired directly downstream of a mono PerVoice source without an
// intervening track strip.
func stereoSample(in []float32, frames, i int) (left, right float32) {
	if len(in) == 0 || frames == 0 {
		return 0, 0
	}
	inChannels := len(in) / frames
	if inChannels < 1 {
		inChannels = 1
	}
	if inChannels == 2 {
		return in[i*2], in[i*2+1]
	}
	if i < len(in) {
		return in[i], in[i]
	}
	return 0, 0
}

// monoSample reads frame i's downmixed (averaged) sample from in,
// regardless of whether it is mono or stereo, for nodes (the PAN input
// stage) that operate on a single level per frame.
func monoSample(in []float32, frames, i int) float32 {
	left, right := stereoSample(in, frames, i)
	return (left + right) * 0.5
}
