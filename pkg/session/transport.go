package session

// Transport holds the musical clock: whether playback is running, tempo,
// and position expressed both in beats and in samples.
type Transport struct {
	Playing       bool
	BPM           float64
	BeatPosition  float64
	SamplePosition uint64
}

// NewTransport returns a stopped Transport at 120 BPM, beat/sample 0.
func NewTransport() *Transport {
	return &Transport{BPM: 120}
}

// Clone returns a copy, used for the engine-side mirror.
func (t *Transport) Clone() *Transport {
	cp := *t
	return &cp
}
