// Command hyasynthdemo is a minimal embedder: it builds a session and
// engine pair exactly the way a host would, wires a SINE_OSC -> OUTPUT
// graph, plays one note through the system's audio output, and exits. It
// exists to give the engine a real-time audio sink outside of tests.
package main

import (
	"encoding/binary"
	"flag"
	"math"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hyasynth/hyasynth/internal/elog"
	"github.com/hyasynth/hyasynth/pkg/bridge"
	"github.com/hyasynth/hyasynth/pkg/engine"
	"github.com/hyasynth/hyasynth/pkg/node"
	"github.com/hyasynth/hyasynth/pkg/reg"
	"github.com/hyasynth/hyasynth/pkg/session"
)

const renderBlockFrames = 256

// engineSource adapts Controller.RenderBlock into the io.Reader oto.Player
// pulls from. Grounded on vsariola-sointu's oto adapter for the player
// lifecycle (create context, create player, Play, Close) but not its byte
// shape: that adapter pushes fixed PCM16 blocks into the older
// hajimehoshi/oto's io.Writer, while ebitengine/oto/v3 replaced that with
// this pull-on-Read model, so Read renders one block on demand and hands
// out float32LE bytes straight from the engine's native output format.
type engineSource struct {
	ctrl *engine.Controller
	buf  []float32
	rem  []byte
}

func newEngineSource(ctrl *engine.Controller) *engineSource {
	return &engineSource{ctrl: ctrl, buf: make([]float32, renderBlockFrames*2)}
}

func (s *engineSource) Read(p []byte) (int, error) {
	if len(s.rem) == 0 {
		s.ctrl.RenderBlock(s.buf, renderBlockFrames)
		s.rem = floatsToLE(s.buf)
	}
	n := copy(p, s.rem)
	s.rem = s.rem[n:]
	return n, nil
}

func floatsToLE(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func main() {
	note := flag.Uint("note", 69, "MIDI note number to play (default A4)")
	freq := flag.Float64("freq", 440, "SINE_OSC frequency in Hz")
	hold := flag.Duration("hold", 2*time.Second, "how long to hold the note before releasing it")
	flag.Parse()

	log := elog.New(os.Stdout, "hyasynthdemo")

	registry := node.NewRegistry()
	if err := reg.Register(registry); err != nil {
		log.Error("register node types: %v", err)
		os.Exit(1)
	}

	cfg := session.DefaultConfig()
	commands, drain := bridge.NewChannel(cfg.CommandRingCapacity, cfg.DiagRingCapacity)
	readback := bridge.NewReadback()

	sess := session.Create("hyasynthdemo", cfg)
	sess.Handle = session.NewSessionHandle(commands, readback)

	ctrl := engine.New(cfg, registry, commands, drain, readback)

	oscID := sess.AddNode(reg.TypeSineOsc, 0, 0)
	outID := sess.AddNode(reg.TypeOutput, 200, 0)
	if err := sess.Connect(oscID, 0, outID, 0); err != nil {
		log.Error("connect SINE_OSC to OUTPUT: %v", err)
		os.Exit(1)
	}
	sess.SetOutput(outID)

	// The graph must exist in a compiled plan before SetParam against
	// oscID can take effect (an unknown node id is silently ignored), so
	// run one silent block to force the first compile.
	warmup := make([]float32, renderBlockFrames*2)
	ctrl.RenderBlock(warmup, renderBlockFrames)
	if !ctrl.PlanCompiled() {
		log.Error("SINE_OSC -> OUTPUT graph failed to compile")
		os.Exit(1)
	}

	sess.SetParam(oscID, reg.ParamSineFreq, float32(*freq))

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(cfg.SampleRate),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		log.Error("open audio output: %v", err)
		os.Exit(1)
	}
	<-ready

	player := otoCtx.NewPlayer(newEngineSource(ctrl))
	player.Play()
	defer player.Close()

	sess.NoteOn(uint8(*note), 1)
	log.Info("playing note %d at %.2fHz for %s", *note, *freq, *hold)
	time.Sleep(*hold)

	sess.NoteOff(uint8(*note))
	time.Sleep(200 * time.Millisecond)
}
