package midiio

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/hyasynth/hyasynth/pkg/bridge"
)

func TestHandleMessageForwardsNoteOnAndNoteOff(t *testing.T) {
	commands, drain := bridge.NewChannel(16, 16)
	l := &Listener{commands: commands}

	l.handleMessage(midi.NoteOn(0, 69, 100), 0)
	l.handleMessage(midi.NoteOff(0, 69), 1)

	var got []bridge.Command
	drain.Drain(func(cmd bridge.Command) { got = append(got, cmd) })

	if len(got) != 2 {
		t.Fatalf("expected 2 forwarded commands, got %d", len(got))
	}
	if got[0].Kind != bridge.CmdNoteOn || got[0].Note.Note != 69 {
		t.Fatalf("expected a NoteOn for note 69, got %+v", got[0])
	}
	if got[0].Note.Velocity <= 0 || got[0].Note.Velocity > 1 {
		t.Fatalf("expected a normalized velocity in (0,1], got %v", got[0].Note.Velocity)
	}
	if got[1].Kind != bridge.CmdNoteOff || got[1].Note.Note != 69 {
		t.Fatalf("expected a NoteOff for note 69, got %+v", got[1])
	}
}

func TestHandleMessageIgnoresNonNoteMessages(t *testing.T) {
	commands, drain := bridge.NewChannel(16, 16)
	l := &Listener{commands: commands}

	l.handleMessage(midi.ControlChange(0, 1, 64), 0)

	var got []bridge.Command
	drain.Drain(func(cmd bridge.Command) { got = append(got, cmd) })
	if len(got) != 0 {
		t.Fatalf("expected control-change messages to be dropped, got %+v", got)
	}
}
