// Package midiio adapts live external MIDI input into bridge.Commands for
// the engine's UI-side session, grounded on gitlab.com/gomidi/midi/v2 the
// way the teacher's own tracker/gomidi package uses it: a driver-agnostic
// listener bound to a drivers.In, translating messages in its callback.
// This is a UI-side package only - it must never be imported from the
// audio callback.
package midiio

import (
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/hyasynth/hyasynth/internal/elog"
	"github.com/hyasynth/hyasynth/pkg/bridge"
)

// Listener translates one open MIDI input port's NoteOn/NoteOff messages
// into CmdNoteOn/CmdNoteOff Commands sent to the shared command ring.
// Every other message type (CC, pitch bend, clock, ...) is logged at debug
// level and dropped; live external MIDI is a performance input, not a
// full sequencer control surface.
type Listener struct {
	commands *bridge.Producer
	log      *elog.Logger
	stop     func()
}

// Listen opens in (if not already open) and starts forwarding its note
// messages to commands. The returned Listener must be closed with Stop
// when the input device is no longer wanted.
func Listen(in drivers.In, commands *bridge.Producer, log *elog.Logger) (*Listener, error) {
	if !in.IsOpen() {
		if err := in.Open(); err != nil {
			return nil, err
		}
	}
	l := &Listener{commands: commands, log: log}
	stop, err := midi.ListenTo(in, l.handleMessage)
	if err != nil {
		return nil, err
	}
	l.stop = stop
	return l, nil
}

// Stop stops listening. It does not close the underlying drivers.In; the
// caller owns the port's lifetime.
func (l *Listener) Stop() {
	if l.stop != nil {
		l.stop()
	}
}

func (l *Listener) handleMessage(msg midi.Message, _ int32) {
	var channel, key, velocity uint8
	if msg.GetNoteOn(&channel, &key, &velocity) {
		l.commands.Send(bridge.Command{
			Kind: bridge.CmdNoteOn,
			Note: bridge.NoteEventPayload{Note: key, Velocity: float32(velocity) / 127},
		})
		return
	}
	if msg.GetNoteOff(&channel, &key, &velocity) {
		l.commands.Send(bridge.Command{
			Kind: bridge.CmdNoteOff,
			Note: bridge.NoteEventPayload{Note: key},
		})
		return
	}
	if l.log != nil {
		l.log.Debug("midiio: ignoring non-note message %v", msg)
	}
}
