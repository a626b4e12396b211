package voice

import "testing"

func TestAllocatorPolyModeBasic(t *testing.T) {
	a := NewAllocator(4)

	a.NoteOn(60, 1.0, 0)
	a.NoteOn(64, 1.0, 0)
	a.NoteOn(67, 1.0, 0)

	if got := a.ActiveVoiceCount(); got != 3 {
		t.Fatalf("expected 3 active voices, got %d", got)
	}

	a.NoteOff(64, 0)
	if got := a.ActiveVoiceCount(); got != 3 {
		t.Fatalf("expected voice count unchanged until marked silent, got %d", got)
	}

	note, active := a.NoteAt(1)
	if !active || note != 64 {
		t.Fatalf("expected voice 1 still releasing note 64, got note=%d active=%v", note, active)
	}
	if !a.IsReleasing(1) {
		t.Fatalf("expected voice 1 to be releasing")
	}

	a.MarkVoiceSilent(1)
	if got := a.ActiveVoiceCount(); got != 2 {
		t.Fatalf("expected 2 active voices after silence, got %d", got)
	}
}

// TestAllocatorStealsOldestFIFO verifies TESTABLE PROPERTY 4: the
// (max_voices+1)-th NoteOn steals the oldest active voice.
func TestAllocatorStealsOldestFIFO(t *testing.T) {
	a := NewAllocator(4)
	notes := []uint8{60, 62, 64, 65}
	for _, n := range notes {
		a.NoteOn(n, 1.0, 0)
	}
	if got := a.ActiveVoiceCount(); got != 4 {
		t.Fatalf("expected 4 active voices, got %d", got)
	}

	events := a.NoteOn(67, 1.0, 0)
	if got := a.ActiveVoiceCount(); got != 4 {
		t.Fatalf("expected active voice count to remain at max (4), got %d", got)
	}

	// voice 0 (note 60, the oldest) must have been stolen: it should now
	// carry note 67, and we should have seen a NoteOff(60) then NoteOn(67)
	// both targeting voice 0.
	noteAtZero, active := a.NoteAt(0)
	if !active || noteAtZero != 67 {
		t.Fatalf("expected voice 0 reassigned to note 67, got note=%d active=%v", noteAtZero, active)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events (steal noteoff + noteon), got %d", len(events))
	}
	if events[0].Voice != 0 || events[1].Voice != 0 {
		t.Fatalf("expected both steal events to target voice 0, got %+v", events)
	}
}

func TestAllocatorRetrigger(t *testing.T) {
	a := NewAllocator(4)
	a.NoteOn(60, 0.5, 0)
	events := a.NoteOn(60, 0.9, 10)
	if len(events) != 1 || events[0].Voice != 0 {
		t.Fatalf("expected retrigger to reuse voice 0, got %+v", events)
	}
	if got := a.ActiveVoiceCount(); got != 1 {
		t.Fatalf("expected 1 active voice after retrigger, got %d", got)
	}
}

func TestAllocatorUnisonMode(t *testing.T) {
	a := NewAllocator(4)
	a.SetMode(ModeUnison)
	a.NoteOn(60, 1.0, 0)
	if got := a.ActiveVoiceCount(); got != 4 {
		t.Fatalf("expected unison mode to trigger all 4 voices, got %d", got)
	}
	a.NoteOff(60, 0)
	for i := 0; i < 4; i++ {
		if !a.IsReleasing(i) {
			t.Fatalf("expected voice %d releasing after unison note-off", i)
		}
	}
}

func TestAllocatorResetSendsNoteOffs(t *testing.T) {
	a := NewAllocator(2)
	a.NoteOn(60, 1.0, 0)
	a.NoteOn(64, 1.0, 0)
	events := a.Reset()
	if len(events) != 2 {
		t.Fatalf("expected 2 note-off events on reset, got %d", len(events))
	}
	if got := a.ActiveVoiceCount(); got != 0 {
		t.Fatalf("expected 0 active voices after reset, got %d", got)
	}
}
