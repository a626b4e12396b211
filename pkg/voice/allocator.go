// Package voice implements the polyphonic voice allocator described in
// spec §4.5: a fixed pool of max_voices slots, assigned to incoming notes
// and released once their PerVoice DSP instances report silence.
//
// Adapted from the teacher's pkg/framework/voice.Allocator. The teacher's
// Allocator drives a slice of owned Voice objects directly; Hyasynth's
// graph execution plan owns the PerVoice DSP instances instead, so this
// Allocator only tracks slot bookkeeping and emits node.Event values the
// engine attaches to the block's event stream for the target voice index.
package voice

import "github.com/hyasynth/hyasynth/pkg/node"

// Mode selects how incoming notes map to voice slots.
type Mode int

const (
	// ModePoly gives every distinct note its own voice (spec default).
	ModePoly Mode = iota
	// ModeMono keeps only one voice active at a time.
	ModeMono
	// ModeLegato is ModeMono without retriggering on overlapping notes.
	ModeLegato
	// ModeUnison triggers every voice on each note, for unison stacking.
	ModeUnison
)

// StealMode selects which active voice is sacrificed when the pool is
// full and a new note arrives.
type StealMode int

const (
	// StealOldest steals the longest-sounding voice (spec default, FIFO).
	StealOldest StealMode = iota
	StealQuietest
	StealHighest
	StealLowest
	// StealNone drops the incoming note instead of stealing.
	StealNone
)

type slotState int

const (
	idle slotState = iota
	playing
	releasing
)

type slot struct {
	state    slotState
	note     uint8
	velocity float32
	age      uint64
}

// Allocator manages voice-slot assignment. It holds no DSP references; the
// engine is responsible for routing the Events it returns to the graph's
// PerVoice node instances at the given voice index.
type Allocator struct {
	slots     []slot
	mode      Mode
	steal     StealMode
	noteSlots map[uint8][]int
	clock     uint64
	current   uint8 // ModeMono/ModeLegato current note, 0 = none
}

// NewAllocator creates an Allocator with maxVoices slots, defaulting to
// ModePoly + StealOldest per spec §4.5 and TESTABLE PROPERTY 4.
func NewAllocator(maxVoices int) *Allocator {
	if maxVoices < 1 {
		maxVoices = 1
	}
	return &Allocator{
		slots:     make([]slot, maxVoices),
		mode:      ModePoly,
		steal:     StealOldest,
		noteSlots: make(map[uint8][]int),
	}
}

// SetMode sets the allocation mode, resetting all voices.
func (a *Allocator) SetMode(m Mode) {
	a.mode = m
	a.Reset()
}

// SetStealMode sets the voice-stealing policy.
func (a *Allocator) SetStealMode(m StealMode) { a.steal = m }

// MaxVoices returns the size of the voice pool.
func (a *Allocator) MaxVoices() int { return len(a.slots) }

// ActiveVoiceCount returns how many slots are currently playing or
// releasing.
func (a *Allocator) ActiveVoiceCount() int {
	n := 0
	for _, s := range a.slots {
		if s.state != idle {
			n++
		}
	}
	return n
}

// NoteOn allocates (or retriggers, or steals into) a voice for note at the
// given velocity and sample offset, returning the Events the engine should
// inject into this block's event stream.
func (a *Allocator) NoteOn(note uint8, velocity float32, sampleOffset int) []node.Event {
	switch a.mode {
	case ModeMono, ModeLegato:
		return a.noteOnMono(note, velocity, sampleOffset)
	case ModeUnison:
		return a.noteOnUnison(note, velocity, sampleOffset)
	default:
		return a.noteOnPoly(note, velocity, sampleOffset)
	}
}

// NoteOff releases note, returning the Events the engine should inject.
func (a *Allocator) NoteOff(note uint8, sampleOffset int) []node.Event {
	if a.mode == ModeMono || a.mode == ModeLegato {
		return a.noteOffMono(note, sampleOffset)
	}
	if a.mode == ModeUnison {
		return a.noteOffUnison(note, sampleOffset)
	}
	return a.noteOffPoly(note, sampleOffset)
}

func (a *Allocator) noteOnPoly(note uint8, velocity float32, offset int) []node.Event {
	a.clock++
	if slots, ok := a.noteSlots[note]; ok && len(slots) > 0 {
		var events []node.Event
		for _, idx := range slots {
			a.slots[idx].state = playing
			a.slots[idx].velocity = velocity
			a.slots[idx].age = a.clock
			events = append(events, a.voiceNoteOn(idx, note, velocity, offset))
		}
		return events
	}

	idx := a.findFree()
	var stolenEvent *node.Event
	if idx == -1 {
		idx = a.steal_()
		if idx == -1 {
			return nil
		}
		e := a.voiceNoteOff(idx, a.slots[idx].note, offset)
		stolenEvent = &e
	}

	a.slots[idx] = slot{state: playing, note: note, velocity: velocity, age: a.clock}
	a.noteSlots[note] = []int{idx}

	onEvent := a.voiceNoteOn(idx, note, velocity, offset)
	if stolenEvent != nil {
		return []node.Event{*stolenEvent, onEvent}
	}
	return []node.Event{onEvent}
}

func (a *Allocator) noteOffPoly(note uint8, offset int) []node.Event {
	slots, ok := a.noteSlots[note]
	if !ok {
		return nil
	}
	var events []node.Event
	for _, idx := range slots {
		a.slots[idx].state = releasing
		events = append(events, a.voiceNoteOff(idx, note, offset))
	}
	delete(a.noteSlots, note)
	return events
}

func (a *Allocator) noteOnMono(note uint8, velocity float32, offset int) []node.Event {
	a.clock++
	if a.mode == ModeLegato && a.current != 0 {
		a.current = note
		a.slots[0].note = note
		a.slots[0].velocity = velocity
		a.noteSlots = map[uint8][]int{note: {0}}
		return []node.Event{a.voiceNoteOn(0, note, velocity, offset)}
	}
	a.current = note
	a.slots[0] = slot{state: playing, note: note, velocity: velocity, age: a.clock}
	a.noteSlots = map[uint8][]int{note: {0}}
	return []node.Event{a.voiceNoteOn(0, note, velocity, offset)}
}

func (a *Allocator) noteOffMono(note uint8, offset int) []node.Event {
	if note != a.current {
		return nil
	}
	a.slots[0].state = releasing
	a.current = 0
	delete(a.noteSlots, note)
	return []node.Event{a.voiceNoteOff(0, note, offset)}
}

func (a *Allocator) noteOnUnison(note uint8, velocity float32, offset int) []node.Event {
	a.clock++
	events := make([]node.Event, 0, len(a.slots))
	idxs := make([]int, 0, len(a.slots))
	for i := range a.slots {
		a.slots[i] = slot{state: playing, note: note, velocity: velocity, age: a.clock}
		idxs = append(idxs, i)
		events = append(events, a.voiceNoteOn(i, note, velocity, offset))
	}
	a.noteSlots = map[uint8][]int{note: idxs}
	a.current = note
	return events
}

func (a *Allocator) noteOffUnison(note uint8, offset int) []node.Event {
	if note != a.current {
		return nil
	}
	events := make([]node.Event, 0, len(a.slots))
	for i := range a.slots {
		a.slots[i].state = releasing
		events = append(events, a.voiceNoteOff(i, note, offset))
	}
	a.current = 0
	delete(a.noteSlots, note)
	return events
}

func (a *Allocator) findFree() int {
	for i, s := range a.slots {
		if s.state == idle {
			return i
		}
	}
	return -1
}

func (a *Allocator) steal_() int {
	if a.steal == StealNone {
		return -1
	}
	best := -1
	var bestVal float64
	for i, s := range a.slots {
		if s.state == idle {
			continue
		}
		var val float64
		switch a.steal {
		case StealOldest:
			val = float64(s.age) // smallest age (earliest trigger) wins => oldest
		case StealQuietest:
			val = float64(s.velocity)
		case StealHighest:
			val = -float64(s.note)
		case StealLowest:
			val = float64(s.note)
		}
		if best == -1 || val < bestVal {
			best = i
			bestVal = val
		}
	}
	if best == -1 {
		return -1
	}
	stolenNote := a.slots[best].note
	if slots, ok := a.noteSlots[stolenNote]; ok {
		filtered := slots[:0]
		for _, idx := range slots {
			if idx != best {
				filtered = append(filtered, idx)
			}
		}
		if len(filtered) == 0 {
			delete(a.noteSlots, stolenNote)
		} else {
			a.noteSlots[stolenNote] = filtered
		}
	}
	return best
}

// MarkVoiceSilent tells the allocator that voiceIdx's PerVoice node
// instances have all reported silent after release, so the slot becomes
// idle and may be reused.
func (a *Allocator) MarkVoiceSilent(voiceIdx int) {
	if voiceIdx < 0 || voiceIdx >= len(a.slots) {
		return
	}
	if a.slots[voiceIdx].state == releasing {
		a.slots[voiceIdx] = slot{}
	}
}

// IsReleasing reports whether voiceIdx is in the releasing state (used by
// the engine to know which voices to poll for silence).
func (a *Allocator) IsReleasing(voiceIdx int) bool {
	if voiceIdx < 0 || voiceIdx >= len(a.slots) {
		return false
	}
	return a.slots[voiceIdx].state == releasing
}

// NoteAt returns the note assigned to voiceIdx and whether it is active.
func (a *Allocator) NoteAt(voiceIdx int) (uint8, bool) {
	if voiceIdx < 0 || voiceIdx >= len(a.slots) {
		return 0, false
	}
	s := a.slots[voiceIdx]
	return s.note, s.state != idle
}

// Reset stops every voice immediately, returning the NoteOff events for
// any voice that was playing or releasing (spec §5: transport stop sends
// NoteOff to all voices).
func (a *Allocator) Reset() []node.Event {
	var events []node.Event
	for i := range a.slots {
		if a.slots[i].state != idle {
			events = append(events, a.voiceNoteOff(i, a.slots[i].note, 0))
		}
		a.slots[i] = slot{}
	}
	a.noteSlots = make(map[uint8][]int)
	a.current = 0
	return events
}

func (a *Allocator) voiceNoteOn(voiceIdx int, note uint8, velocity float32, offset int) node.Event {
	return node.Event{
		Kind:         node.KindNoteOn,
		SampleOffset: offset,
		Target:       node.TargetVoice,
		Voice:        voiceIdx,
		Note:         note,
		Velocity:     velocity,
	}
}

func (a *Allocator) voiceNoteOff(voiceIdx int, note uint8, offset int) node.Event {
	return node.Event{
		Kind:         node.KindNoteOff,
		SampleOffset: offset,
		Target:       node.TargetVoice,
		Voice:        voiceIdx,
		Note:         note,
	}
}
