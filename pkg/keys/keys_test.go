package keys

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"

	"github.com/itohio/cxmidi/pkg/link"
)

func event(msg midi.Message) link.Event {
	return link.Event{Timestamp: time.Now(), Message: msg}
}

func TestNew(t *testing.T) {
	k := New(0)
	assert.Equal(t, DefaultHistory, k.history)
	s := k.State()
	assert.Empty(t, s.HeldNotes())
	assert.Empty(t, s.Events)
	assert.Equal(t, uint8(0), s.Damper)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		msgs   []midi.Message
		held   []uint8
		damper uint8
	}{
		{
			name: "note on",
			msgs: []midi.Message{midi.NoteOn(0, 60, 64)},
			held: []uint8{60},
		},
		{
			name: "note on then off",
			msgs: []midi.Message{midi.NoteOn(0, 60, 64), midi.NoteOff(0, 60)},
		},
		{
			name: "chord",
			msgs: []midi.Message{midi.NoteOn(0, 64, 64), midi.NoteOn(0, 60, 64), midi.NoteOn(0, 67, 64)},
			held: []uint8{60, 64, 67},
		},
		{
			name: "note on with zero velocity releases",
			msgs: []midi.Message{midi.NoteOn(0, 60, 64), midi.NoteOn(0, 60, 0)},
		},
		{
			name:   "damper",
			msgs:   []midi.Message{midi.ControlChange(0, 64, 127)},
			damper: 127,
		},
		{
			name: "other controllers ignored",
			msgs: []midi.Message{midi.ControlChange(0, 1, 100)},
		},
		{
			name: "double press and stray note off are tolerated",
			msgs: []midi.Message{midi.NoteOn(0, 60, 64), midi.NoteOn(0, 60, 64), midi.NoteOff(0, 61)},
			held: []uint8{60},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := New(0)
			for _, msg := range tt.msgs {
				k.Apply(event(msg))
			}
			s := k.State()
			assert.Equal(t, tt.held, s.HeldNotes())
			assert.Equal(t, tt.damper, s.Damper)
			assert.Len(t, s.Events, len(tt.msgs))
		})
	}
}

func TestApply_HistoryBounded(t *testing.T) {
	k := New(4)
	for i := 0; i < 10; i++ {
		k.Apply(event(midi.NoteOn(0, uint8(40+i), 64)))
	}

	s := k.State()
	require.Len(t, s.Events, 4)
	var ch, key, vel uint8
	require.True(t, s.Events[3].Message.GetNoteStart(&ch, &key, &vel))
	assert.Equal(t, uint8(49), key)
	assert.Len(t, s.HeldNotes(), 10)
}

func TestReset(t *testing.T) {
	k := New(0)
	k.Apply(event(midi.NoteOn(0, 60, 64)))
	k.Apply(event(midi.ControlChange(0, 64, 127)))
	k.Reset()

	s := k.State()
	assert.Empty(t, s.HeldNotes())
	assert.Empty(t, s.Events)
	assert.Equal(t, uint8(0), s.Damper)
}

func TestProcessEvents_Callbacks(t *testing.T) {
	k := New(0)

	var mu sync.Mutex
	var states []State
	k.OnUpdate(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	input := make(chan link.Event, 3)
	input <- event(midi.NoteOn(0, 60, 64))
	input <- event(midi.NoteOn(0, 62, 64))
	input <- event(midi.NoteOff(0, 60))
	close(input)

	k.ProcessEvents(input)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 3)
	assert.Equal(t, []uint8{60}, states[0].HeldNotes())
	assert.Equal(t, []uint8{60, 62}, states[1].HeldNotes())
	assert.Equal(t, []uint8{62}, states[2].HeldNotes())
}

// TestKeyboard_GracefulShutdown_NoCallbacksAfterClose tests that the tracker
// stops sending callbacks after the input channel is closed.
func TestKeyboard_GracefulShutdown_NoCallbacksAfterClose(t *testing.T) {
	k := New(0)

	calls := 0
	k.OnUpdate(func(State) { calls++ })

	input := make(chan link.Event, 1)
	input <- event(midi.NoteOn(0, 60, 64))
	close(input)
	k.ProcessEvents(input)
	require.Equal(t, 1, calls)

	k.Apply(event(midi.NoteOff(0, 60)))
	assert.Equal(t, 1, calls)
	assert.Empty(t, k.State().HeldNotes())

	k.ResetShutdown()
	k.Apply(event(midi.NoteOn(0, 61, 64)))
	assert.Equal(t, 2, calls)
}
