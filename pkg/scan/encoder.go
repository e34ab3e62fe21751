package scan

import (
	"gitlab.com/gomidi/midi/v2"
)

const (
	// Channel is the MIDI channel all messages go out on (channel 1).
	Channel = 0
	// Velocity is the fixed Note On velocity; the scan chip has no velocity.
	Velocity = 64
	// DamperPedal is the controller number of the sustain pedal.
	DamperPedal = 64

	// MessageSize is the length of every message the encoder produces.
	MessageSize = 3
)

// Encoder turns transitions into MIDI messages and writes them to a queue.
// A message is written whole or not at all.
type Encoder struct {
	q *Queue
}

// NewEncoder creates an encoder writing into q.
func NewEncoder(q *Queue) *Encoder {
	return &Encoder{q: q}
}

// Key enqueues Note On for a pressed key or Note Off for a released one.
func (e *Encoder) Key(note uint8, down bool) bool {
	if down {
		return e.put(midi.NoteOn(Channel, note, Velocity))
	}
	return e.put(midi.NoteOff(Channel, note))
}

// Pedal enqueues a damper Control Change. up is the raw pedal bit: set means
// the pedal line is asserted, which is sent as 127.
func (e *Encoder) Pedal(up bool) bool {
	var v uint8
	if up {
		v = 127
	}
	return e.put(midi.ControlChange(Channel, DamperPedal, v))
}

func (e *Encoder) put(msg midi.Message) bool {
	if e.q.Free() < len(msg) {
		return false
	}
	for _, c := range msg {
		e.q.Enqueue(c)
	}
	return true
}
