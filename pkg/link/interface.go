package link

import (
	"errors"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

var (
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// Event is one MIDI message received from the keyboard.
type Event struct {
	Timestamp time.Time
	Message   midi.Message
}

// Device is a source of keyboard MIDI events (the real firmware on a serial
// port, or a simulated keyboard).
type Device interface {
	Connect() error
	Close() error
	Events() <-chan Event
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
