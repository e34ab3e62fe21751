package keys

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"

	"github.com/itohio/cxmidi/pkg/link"
)

var _ Tracker = (*Keyboard)(nil)

// DefaultHistory is how many events a Keyboard remembers.
const DefaultHistory = 64

// State is a snapshot of the keyboard.
type State struct {
	Held   [128]bool // notes currently down
	Damper uint8     // last damper pedal controller value
	Events []link.Event
}

// HeldNotes returns the held notes in ascending order.
func (s State) HeldNotes() []uint8 {
	var out []uint8
	for n, down := range s.Held {
		if down {
			out = append(out, uint8(n))
		}
	}
	return out
}

// Tracker follows the key state reported by a MIDI event stream.
type Tracker interface {
	ProcessEvents(input <-chan link.Event)
	State() State
	OnUpdate(func(State))
}

// Keyboard implements Tracker.
type Keyboard struct {
	mu      sync.RWMutex
	held    [128]bool
	damper  uint8
	events  []link.Event // most recent last
	history int

	callbacks []func(State)
	cbMu      sync.RWMutex

	// set when the input channel closes, no more callbacks after that
	shutdown bool
}

// New creates a keyboard tracker remembering the last history events. A
// history of 0 uses DefaultHistory.
func New(history int) *Keyboard {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Keyboard{
		history: history,
		events:  make([]link.Event, 0, history),
	}
}

// ProcessEvents applies events until input closes.
func (k *Keyboard) ProcessEvents(input <-chan link.Event) {
	for ev := range input {
		k.Apply(ev)
	}
	k.mu.Lock()
	k.shutdown = true
	k.mu.Unlock()
}

// Apply updates the key state from one event and notifies callbacks.
func (k *Keyboard) Apply(ev link.Event) {
	k.mu.Lock()
	k.apply(ev)
	k.events = append(k.events, ev)
	if len(k.events) > k.history {
		k.events = k.events[len(k.events)-k.history:]
	}
	notify := !k.shutdown
	k.mu.Unlock()

	if notify {
		k.notifyCallbacks()
	}
}

func (k *Keyboard) apply(ev link.Event) {
	var ch, key, vel, cc, val uint8
	switch {
	case ev.Message.GetNoteStart(&ch, &key, &vel):
		if k.held[key] {
			log.WithField("note", midi.Note(key).String()).Warn("note pressed twice")
		}
		k.held[key] = true
	case ev.Message.GetNoteEnd(&ch, &key):
		if !k.held[key] {
			log.WithField("note", midi.Note(key).String()).Warn("note off for a key that is not down")
		}
		k.held[key] = false
	case ev.Message.GetControlChange(&ch, &cc, &val):
		if cc == 64 {
			k.damper = val
		}
	default:
		log.WithField("msg", ev.Message.String()).Debug("ignoring message")
	}
}

// State returns a copy of the current state.
func (k *Keyboard) State() State {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.state()
}

func (k *Keyboard) state() State {
	events := make([]link.Event, len(k.events))
	copy(events, k.events)
	return State{
		Held:   k.held,
		Damper: k.damper,
		Events: events,
	}
}

// Reset releases every note and forgets the history.
func (k *Keyboard) Reset() {
	k.mu.Lock()
	k.held = [128]bool{}
	k.damper = 0
	k.events = k.events[:0]
	k.mu.Unlock()
}

// OnUpdate registers a callback invoked after every applied event. The
// callback runs on the processing goroutine and should return quickly.
func (k *Keyboard) OnUpdate(callback func(State)) {
	k.cbMu.Lock()
	defer k.cbMu.Unlock()
	k.callbacks = append(k.callbacks, callback)
}

// ResetShutdown allows callbacks again. Call it before processing a new stream.
func (k *Keyboard) ResetShutdown() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.shutdown = false
}

func (k *Keyboard) notifyCallbacks() {
	state := k.State()

	k.cbMu.RLock()
	callbacks := make([]func(State), len(k.callbacks))
	copy(callbacks, k.callbacks)
	k.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(state)
		}
	}
}
