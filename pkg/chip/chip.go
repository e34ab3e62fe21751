package chip

import (
	"fmt"
	"sync"

	"github.com/itohio/cxmidi/pkg/scan"
)

// DefaultSyncSamples is how many samples the sync line stays up between frames.
const DefaultSyncSamples = 2

// Simulator plays the scan chip: every call to Sample returns the next line
// state of an endless stream of frames. Keys may be changed from any
// goroutine; a change shows up from the next frame on.
type Simulator struct {
	mu      sync.Mutex
	keys    [scan.Positions]bool
	pedalUp bool

	// frame being played, copied from keys when a frame starts
	frame      [scan.Positions]bool
	framePedal scan.Sample

	syncSamples int
	phase       int
}

// New creates a simulator with every key up and the pedal released.
func New() *Simulator {
	return &Simulator{
		pedalUp:     true,
		syncSamples: DefaultSyncSamples,
	}
}

// FrameLen is the number of samples in one frame.
func (s *Simulator) FrameLen() int {
	return s.syncSamples + 2*(scan.Positions-1)
}

// SetKey sets the bit sent at scan position p. Positions outside 1..64 are
// ignored.
func (s *Simulator) SetKey(p int, down bool) {
	if p <= scan.SyncPosition || p >= scan.Positions {
		return
	}
	s.mu.Lock()
	s.keys[p] = down
	s.mu.Unlock()
}

// SetNote presses or releases the key that plays note under transpose.
func (s *Simulator) SetNote(note uint8, transpose int8, down bool) error {
	p, ok := scan.Position(note, transpose)
	if !ok {
		return fmt.Errorf("note %d is not on the keyboard (transpose %d)", note, transpose)
	}
	s.SetKey(p, down)
	return nil
}

// SetPedal presses or releases the sustain pedal. The pedal line is asserted
// while the pedal is released.
func (s *Simulator) SetPedal(down bool) {
	s.mu.Lock()
	s.pedalUp = !down
	s.mu.Unlock()
}

// Key reports the current state of scan position p.
func (s *Simulator) Key(p int) bool {
	if p < 0 || p >= scan.Positions {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[p]
}

// Sample implements scan.Lines.
func (s *Simulator) Sample() scan.Sample {
	if s.phase == 0 {
		s.latch()
	}
	out := s.at(s.phase)
	s.phase++
	if s.phase == s.FrameLen() {
		s.phase = 0
	}
	return out
}

func (s *Simulator) latch() {
	s.mu.Lock()
	s.frame = s.keys
	s.framePedal = 0
	if s.pedalUp {
		s.framePedal = scan.Pedal
	}
	s.mu.Unlock()
}

func (s *Simulator) at(phase int) scan.Sample {
	if phase < s.syncSamples {
		return scan.Sync | s.framePedal
	}
	i := phase - s.syncSamples
	out := s.framePedal
	if s.frame[i/2+1] {
		out |= scan.Data
	}
	if i%2 == 1 {
		out |= scan.Clock
	}
	return out
}
