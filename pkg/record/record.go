// Package record captures a live event stream into a Standard MIDI File.
package record

import (
	"fmt"
	"io"
	"os"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/itohio/cxmidi/pkg/link"
)

const (
	// DefaultTempo is the tempo written into recordings. Deltas are derived
	// from wall clock time so the value only affects the tick resolution.
	DefaultTempo = 120.0
	// DefaultResolution is the SMF ticks per quarter note.
	DefaultResolution = 960
)

// Recorder accumulates events into a single track.
type Recorder struct {
	ticks smf.MetricTicks
	tempo float64
	track smf.Track
	last  time.Time
	count int
}

// New creates an empty recorder.
func New() *Recorder {
	r := &Recorder{
		ticks: smf.MetricTicks(DefaultResolution),
		tempo: DefaultTempo,
	}
	r.track.Add(0, smf.MetaTempo(r.tempo))
	return r
}

// Add appends an event. The first event starts at tick 0.
func (r *Recorder) Add(ev link.Event) {
	var delta uint32
	if r.count > 0 && ev.Timestamp.After(r.last) {
		delta = r.ticks.Ticks(r.tempo, ev.Timestamp.Sub(r.last))
	}
	if r.count == 0 || ev.Timestamp.After(r.last) {
		r.last = ev.Timestamp
	}
	r.track.Add(delta, ev.Message.Bytes())
	r.count++
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	return r.count
}

// WriteTo writes the recording as a format 0 SMF.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	s := smf.New()
	s.TimeFormat = r.ticks

	track := make(smf.Track, len(r.track))
	copy(track, r.track)
	track.Close(0)

	if err := s.Add(track); err != nil {
		return 0, fmt.Errorf("failed to add track: %w", err)
	}
	n, err := s.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return n, nil
}

// WriteFile writes the recording to filename.
func (r *Recorder) WriteFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
