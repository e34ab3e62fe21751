package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replay feeds a fixed sample sequence, then idles with all lines low.
type replay struct {
	samples []Sample
	pos     int
}

func (r *replay) Sample() Sample {
	if r.pos >= len(r.samples) {
		return 0
	}
	s := r.samples[r.pos]
	r.pos++
	return s
}

func (r *replay) done() bool {
	return r.pos >= len(r.samples)
}

// sink records written bytes.
type sink struct {
	out  []byte
	busy bool
	err  error
}

func (s *sink) Ready() bool { return !s.busy }

func (s *sink) WriteByte(c byte) error {
	if s.err != nil {
		return s.err
	}
	s.out = append(s.out, c)
	return nil
}

// frame builds the line samples of one scan frame: a sync pulse, then a
// low/high clock pair for positions 1..64.
func frame(keys map[int]bool, pedalUp bool) []Sample {
	var ped Sample
	if pedalUp {
		ped = Pedal
	}
	out := []Sample{Sync | ped, Sync | ped}
	for p := 1; p < Positions; p++ {
		s := ped
		if keys[p] {
			s |= Data
		}
		out = append(out, s, s|Clock)
	}
	return out
}

func frames(n int, keys map[int]bool, pedalUp bool) []Sample {
	var out []Sample
	for i := 0; i < n; i++ {
		out = append(out, frame(keys, pedalUp)...)
	}
	return out
}

func run(d *Decoder, r *replay) {
	for !r.done() {
		d.Step()
	}
}

func newTestDecoder(samples []Sample, opts Options) (*Decoder, *replay, *sink) {
	r := &replay{samples: samples}
	s := &sink{}
	return New(r, s, opts), r, s
}

func TestDecoder_QuietKeyboard(t *testing.T) {
	d, r, s := newTestDecoder(frames(3, nil, true), Options{})
	run(d, r)

	assert.Empty(t, s.out)
	assert.Equal(t, uint32(3), d.Stats().Frames)
	assert.Equal(t, uint32(3*64), d.Stats().Edges)
	assert.Equal(t, uint32(0), d.Stats().Transitions)
}

func TestDecoder_KeyDownAndUp(t *testing.T) {
	var in []Sample
	in = append(in, frame(nil, true)...)
	in = append(in, frames(2, map[int]bool{5: true}, true)...)
	in = append(in, frames(2, nil, true)...)

	d, r, s := newTestDecoder(in, Options{})
	run(d, r)

	note := Note(5, 0)
	assert.Equal(t, uint8(88), note)
	assert.Equal(t, []byte{0x90, note, 0x40, 0x80, note, 0x00}, s.out)
	assert.Equal(t, uint32(2), d.Stats().Transitions)
	assert.Equal(t, uint32(6), d.Stats().Sent)
}

func TestDecoder_ComparesAgainstPreviousPass(t *testing.T) {
	var in []Sample
	in = append(in, frames(4, map[int]bool{10: true}, true)...)

	d, r, s := newTestDecoder(in, Options{})
	run(d, r)

	// held for four passes: one Note On only
	assert.Equal(t, []byte{0x90, Note(10, 0), 0x40}, s.out)
	assert.True(t, d.Key(10))
	assert.False(t, d.Key(11))
}

func TestDecoder_Transpose(t *testing.T) {
	in := append(frame(nil, true), frames(2, map[int]bool{40: true}, true)...)

	d, r, s := newTestDecoder(in, Options{Transpose: -12})
	run(d, r)

	assert.Equal(t, []byte{0x90, Note(40, 0) - 12, 0x40}, s.out)
}

func TestDecoder_FillerIgnored(t *testing.T) {
	var in []Sample
	in = append(in, frame(nil, true)...)
	in = append(in, frame(map[int]bool{32: true, 33: true}, true)...)
	in = append(in, frame(nil, true)...)
	in = append(in, frame(map[int]bool{32: true}, true)...)

	d, r, s := newTestDecoder(in, Options{})
	run(d, r)

	assert.Empty(t, s.out)
	assert.Equal(t, uint32(0), d.Stats().Transitions)
}

func TestDecoder_Pedal(t *testing.T) {
	var in []Sample
	in = append(in, frame(nil, true)...)
	in = append(in, frames(2, nil, false)...)
	in = append(in, frames(2, nil, true)...)
	in = append(in, frame(nil, true)...)

	d, r, s := newTestDecoder(in, Options{})
	run(d, r)

	// line drops: value 0; line back up: value 127
	assert.Equal(t, []byte{0xB0, 0x40, 0x00, 0xB0, 0x40, 0x7F}, s.out)
	assert.True(t, d.PedalUp())
}

func TestDecoder_PedalSentinel(t *testing.T) {
	// the first frame with the pedal line low differs from the initial all
	// ones state and is reported once
	d, r, s := newTestDecoder(frames(3, nil, false), Options{})
	run(d, r)

	assert.Equal(t, []byte{0xB0, 0x40, 0x00}, s.out)
	assert.False(t, d.PedalUp())
}

func TestDecoder_PositionWraps(t *testing.T) {
	d, r, _ := newTestDecoder(frame(nil, true), Options{})

	assert.Equal(t, 0, d.Position())
	d.Step()
	assert.Equal(t, 1, d.Position())

	run(d, r)
	assert.Equal(t, SyncPosition, d.Position())
	assert.Equal(t, uint32(64), d.Stats().Edges)
}

func TestDecoder_SyncWaitIsBounded(t *testing.T) {
	stuck := LinesFunc(func() Sample { return Sync })
	d := New(stuck, &sink{}, Options{SyncSpinLimit: 10})

	d.Step()
	d.Step()

	assert.Equal(t, SyncPosition, d.Position())
	assert.Equal(t, uint32(2), d.Stats().SyncTimeouts)
	assert.Equal(t, uint32(0), d.Stats().Frames)
}

func TestDecoder_ResyncBeforeCapture(t *testing.T) {
	// after the 64th edge the decoder must wait for the sync to drop again
	// before storing position 1
	in := frame(nil, true)
	in = append(in, Sync, Sync|Clock, Sync|Data|Clock, Sync)
	in = append(in, frame(map[int]bool{1: true}, true)[2:]...)
	in = append(in, frame(map[int]bool{1: true}, true)...)

	d, r, s := newTestDecoder(in, Options{})
	run(d, r)

	assert.Equal(t, []byte{0x90, Note(1, 0), 0x40}, s.out)
	assert.Equal(t, uint32(3), d.Stats().Frames)
}

func TestDecoder_QueueFullDrops(t *testing.T) {
	keys := map[int]bool{1: true, 2: true, 3: true}
	in := append(frame(nil, true), frame(keys, true)...)

	d, r, s := newTestDecoder(in, Options{QueueSize: 4})
	s.busy = true
	run(d, r)

	assert.Empty(t, s.out)
	assert.Equal(t, 3, d.Pending())
	assert.Equal(t, uint32(3), d.Stats().Transitions)
	assert.Equal(t, uint32(2), d.Stats().Dropped)

	s.busy = false
	require.NoError(t, d.Flush(context.Background()))
	assert.Equal(t, []byte{0x90, Note(1, 0), 0x40}, s.out)
	assert.Equal(t, 0, d.Pending())
}

func TestDecoder_FlushGivesUpWhenNeverReady(t *testing.T) {
	in := append(frame(nil, true), frame(map[int]bool{5: true}, true)...)

	d, r, s := newTestDecoder(in, Options{})
	s.busy = true
	run(d, r)
	require.Equal(t, 3, d.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Flush(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, s.out)
	assert.Equal(t, 3, d.Pending())
}

func TestDecoder_TransmitOnlyWhenIdle(t *testing.T) {
	// keys 1..4 all change in the same pass; nothing is sent until an
	// unchanged position is serviced
	keys := map[int]bool{1: true, 2: true, 3: true, 4: true}
	in := append(frame(nil, true), frame(keys, true)[:2+2*4]...)

	d, r, s := newTestDecoder(in, Options{})
	run(d, r)

	assert.Empty(t, s.out)
	assert.Equal(t, 12, d.Pending())
}

func TestDecoder_TransmitErrorsCounted(t *testing.T) {
	in := append(frame(nil, true), frames(2, map[int]bool{7: true}, true)...)

	d, r, s := newTestDecoder(in, Options{})
	s.err = errors.New("uart")
	run(d, r)

	assert.Empty(t, s.out)
	assert.Equal(t, uint32(3), d.Stats().TxErrors)
}

func TestDecoder_Run(t *testing.T) {
	d := New(LinesFunc(func() Sample { return 0 }), &sink{}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFromPort(t *testing.T) {
	assert.Equal(t, Clock|Data|Sync|Pedal, FromPort(0x00))
	assert.Equal(t, Sample(0), FromPort(0xFF))
	assert.Equal(t, Data|Sync|Pedal, FromPort(0xFF&^0x1A))
	assert.True(t, FromPort(^uint8(Clock)).Has(Clock))
}
