package scan

import "context"

// DefaultSyncSpinLimit bounds the sync wait. A frame is about 1.2 ms, so this
// is far more polls than a healthy chip ever needs.
const DefaultSyncSpinLimit = 1 << 16

// Options configures a Decoder.
type Options struct {
	Transpose     int8
	QueueSize     int // rounded up to a power of two, DefaultQueueSize if 0
	SyncSpinLimit int // DefaultSyncSpinLimit if 0, negative waits forever
}

// Stats counts what the decoder did. Counters wrap silently.
type Stats struct {
	Frames       uint32 // sync pulses seen
	Edges        uint32 // clock edges serviced
	Transitions  uint32 // key and pedal changes detected
	Dropped      uint32 // messages lost to a full queue
	Sent         uint32 // bytes handed to the transmitter
	SyncTimeouts uint32
	TxErrors     uint32
}

// Decoder turns the scan chip line stream into MIDI bytes. It is driven by
// calling Step from a single loop; nothing in it is safe for concurrent use.
type Decoder struct {
	lines Lines
	tx    Transmitter
	queue *Queue
	enc   *Encoder

	transpose int8
	spinLimit int

	cur, prev Sample
	position  int

	keys  [Positions]bool // state of each position from the previous pass
	pedal bool

	event bool // queue holds bytes not yet sent
	idle  bool // the last serviced edge produced no message

	stats Stats
}

// New creates a decoder reading lines and writing to tx.
func New(lines Lines, tx Transmitter, opts Options) *Decoder {
	size := opts.QueueSize
	if size == 0 {
		size = DefaultQueueSize
	}
	spin := opts.SyncSpinLimit
	if spin == 0 {
		spin = DefaultSyncSpinLimit
	}
	q := NewQueue(size)
	return &Decoder{
		lines:     lines,
		tx:        tx,
		queue:     q,
		enc:       NewEncoder(q),
		transpose: opts.Transpose,
		spinLimit: spin,
		pedal:     true,
	}
}

// Run calls Step until ctx is cancelled. The firmware calls Step from a bare
// loop instead so the hot path never touches the channel runtime.
func (d *Decoder) Run(ctx context.Context) error {
	done := ctx.Done()
	for {
		select {
		case <-done:
			return ctx.Err()
		default:
		}
		d.Step()
	}
}

// Step runs one iteration of the loop: sample the lines, service a clock edge
// if there is one, then give the transmitter a chance.
func (d *Decoder) Step() {
	d.read()

	if d.position == SyncPosition && !d.waitSync() {
		return
	}

	if rising := d.cur & (d.cur ^ d.prev); rising&Clock != 0 {
		d.capture()
		d.position = (d.position + 1) % Positions
	}

	d.transmit()
}

func (d *Decoder) read() {
	d.prev = d.cur
	d.cur = d.lines.Sample()
}

// waitSync polls until the sync line drops. It gives up after spinLimit polls
// and leaves the position at 0 so the next Step tries again.
func (d *Decoder) waitSync() bool {
	for n := 0; d.cur&Sync != 0; n++ {
		if d.spinLimit > 0 && n >= d.spinLimit {
			d.stats.SyncTimeouts++
			return false
		}
		d.read()
	}
	d.position = 1
	d.stats.Frames++
	return true
}

// capture stores the data bit for the current position and emits a message
// when it differs from the previous pass.
func (d *Decoder) capture() {
	p := d.position
	d.stats.Edges++

	bit := d.cur.Has(Data)
	last := d.keys[p]
	d.keys[p] = bit

	switch {
	case bit != last && IsKey(p):
		d.transition()
		if !d.enc.Key(Note(p, d.transpose), bit) {
			d.stats.Dropped++
		}
	case p == PedalPosition:
		pedal := d.cur.Has(Pedal)
		if pedal != d.pedal {
			d.transition()
			if !d.enc.Pedal(pedal) {
				d.stats.Dropped++
			}
		}
		d.pedal = pedal
	default:
		d.idle = true
	}
}

func (d *Decoder) transition() {
	d.event = true
	d.idle = false
	d.stats.Transitions++
}

// Position returns the scan position the next clock edge will be stored at.
func (d *Decoder) Position() int {
	return d.position
}

// Key reports the last stored state of scan position p.
func (d *Decoder) Key(p int) bool {
	if p < 0 || p >= Positions {
		return false
	}
	return d.keys[p]
}

// PedalUp reports the last stored pedal bit.
func (d *Decoder) PedalUp() bool {
	return d.pedal
}

// Pending returns the number of bytes waiting in the output queue.
func (d *Decoder) Pending() int {
	return d.queue.Len()
}

// Stats returns a copy of the counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}
