// Package scan decodes the serial key scan of a combo organ keyboard into a
// MIDI byte stream.
package scan

// Sample is one snapshot of the scan chip lines. Bits hold the logical level,
// i.e. already inverted back from the electrical level on the input port.
type Sample uint8

const (
	Pedal Sample = 1 << 1 // sustain pedal, set while the pedal is up
	Clock Sample = 1 << 2 // bit clock, data is valid on the rising edge
	Data  Sample = 1 << 3 // key state of the current scan position
	Sync  Sample = 1 << 4 // frame sync, the frame starts on its falling edge
)

// Lines reads the current state of the scan chip lines.
type Lines interface {
	Sample() Sample
}

// Transmitter is the serial transmitter the decoder drains its queue into.
type Transmitter interface {
	// Ready reports whether the transmitter can take the next byte without
	// waiting.
	Ready() bool
	WriteByte(c byte) error
}

// LinesFunc adapts a plain function to Lines.
type LinesFunc func() Sample

func (f LinesFunc) Sample() Sample { return f() }

// Has reports whether all bits of mask are set.
func (s Sample) Has(mask Sample) bool {
	return s&mask == mask
}

// Lines wired through the inverters on the input port.
const lineMask = Pedal | Clock | Data | Sync

// FromPort converts a raw input port reading into a Sample. The lines reach
// the port through inverters, so the logical level is the complement.
func FromPort(raw uint8) Sample {
	return Sample(^raw) & lineMask
}
