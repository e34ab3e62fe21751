package scan

const (
	// Positions is the number of scan positions in a frame (0..64).
	Positions = 65

	// SyncPosition is where the decoder waits for the frame sync.
	SyncPosition = 0
	// PedalPosition carries the sustain pedal instead of a key.
	PedalPosition = 64

	firstKey    = 1
	lastKey     = 63
	fillerFirst = 32
	fillerLast  = 33
)

// IsKey reports whether position p carries a key. The filler bits 32 and 33
// and the sync and pedal slots do not.
func IsKey(p int) bool {
	return p >= firstKey && p <= lastKey && (p < fillerFirst || p > fillerLast)
}

// Note maps a key position to a MIDI note number. Notes descend as the
// position increases; the upper half is offset so numbering stays contiguous
// across the filler gap. The result is meaningless for non-key positions.
func Note(p int, transpose int8) uint8 {
	if p <= 31 {
		return uint8(int(transpose) + 98 - p*2)
	}
	return uint8(int(transpose) + 101 - (p-31)*2)
}

// Position is the inverse of Note. It returns false when no key position
// produces note under the given transpose.
func Position(note uint8, transpose int8) (int, bool) {
	n := int(note) - int(transpose)
	if n < 0 {
		return 0, false
	}
	var p int
	if n%2 == 0 {
		p = (98 - n) / 2
		if p > fillerFirst-1 {
			return 0, false
		}
	} else {
		p = (101-n)/2 + 31
		if p < fillerLast+1 {
			return 0, false
		}
	}
	if !IsKey(p) {
		return 0, false
	}
	return p, true
}

// Transpose values outside this range push some keys out of the MIDI note
// range 0..127.
const (
	MinTranspose = -36
	MaxTranspose = 31
)
