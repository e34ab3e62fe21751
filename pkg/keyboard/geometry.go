package keyboard

import (
	"github.com/chewxy/math32"
)

// blackHeight is the black key height relative to the white keys.
const (
	blackHeight = 0.62
	blackWidth  = 0.6
)

// Key is the rectangle occupied by one key.
type Key struct {
	Note  uint8
	Black bool
	X, Y  float32
	W, H  float32
}

// Contains reports whether the point lies on the key.
func (k Key) Contains(x, y float32) bool {
	return x >= k.X && x < k.X+k.W && y >= k.Y && y < k.Y+k.H
}

// IsBlack reports whether the note is a black key.
func IsBlack(note uint8) bool {
	switch note % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

func whiteCount(low, high uint8) int {
	n := 0
	for note := int(low); note <= int(high); note++ {
		if !IsBlack(uint8(note)) {
			n++
		}
	}
	return n
}

// Layout places the keys low..high into a width x height area. White keys
// come first in the result, black keys after them so they draw on top.
func Layout(low, high uint8, width, height float32) []Key {
	if high < low || width <= 0 || height <= 0 {
		return nil
	}
	whites := whiteCount(low, high)
	if whites == 0 {
		whites = 1
	}
	ww := width / float32(whites)
	bw := ww * blackWidth

	keys := make([]Key, 0, int(high-low)+1)
	var blacks []Key
	x := float32(0)
	for note := int(low); note <= int(high); note++ {
		n := uint8(note)
		if IsBlack(n) {
			bx := math32.Max(0, x-bw/2)
			blacks = append(blacks, Key{Note: n, Black: true, X: bx, W: math32.Min(bw, width-bx), H: height * blackHeight})
			continue
		}
		keys = append(keys, Key{Note: n, X: x, W: ww, H: height})
		x += ww
	}
	return append(keys, blacks...)
}

// Hit returns the note under the point. Black keys win over white keys.
func Hit(keys []Key, x, y float32) (uint8, bool) {
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i].Contains(x, y) {
			return keys[i].Note, true
		}
	}
	return 0, false
}
