package link

import (
	"gitlab.com/gomidi/midi/v2"
)

// Parser splits a raw MIDI byte stream into channel messages. It follows
// running status, drops system exclusive and system common data, and skips
// stray data bytes until the next status byte.
type Parser struct {
	status  byte
	buf     [3]byte
	n       int
	need    int
	sysex   bool
	skipped int
}

// Feed consumes one byte. It returns a complete message once the last data
// byte of a message arrives.
func (p *Parser) Feed(c byte) (midi.Message, bool) {
	switch {
	case c >= 0xF8:
		// realtime bytes may appear anywhere and carry no data
		return midi.Message{c}, true
	case c >= 0xF0:
		p.status = 0
		p.n = 0
		p.sysex = c == 0xF0
		return nil, false
	case c&0x80 != 0:
		p.status = c
		p.sysex = false
		p.buf[0] = c
		p.n = 1
		p.need = channelMessageLen(c)
		return nil, false
	}

	if p.status == 0 {
		if !p.sysex {
			p.skipped++
		}
		return nil, false
	}
	if p.n == 0 {
		// running status
		p.buf[0] = p.status
		p.n = 1
	}
	p.buf[p.n] = c
	p.n++
	if p.n < p.need {
		return nil, false
	}
	msg := make(midi.Message, p.n)
	copy(msg, p.buf[:p.n])
	p.n = 0
	return msg, true
}

// Skipped returns how many data bytes were dropped for lack of a status byte.
func (p *Parser) Skipped() int {
	return p.skipped
}

func channelMessageLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 2
	default:
		return 3
	}
}
