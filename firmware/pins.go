//go:build tinygo && avr

package main

import "machine"

const (
	// Scan chip lines, all on port B (D8..D12 on an Uno style board). The
	// hardware inverters are undone by scan.FromPort.
	PIN_PEDAL = machine.D9  // PB1, sustain pedal switch to ground
	PIN_CLOCK = machine.D10 // PB2
	PIN_DATA  = machine.D11 // PB3
	PIN_SYNC  = machine.D12 // PB4

	// MIDI baud rate, 16 MHz / (16 * (31 + 1))
	UART_BAUD_RATE = 31250

	// Semitones added to every note. Set at build time for the instrument.
	TRANSPOSE int8 = 0

	// Output queue size in bytes
	QUEUE_SIZE = 64
)
