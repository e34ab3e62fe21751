//go:build tinygo && avr

//go:generate tinygo flash -target=arduino

package main

import (
	"device/avr"
	"machine"

	"github.com/itohio/cxmidi/pkg/scan"
)

// readPort samples the scan lines in a single port access so clock, data and
// sync are read together.
func readPort() scan.Sample {
	return scan.FromPort(avr.PINB.Get())
}

// uart writes straight to the USART data register; the decoder only writes
// after Ready so WriteByte never waits.
type uart struct{}

func (uart) Ready() bool {
	return avr.UCSR0A.HasBits(avr.UCSR0A_UDRE0)
}

func (uart) WriteByte(c byte) error {
	avr.UDR0.Set(c)
	return nil
}

func main() {
	PIN_CLOCK.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_DATA.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_SYNC.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_PEDAL.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	machine.UART0.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	dec := scan.New(scan.LinesFunc(readPort), uart{}, scan.Options{
		Transpose: TRANSPOSE,
		QueueSize: QUEUE_SIZE,
		// the sync line is wired, so wait for it as long as it takes
		SyncSpinLimit: -1,
	})
	for {
		dec.Step()
	}
}
