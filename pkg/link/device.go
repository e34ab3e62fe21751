package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the MIDI line rate the firmware transmits at.
	DefaultBaudRate = 31250
	// DefaultBufferSize is the default size for the events channel buffer.
	DefaultBufferSize = 256
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads the firmware's MIDI output from a serial port.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	open func(name string, mode *serial.Mode) (serial.Port, error)

	conn      serial.Port
	events    chan Event
	mu        sync.RWMutex
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}
}

// New creates a new Serial device with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		open:     serial.Open,
		events:   make(chan Event, bufSize),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts reading events.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := d.open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", d.port, err)
	}

	// the previous reader closed its channel, so every connection gets its own
	if d.done != nil {
		d.events = make(chan Event, d.bufSize)
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.conn = port
	d.connected = true
	d.done = make(chan struct{})

	go d.read(ctx, port, d.events, d.done)

	log.WithFields(log.Fields{"port": d.port, "baud": d.baudRate}).Info("serial port opened")
	return nil
}

// Close closes the port and the events channel.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()
	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			log.WithError(err).Warn("error closing serial port")
		}
		d.conn = nil
	}
	d.connected = false
	done := d.done
	d.mu.Unlock()

	// the reader owns the events channel and closes it on exit
	<-done
	return err
}

// Events returns the channel of received messages. Each Connect starts a new
// channel, so call it after connecting.
func (d *Serial) Events() <-chan Event {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.events
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Serial) read(ctx context.Context, r io.Reader, events chan Event, done chan struct{}) {
	defer close(done)
	defer close(events)

	err := pump(ctx, r, events)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).WithField("port", d.port).Error("serial read failed")
	}
}

// pump parses bytes from r and sends the messages to out until ctx is done or
// r fails. Sends never block; a full channel drops the message.
func pump(ctx context.Context, r io.Reader, out chan<- Event) error {
	var p Parser
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		now := time.Now()
		skipped := p.Skipped()
		for _, c := range buf[:n] {
			msg, ok := p.Feed(c)
			if !ok {
				continue
			}
			select {
			case out <- Event{Timestamp: now, Message: msg}:
			default:
				log.WithField("msg", msg.String()).Warn("events channel full, dropping message")
			}
		}
		if d := p.Skipped() - skipped; d > 0 {
			log.WithField("bytes", d).Debug("skipped data bytes without a status byte")
		}

		if err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}
