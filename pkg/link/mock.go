package link

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/itohio/cxmidi/pkg/chip"
	"github.com/itohio/cxmidi/pkg/config"
	"github.com/itohio/cxmidi/pkg/scan"
)

// ErrStopped is returned when connecting a mock that was already closed; its
// events channel cannot be reused.
var ErrStopped = errors.New("mock keyboard stopped")

// Mock simulates a keyboard running the firmware: a scan chip simulator feeds
// a real decoder and its output is parsed back into events.
type Mock struct {
	cfg  config.MockConfig
	opts scan.Options

	sim     *chip.Simulator
	events  chan Event
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stats   scan.Stats
	started bool

	connected bool
}

// NewMock creates a new mocked device. A nil cfg uses the defaults.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:    cfg.Mock,
		opts:   cfg.Options(),
		sim:    chip.New(),
		events: make(chan Event, DefaultBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect starts the simulated keyboard.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}
	if m.started {
		return ErrStopped
	}

	m.connected = true
	m.started = true
	m.done = make(chan struct{})

	go m.run()

	log.WithField("transpose", m.opts.Transpose).Info("mock keyboard started")
	return nil
}

// Close stops the simulated keyboard and closes the events channel.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	done := m.done
	m.mu.Unlock()

	<-done
	return nil
}

// Events returns the channel of decoded messages.
func (m *Mock) Events() <-chan Event {
	return m.events
}

// IsConnected returns whether the mock is running.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SetNote presses or releases the key playing note.
func (m *Mock) SetNote(note uint8, down bool) error {
	return m.sim.SetNote(note, m.opts.Transpose, down)
}

// SetPedal presses or releases the sustain pedal.
func (m *Mock) SetPedal(down bool) {
	m.sim.SetPedal(down)
}

// Stats returns the decoder counters as of the last simulated frame.
func (m *Mock) Stats() scan.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// eventSink is the decoder's transmitter: it parses the bytes back into
// messages. It runs on the decoder goroutine only.
type eventSink struct {
	parser Parser
	out    chan<- Event
}

func (s *eventSink) Ready() bool { return true }

func (s *eventSink) WriteByte(c byte) error {
	msg, ok := s.parser.Feed(c)
	if !ok {
		return nil
	}
	select {
	case s.out <- Event{Timestamp: time.Now(), Message: msg}:
	default:
		log.WithField("msg", msg.String()).Warn("events channel full, dropping message")
	}
	return nil
}

// flushTimeout bounds how long Close waits for queued bytes.
const flushTimeout = 100 * time.Millisecond

// run owns the decoder. Every frame interval it plays one frame worth of line
// samples through the decoder and updates the scripted key presses.
func (m *Mock) run() {
	defer close(m.done)
	defer close(m.events)

	sink := &eventSink{out: m.events}
	dec := scan.New(m.sim, sink, m.opts)
	script := newScript(m.cfg, m.sim, m.opts.Transpose)

	ticker := time.NewTicker(m.cfg.FrameInterval)
	defer ticker.Stop()

	steps := m.sim.FrameLen()
	for {
		select {
		case <-m.ctx.Done():
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			err := dec.Flush(ctx)
			cancel()
			if err != nil {
				log.WithError(err).Warn("flushing mock decoder")
			}
			return
		case now := <-ticker.C:
			script.advance(now)
			for i := 0; i < steps; i++ {
				dec.Step()
			}
			m.mu.Lock()
			m.stats = dec.Stats()
			m.mu.Unlock()
		}
	}
}

// script presses random keys and toggles the pedal on a schedule.
type script struct {
	cfg       config.MockConfig
	sim       *chip.Simulator
	rnd       *rand.Rand
	lastPress time.Time
	lastPedal time.Time
	pedalDown bool
	held      map[int]time.Time // position -> release time
}

func newScript(cfg config.MockConfig, sim *chip.Simulator, transpose int8) *script {
	now := time.Now()
	return &script{
		cfg:       cfg,
		sim:       sim,
		rnd:       rand.New(rand.NewPCG(cfg.Seed, uint64(transpose))),
		lastPress: now,
		lastPedal: now,
		held:      make(map[int]time.Time),
	}
}

func (s *script) advance(now time.Time) {
	for p, until := range s.held {
		if now.After(until) {
			s.sim.SetKey(p, false)
			delete(s.held, p)
		}
	}

	if s.cfg.PressInterval > 0 && now.Sub(s.lastPress) >= s.cfg.PressInterval {
		s.lastPress = now
		p := s.randomKey()
		s.sim.SetKey(p, true)
		s.held[p] = now.Add(s.cfg.HoldDuration)
	}

	if s.cfg.PedalInterval > 0 && now.Sub(s.lastPedal) >= s.cfg.PedalInterval {
		s.lastPedal = now
		s.pedalDown = !s.pedalDown
		s.sim.SetPedal(s.pedalDown)
	}
}

func (s *script) randomKey() int {
	for {
		p := 1 + s.rnd.IntN(scan.PedalPosition-1)
		if scan.IsKey(p) {
			return p
		}
	}
}
