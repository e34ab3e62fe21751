package main

import (
	"flag"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/bep/debounce"
	log "github.com/sirupsen/logrus"

	"github.com/itohio/cxmidi/pkg/config"
	"github.com/itohio/cxmidi/pkg/keyboard"
	"github.com/itohio/cxmidi/pkg/keys"
	"github.com/itohio/cxmidi/pkg/link"
	"github.com/itohio/cxmidi/pkg/scan"
)

const refreshDelay = 10 * time.Millisecond

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyUSB0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use a simulated keyboard instead of the serial port")
		debugFlag  = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *debugFlag {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	application := app.NewWithID("com.itohio.cxmidi")
	window := application.NewWindow("Organ MIDI Monitor")
	window.Resize(fyne.NewSize(1000, 260))
	window.CenterOnScreen()

	state := &appState{
		cfg:     cfg,
		tracker: keys.New(0),
		window:  window,
		useMock: *mockFlag,
	}

	low, high := noteRange(cfg.Decoder.Transpose)
	state.keyboard = keyboard.New(low, high)
	state.keyboard.OnTapped = func(note uint8) { handleTap(state, note) }

	// coalesce bursts of events into one redraw of the latest state
	redraw := debounce.New(refreshDelay)
	state.tracker.OnUpdate(func(keys.State) {
		redraw(func() {
			s := state.tracker.State()
			fyne.Do(func() {
				state.keyboard.Update(s)
			})
		})
	})

	window.SetContent(container.NewBorder(createToolbar(state), nil, nil, nil, state.keyboard))
	window.SetOnClosed(func() { closeChain(state.chain) })
	window.ShowAndRun()
}

// noteRange returns the lowest and highest note the organ plays.
func noteRange(transpose int8) (uint8, uint8) {
	return scan.Note(31, transpose), scan.Note(1, transpose)
}

// chain tracks the running device and the goroutine reading it.
type chain struct {
	device  link.Device
	tracker chan struct{} // closed when the tracker goroutine exits
}

type appState struct {
	cfg      *config.Config
	device   link.Device
	tracker  *keys.Keyboard
	keyboard *keyboard.Widget
	window   fyne.Window

	connectBtn *widget.Button
	pedalBtn   *widget.Button
	statsLabel *widget.Label

	useMock bool
	pedal   bool
	chain   *chain
}

func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.pedalBtn = widget.NewButton("Pedal", func() {
		handlePedal(state)
	})
	state.pedalBtn.Disable()

	state.statsLabel = widget.NewLabel("")

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.connectBtn, settingsBtn),
		container.NewHBox(state.statsLabel, state.pedalBtn),
		nil,
	)
}

func closeChain(c *chain) {
	if c == nil {
		return
	}
	if c.device != nil {
		if err := c.device.Close(); err != nil {
			log.WithError(err).Warn("closing device")
		}
	}
	if c.tracker != nil {
		<-c.tracker
	}
}

func disconnect(state *appState) {
	closeChain(state.chain)
	state.chain = nil
	state.device = nil
	state.pedal = false
	state.pedalBtn.Disable()
	state.statsLabel.SetText("")
	log.Info("disconnected")
}

func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		disconnect(state)
		return
	}

	var device link.Device
	if state.useMock {
		device = link.NewMock(state.cfg)
	} else {
		device = link.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, link.DefaultBufferSize)
	}

	if err := device.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect: %w", err), state.window)
		return
	}
	state.device = device
	log.WithField("mock", state.useMock).WithField("port", state.cfg.Serial.Port).Info("connected")

	low, high := noteRange(state.cfg.Decoder.Transpose)
	state.keyboard.SetRange(low, high)
	state.tracker.Reset()
	state.tracker.ResetShutdown()

	done := make(chan struct{})
	go func() {
		defer close(done)
		state.tracker.ProcessEvents(device.Events())
	}()
	state.chain = &chain{device: device, tracker: done}

	if mock, ok := device.(*link.Mock); ok {
		state.pedalBtn.Enable()
		go pollStats(mock, done, state.statsLabel)
	}
}

// pollStats shows the simulated decoder counters until done closes.
func pollStats(mock *link.Mock, done <-chan struct{}, label *widget.Label) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			st := mock.Stats()
			text := fmt.Sprintf("frames %d  sent %d  dropped %d", st.Frames, st.Sent, st.Dropped)
			fyne.Do(func() { label.SetText(text) })
		}
	}
}

// handleTap toggles a key on the simulated keyboard.
func handleTap(state *appState, note uint8) {
	mock, ok := state.device.(*link.Mock)
	if !ok || !mock.IsConnected() {
		return
	}
	down := !state.keyboard.Held(note)
	if err := mock.SetNote(note, down); err != nil {
		log.WithError(err).WithField("note", note).Debug("tap outside the keyboard")
	}
}

func handlePedal(state *appState) {
	mock, ok := state.device.(*link.Mock)
	if !ok || !mock.IsConnected() {
		return
	}
	state.pedal = !state.pedal
	mock.SetPedal(state.pedal)
	if state.pedal {
		state.pedalBtn.Importance = widget.HighImportance
	} else {
		state.pedalBtn.Importance = widget.MediumImportance
	}
	state.pedalBtn.Refresh()
}
