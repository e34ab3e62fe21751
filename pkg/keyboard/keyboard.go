package keyboard

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/cxmidi/pkg/keys"
)

var _ fyne.Tappable = (*Widget)(nil)

// Widget draws a keyboard with the held notes highlighted and a damper
// pedal indicator.
type Widget struct {
	widget.BaseWidget

	// OnTapped is called with the note under a tap.
	OnTapped func(note uint8)

	mu       sync.RWMutex
	low      uint8
	high     uint8
	held     [128]bool
	damper   uint8
	lastNote string
}

// New creates a keyboard widget showing notes low..high.
func New(low, high uint8) *Widget {
	w := &Widget{low: low, high: high}
	w.ExtendBaseWidget(w)
	return w
}

// SetRange changes the displayed note range.
func (w *Widget) SetRange(low, high uint8) {
	w.mu.Lock()
	w.low, w.high = low, high
	w.mu.Unlock()
	w.Refresh()
}

// Update shows a keyboard state. Call it on the Fyne main thread.
func (w *Widget) Update(s keys.State) {
	w.mu.Lock()
	w.held = s.Held
	w.damper = s.Damper
	if n := len(s.Events); n > 0 {
		w.lastNote = s.Events[n-1].Message.String()
	}
	w.mu.Unlock()
	w.Refresh()
}

// Held reports whether the widget shows the note as held.
func (w *Widget) Held(note uint8) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return note < 128 && w.held[note]
}

// Tapped implements fyne.Tappable.
func (w *Widget) Tapped(ev *fyne.PointEvent) {
	if w.OnTapped == nil {
		return
	}
	size := w.keyArea(w.Size())
	w.mu.RLock()
	layout := Layout(w.low, w.high, size.Width, size.Height)
	w.mu.RUnlock()
	if note, ok := Hit(layout, ev.Position.X, ev.Position.Y); ok {
		w.OnTapped(note)
	}
}

func (w *Widget) keyArea(size fyne.Size) fyne.Size {
	return fyne.NewSize(size.Width, size.Height-statusHeight)
}

// CreateRenderer implements fyne.Widget.
func (w *Widget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &renderer{
		kb:      w,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
