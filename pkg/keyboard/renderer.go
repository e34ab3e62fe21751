package keyboard

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

const statusHeight = 24

var (
	whiteColor  = color.RGBA{R: 235, G: 235, B: 235, A: 255}
	blackColor  = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	heldColor   = color.RGBA{R: 255, G: 165, B: 0, A: 255} // Orange
	borderColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	textColor   = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	damperColor = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
)

type renderer struct {
	kb *Widget

	bg      *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

func (r *renderer) MinSize() fyne.Size {
	return fyne.NewSize(480, 140)
}

func (r *renderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	if r.lastSize != size {
		r.lastSize = size
		r.kb.BaseWidget.Refresh()
	}
}

func (r *renderer) Refresh() {
	r.kb.mu.RLock()
	low, high := r.kb.low, r.kb.high
	held := r.kb.held
	damper := r.kb.damper
	last := r.kb.lastNote
	r.kb.mu.RUnlock()

	size := r.kb.Size()
	if size.Width == 0 || size.Height <= statusHeight {
		return
	}
	area := r.kb.keyArea(size)

	r.objects = []fyne.CanvasObject{r.bg}
	for _, k := range Layout(low, high, area.Width, area.Height) {
		fill := whiteColor
		if k.Black {
			fill = blackColor
		}
		if held[k.Note] {
			fill = heldColor
		}
		rect := canvas.NewRectangle(fill)
		rect.StrokeColor = borderColor
		rect.StrokeWidth = 1
		rect.Move(fyne.NewPos(k.X, k.Y))
		rect.Resize(fyne.NewSize(k.W, k.H))
		r.objects = append(r.objects, rect)
	}

	y := area.Height + 4
	status := canvas.NewText(fmt.Sprintf("damper %3d   %s", damper, last), textColor)
	status.TextSize = 12
	status.Move(fyne.NewPos(8, y))
	r.objects = append(r.objects, status)

	if damper >= 64 {
		dot := canvas.NewCircle(damperColor)
		dot.Move(fyne.NewPos(area.Width-20, y+2))
		dot.Resize(fyne.NewSize(12, 12))
		r.objects = append(r.objects, dot)
	}
}

func (r *renderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *renderer) Destroy() {}
