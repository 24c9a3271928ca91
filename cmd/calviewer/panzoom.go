package main

import (
	"image/color"
	"math"
	"strconv"

	fyne "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/JamesVaughan/visualize-calibration-report/src/viewstate"
)

// panZoomOverlay sits on top of a chart image and translates pointer
// gestures into pane actions: drag pans, scroll zooms at the cursor,
// double-tap resets to the fit view. It also shows the cursor's data
// coordinates in a small readout while hovering.
type panZoomOverlay struct {
	widget.BaseWidget
	ui       *uiState
	pane     viewstate.Pane
	mouse    fyne.Position
	hovering bool
}

func newPanZoomOverlay(ui *uiState, pane viewstate.Pane) *panZoomOverlay {
	o := &panZoomOverlay{ui: ui, pane: pane}
	o.ExtendBaseWidget(o)
	return o
}

// imageRect returns the rectangle the chart image actually occupies inside
// the overlay under canvas.ImageFillContain, plus the image pixel size.
func (o *panZoomOverlay) imageRect(size fyne.Size) (drawX, drawY, drawW, drawH float32, ok bool) {
	var img *canvas.Image
	if o.pane == viewstate.PaneError {
		img = o.ui.errImgCanvas
	} else {
		img = o.ui.valImgCanvas
	}
	if img == nil || img.Image == nil {
		return 0, 0, 0, 0, false
	}
	b := img.Image.Bounds()
	imgW, imgH := float32(b.Dx()), float32(b.Dy())
	if imgW <= 0 || imgH <= 0 || size.Width <= 0 || size.Height <= 0 {
		return 0, 0, 0, 0, false
	}
	scale := size.Width / imgW
	if sy := size.Height / imgH; sy < scale {
		scale = sy
	}
	drawW = imgW * scale
	drawH = imgH * scale
	drawX = (size.Width - drawW) / 2
	drawY = (size.Height - drawH) / 2
	return drawX, drawY, drawW, drawH, true
}

// dataAt maps an overlay position to data coordinates through the pane's
// current viewport. The chart's own padding is approximated by the fixed
// margins used at render time.
func (o *panZoomOverlay) dataAt(pos fyne.Position) (x, y float64, ok bool) {
	drawX, drawY, drawW, drawH, rectOK := o.imageRect(o.Size())
	if !rectOK || drawW <= 0 || drawH <= 0 {
		return 0, 0, false
	}
	fx := float64((pos.X - drawX) / drawW)
	fy := float64((pos.Y - drawY) / drawH)
	if fx < 0 || fx > 1 || fy < 0 || fy > 1 {
		return 0, 0, false
	}
	vp := o.ui.state.PaneViewport(o.pane)
	x = vp.MinX + fx*(vp.MaxX-vp.MinX)
	y = vp.MaxY - fy*(vp.MaxY-vp.MinY) // screen y grows downward
	return x, y, true
}

// Dragged pans the pane by the drag delta converted to data units.
func (o *panZoomOverlay) Dragged(ev *fyne.DragEvent) {
	if o.ui.state.Phase() == viewstate.Empty {
		return
	}
	_, _, drawW, drawH, ok := o.imageRect(o.Size())
	if !ok || drawW <= 0 || drawH <= 0 {
		return
	}
	vp := o.ui.state.PaneViewport(o.pane)
	dx := -float64(ev.Dragged.DX) / float64(drawW) * (vp.MaxX - vp.MinX)
	dy := float64(ev.Dragged.DY) / float64(drawH) * (vp.MaxY - vp.MinY)
	o.ui.state.Pan(o.pane, dx, dy)
	o.ui.redrawPane(o.pane)
}

func (o *panZoomOverlay) DragEnd() {}

// Scrolled zooms around the cursor. Each wheel notch scales by ~10%.
func (o *panZoomOverlay) Scrolled(ev *fyne.ScrollEvent) {
	if o.ui.state.Phase() == viewstate.Empty {
		return
	}
	ax, ay, ok := o.dataAt(ev.Position)
	if !ok {
		vp := o.ui.state.PaneViewport(o.pane)
		ax = (vp.MinX + vp.MaxX) / 2
		ay = (vp.MinY + vp.MaxY) / 2
	}
	factor := math.Pow(1.1, float64(ev.Scrolled.DY)/25)
	if factor <= 0 {
		return
	}
	o.ui.state.Zoom(o.pane, factor, ax, ay)
	o.ui.redrawPane(o.pane)
}

// DoubleTapped resets the pane to the fit-to-selection view.
func (o *panZoomOverlay) DoubleTapped(*fyne.PointEvent) {
	o.ui.state.ResetView(o.pane)
	o.ui.redrawPane(o.pane)
}

func (o *panZoomOverlay) MouseIn(ev *desktop.MouseEvent) {
	o.hovering = true
	o.mouse = ev.Position
	o.Refresh()
}

func (o *panZoomOverlay) MouseMoved(ev *desktop.MouseEvent) {
	o.hovering = true
	o.mouse = ev.Position
	o.Refresh()
}

func (o *panZoomOverlay) MouseOut() {
	o.hovering = false
	o.Refresh()
}

func (o *panZoomOverlay) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{})
	label := widget.NewLabel("")
	label.Hide()
	labelBG := canvas.NewRectangle(color.RGBA{R: 0, G: 0, B: 0, A: 170})
	labelBG.Hide()
	return &panZoomRenderer{o: o, bg: bg, labelBG: labelBG, label: label,
		objs: []fyne.CanvasObject{bg, labelBG, label}}
}

type panZoomRenderer struct {
	o       *panZoomOverlay
	bg      *canvas.Rectangle
	labelBG *canvas.Rectangle
	label   *widget.Label
	objs    []fyne.CanvasObject
}

func (r *panZoomRenderer) Destroy() {}

func (r *panZoomRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	if !r.o.hovering {
		r.label.Hide()
		r.labelBG.Hide()
		return
	}
	x, y, ok := r.o.dataAt(r.o.mouse)
	if !ok {
		r.label.Hide()
		r.labelBG.Hide()
		return
	}
	r.label.SetText(readoutText(x, y))
	r.label.Show()
	ts := r.label.MinSize()
	pad := float32(2)
	tx := r.o.mouse.X + 10
	ty := r.o.mouse.Y + 10
	if tx+ts.Width+pad > size.Width {
		tx = size.Width - ts.Width - pad
	}
	if ty+ts.Height+pad > size.Height {
		ty = size.Height - ts.Height - pad
	}
	r.labelBG.Resize(fyne.NewSize(ts.Width+2*pad, ts.Height+2*pad))
	r.labelBG.Move(fyne.NewPos(tx-pad, ty-pad))
	r.labelBG.Show()
	r.label.Resize(ts)
	r.label.Move(fyne.NewPos(tx, ty))
}

func (r *panZoomRenderer) MinSize() fyne.Size           { return fyne.NewSize(10, 10) }
func (r *panZoomRenderer) Objects() []fyne.CanvasObject { return r.objs }
func (r *panZoomRenderer) Refresh() {
	r.Layout(r.o.Size())
	r.bg.Refresh()
	r.labelBG.Refresh()
	r.label.Refresh()
}

func readoutText(x, y float64) string {
	return "iter " + formatReadout(x) + "  y " + formatReadout(y)
}

func formatReadout(v float64) string {
	av := math.Abs(v)
	switch {
	case av >= 100:
		return strconv.FormatFloat(v, 'f', 0, 64)
	case av >= 1:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return strconv.FormatFloat(v, 'g', 4, 64)
	}
}

var _ fyne.Draggable = (*panZoomOverlay)(nil)
var _ fyne.Scrollable = (*panZoomOverlay)(nil)
var _ fyne.DoubleTappable = (*panZoomOverlay)(nil)
var _ desktop.Hoverable = (*panZoomOverlay)(nil)
