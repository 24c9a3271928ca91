package viewstate

import "github.com/JamesVaughan/visualize-calibration-report/src/plot"

// Zoom clamps. Deep zoom-out past the fit view quickly becomes useless and
// deep zoom-in hits float noise on large iteration counts.
const (
	minZoom = 0.05
	maxZoom = 500.0
)

// Transform is one pane's pan/zoom relative to its fit-to-selection
// viewport: independent zoom per axis plus a center offset in data units.
// The identity transform is exactly the fit view, so resetting a pane is
// just Transform{} with the zoom fields at 1.
type Transform struct {
	ZoomX, ZoomY     float64
	OffsetX, OffsetY float64
}

// Identity returns the fit-view transform.
func Identity() Transform { return Transform{ZoomX: 1, ZoomY: 1} }

// IsIdentity reports whether t leaves the fit view unchanged.
func (t Transform) IsIdentity() bool {
	return t.ZoomX == 1 && t.ZoomY == 1 && t.OffsetX == 0 && t.OffsetY == 0
}

// Apply derives the visible window from the fit viewport: the fit center
// shifted by the offsets, with extents divided by the zoom factors.
func (t Transform) Apply(fit plot.Viewport) plot.Viewport {
	zx, zy := t.ZoomX, t.ZoomY
	if zx <= 0 {
		zx = 1
	}
	if zy <= 0 {
		zy = 1
	}
	cx := (fit.MinX+fit.MaxX)/2 + t.OffsetX
	cy := (fit.MinY+fit.MaxY)/2 + t.OffsetY
	hw := (fit.MaxX - fit.MinX) / 2 / zx
	hh := (fit.MaxY - fit.MinY) / 2 / zy
	return plot.Viewport{MinX: cx - hw, MaxX: cx + hw, MinY: cy - hh, MaxY: cy + hh}
}

// Pan shifts the visible window by (dx, dy) in data units.
func (t *Transform) Pan(dx, dy float64) {
	t.normalize()
	t.OffsetX += dx
	t.OffsetY += dy
}

// ZoomAt scales both axes by factor (> 1 zooms in) keeping the anchor point,
// given in data coordinates, fixed on screen. The fit viewport is needed to
// recover the current window center.
func (t *Transform) ZoomAt(factor, anchorX, anchorY float64, fit plot.Viewport) {
	t.normalize()
	nzx := clampZoom(t.ZoomX * factor)
	nzy := clampZoom(t.ZoomY * factor)
	// Effective factor after clamping, per axis.
	fx := nzx / t.ZoomX
	fy := nzy / t.ZoomY
	fitCX := (fit.MinX + fit.MaxX) / 2
	fitCY := (fit.MinY + fit.MaxY) / 2
	curCX := fitCX + t.OffsetX
	curCY := fitCY + t.OffsetY
	// The anchor keeps its relative position when the new center moves to
	// anchor + (center-anchor)/factor.
	t.OffsetX = anchorX + (curCX-anchorX)/fx - fitCX
	t.OffsetY = anchorY + (curCY-anchorY)/fy - fitCY
	t.ZoomX = nzx
	t.ZoomY = nzy
}

func (t *Transform) normalize() {
	if t.ZoomX <= 0 {
		t.ZoomX = 1
	}
	if t.ZoomY <= 0 {
		t.ZoomY = 1
	}
}

func clampZoom(z float64) float64 {
	if z < minZoom {
		return minZoom
	}
	if z > maxZoom {
		return maxZoom
	}
	return z
}
