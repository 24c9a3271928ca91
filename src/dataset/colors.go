package dataset

import (
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// palette holds the base hues assigned to variables. Assignment is by rank in
// the canonical (sorted) name order, so a variable keeps its color across
// widgets, panes and exports for the lifetime of one dataset.
var palette = []drawing.Color{
	{R: 0xE6, G: 0x19, B: 0x4B, A: 0xFF}, // red
	{R: 0x43, G: 0x63, B: 0xD8, A: 0xFF}, // blue
	{R: 0x3C, G: 0xB4, B: 0x4B, A: 0xFF}, // green
	{R: 0xF5, G: 0x82, B: 0x31, A: 0xFF}, // orange
	{R: 0x91, G: 0x1E, B: 0xB4, A: 0xFF}, // purple
	{R: 0x46, G: 0xF0, B: 0xF0, A: 0xFF}, // cyan
	{R: 0xF0, G: 0x32, B: 0xE6, A: 0xFF}, // magenta
	{R: 0xBF, G: 0xEF, B: 0x45, A: 0xFF}, // lime
	{R: 0x9A, G: 0x63, B: 0x24, A: 0xFF}, // brown
	{R: 0x80, G: 0x80, B: 0x00, A: 0xFF}, // olive
	{R: 0x00, G: 0x80, B: 0x80, A: 0xFF}, // teal
	{R: 0xE6, G: 0xBE, B: 0xFF, A: 0xFF}, // lavender
}

// PaletteSize is the number of distinct base hues before wrap-around.
const PaletteSize = 12

// fallbackColor is returned for names outside the assignment's dataset so a
// stale legend entry still renders something visible.
var fallbackColor = drawing.Color{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}

// ColorAssignment maps variable names to stable colors for one dataset. It is
// derived alongside the Dataset and discarded with it.
type ColorAssignment struct {
	byName map[string]drawing.Color
}

// AssignColors computes the color of every variable in d. Names take
// palette[rank%12]; each time the palette wraps, the hue is blended toward
// white by a fixed step so wrap-around variables remain distinguishable from
// their first-cycle counterparts.
func AssignColors(d *Dataset) *ColorAssignment {
	a := &ColorAssignment{byName: make(map[string]drawing.Color, d.VariableCount())}
	for i, name := range d.VariableNames() {
		base := palette[i%PaletteSize]
		cycle := i / PaletteSize
		a.byName[name] = lighten(base, float64(cycle)*0.25)
	}
	return a
}

// For returns the color assigned to name, or a neutral gray for names not in
// the assignment's dataset.
func (a *ColorAssignment) For(name string) drawing.Color {
	if a == nil {
		return fallbackColor
	}
	if c, ok := a.byName[name]; ok {
		return c
	}
	return fallbackColor
}

// lighten blends c toward white by t (clamped to 0.75 so colors never fade
// out entirely on deep wrap-arounds).
func lighten(c drawing.Color, t float64) drawing.Color {
	if t <= 0 {
		return c
	}
	if t > 0.75 {
		t = 0.75
	}
	blend := func(v uint8) uint8 {
		return uint8(float64(v) + (255-float64(v))*t)
	}
	return drawing.Color{R: blend(c.R), G: blend(c.G), B: blend(c.B), A: c.A}
}
