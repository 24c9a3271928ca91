// Package plot turns selected dataset variables into renderable line series
// and rasterizes them with go-chart. The same code path draws the on-screen
// charts, the exported images and the headless report charts.
package plot

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
)

// Kind selects which series of a variable a pane plots.
type Kind int

const (
	KindError Kind = iota
	KindValue
)

func (k Kind) String() string {
	if k == KindValue {
		return "value"
	}
	return "error"
}

// Point is one present cell in data coordinates.
type Point struct {
	Iteration int
	Magnitude float64
}

// Series is one plottable line: the points of a variable for one kind, in
// iteration order, with the variable's assigned color. Segments groups the
// points into contiguous runs; an absent cell ends a run, so gaps show as
// breaks in the line rather than interpolated spans.
type Series struct {
	Name     string
	Color    drawing.Color
	Points   []Point
	Segments [][]Point
}

// Bounds is the data bounding box across all included series, used to
// initialize the fit-to-selection viewport.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
	defined    bool
}

// Defined reports whether any point contributed to the bounds.
func (b Bounds) Defined() bool { return b.defined }

func (b *Bounds) extend(x, y float64) {
	if !b.defined {
		b.MinX, b.MaxX, b.MinY, b.MaxY = x, x, y, y
		b.defined = true
		return
	}
	b.MinX = math.Min(b.MinX, x)
	b.MaxX = math.Max(b.MaxX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxY = math.Max(b.MaxY, y)
}

// Build produces one Series per selected variable that has the requested kind
// with at least one present cell. Output order follows selection order so
// legends stay stable; error magnitudes are absolute values, value magnitudes
// are raw. Variables with zero present points for the kind are omitted
// entirely rather than emitted as degenerate lines.
func Build(d *dataset.Dataset, selection []string, colors *dataset.ColorAssignment, kind Kind) ([]Series, Bounds) {
	iterations := d.Iterations()
	var out []Series
	var bounds Bounds
	for _, name := range selection {
		sr, ok := d.Series(name)
		if !ok {
			continue
		}
		var seq []float64
		switch kind {
		case KindError:
			if !sr.HasError {
				continue
			}
			seq = sr.Error
		case KindValue:
			if !sr.HasValue {
				continue
			}
			seq = sr.Value
		}
		s := Series{Name: name, Color: colors.For(name)}
		var run []Point
		for i, v := range seq {
			if !dataset.Present(v) {
				if len(run) > 0 {
					s.Segments = append(s.Segments, run)
					run = nil
				}
				continue
			}
			if kind == KindError {
				v = math.Abs(v)
			}
			p := Point{Iteration: iterations[i], Magnitude: v}
			s.Points = append(s.Points, p)
			run = append(run, p)
			bounds.extend(float64(p.Iteration), p.Magnitude)
		}
		if len(run) > 0 {
			s.Segments = append(s.Segments, run)
		}
		if len(s.Points) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out, bounds
}
