package plot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	png "image/png"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Theme picks the chart colors; the variable hues are theme-independent so a
// light export and a dark export of the same dataset stay comparable.
type Theme int

const (
	ThemeDark Theme = iota
	ThemeLight
)

type themeColors struct {
	background drawing.Color
	text       drawing.Color
	axis       drawing.Color
	grid       drawing.Color
}

func (t Theme) colors() themeColors {
	if t == ThemeLight {
		return themeColors{
			background: drawing.Color{R: 255, G: 255, B: 255, A: 255},
			text:       drawing.Color{R: 40, G: 40, B: 40, A: 255},
			axis:       drawing.Color{R: 90, G: 90, B: 90, A: 255},
			grid:       drawing.Color{R: 225, G: 225, B: 225, A: 255},
		}
	}
	return themeColors{
		background: drawing.Color{R: 18, G: 18, B: 18, A: 255},
		text:       drawing.Color{R: 220, G: 220, B: 220, A: 255},
		axis:       drawing.Color{R: 150, G: 150, B: 150, A: 255},
		grid:       drawing.Color{R: 48, G: 48, B: 48, A: 255},
	}
}

// Viewport is the visible window in data coordinates. The fit-to-selection
// viewport is the (padded) series bounds; pan/zoom produce derived windows.
type Viewport struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// FitViewport pads the data bounds to nice axis numbers so lines do not touch
// the chart frame. An undefined bounds yields a fallback unit window.
func FitViewport(b Bounds) Viewport {
	if !b.Defined() {
		return Viewport{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}
	}
	minX, maxX := b.MinX, b.MaxX
	if maxX <= minX {
		maxX = minX + 1
	}
	minY, maxY := niceAxisBounds(b.MinY, b.MaxY)
	return Viewport{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}
}

// RenderOptions carries the fixed output geometry and labeling for one chart.
type RenderOptions struct {
	Width, Height int
	Theme         Theme
	Title         string
	YLabel        string
	// Annotation, when non-empty, is drawn along the bottom edge of the
	// finished image (used by exports to stamp the source file).
	Annotation string
}

func (o *RenderOptions) defaults() {
	if o.Width <= 0 {
		o.Width = 1100
	}
	if o.Height <= 0 {
		o.Height = 340
	}
	if o.Title == "" {
		o.Title = "Calibration"
	}
}

// Render rasterizes the series through the viewport. Series data outside the
// viewport is clipped by the axis ranges; gaps stay gaps. An empty series
// list renders an axes-only chart (callers that must not produce output for
// an empty selection enforce that before rendering).
func Render(series []Series, vp Viewport, opts RenderOptions) (image.Image, error) {
	opts.defaults()
	tc := opts.Theme.colors()
	if vp.MaxX <= vp.MinX {
		vp.MaxX = vp.MinX + 1
	}
	if vp.MaxY <= vp.MinY {
		vp.MaxY = vp.MinY + 1
	}

	var chartSeries []chart.Series
	for _, s := range series {
		for si, seg := range s.Segments {
			xs := make([]float64, len(seg))
			ys := make([]float64, len(seg))
			for i, p := range seg {
				xs[i] = float64(p.Iteration)
				ys[i] = p.Magnitude
			}
			st := chart.Style{StrokeColor: s.Color, StrokeWidth: 2.0}
			if len(seg) == 1 {
				// go-chart draws nothing for a one-point line; show a dot.
				st = chart.Style{StrokeWidth: 0, DotWidth: 4, DotColor: s.Color}
			}
			name := ""
			if si == 0 {
				name = s.Name // legend entry once per variable
			}
			chartSeries = append(chartSeries, chart.ContinuousSeries{
				Name:    name,
				XValues: xs,
				YValues: ys,
				Style:   st,
			})
		}
	}

	axisStyle := chart.Style{
		StrokeColor: tc.axis,
		FontColor:   tc.text,
	}
	gridStyle := chart.Style{
		StrokeColor: tc.grid,
		StrokeWidth: 1.0,
	}
	ch := chart.Chart{
		Title:      opts.Title,
		TitleStyle: chart.Style{FontColor: tc.text},
		Background: chart.Style{FillColor: tc.background, Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 28}},
		Canvas:     chart.Style{FillColor: tc.background},
		Width:      opts.Width,
		Height:     opts.Height,
		XAxis: chart.XAxis{
			Name:           "Iteration",
			NameStyle:      chart.Style{FontColor: tc.text},
			Style:          axisStyle,
			GridMajorStyle: gridStyle,
			Range:          &chart.ContinuousRange{Min: vp.MinX, Max: vp.MaxX},
			Ticks:          niceTicks(vp.MinX, vp.MaxX, 8),
		},
		YAxis: chart.YAxis{
			Name:           opts.YLabel,
			NameStyle:      chart.Style{FontColor: tc.text},
			Style:          axisStyle,
			GridMajorStyle: gridStyle,
			Range:          &chart.ContinuousRange{Min: vp.MinY, Max: vp.MaxY},
			Ticks:          niceTicks(vp.MinY, vp.MaxY, 6),
		},
		Series: chartSeries,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch, chart.Style{
		FillColor:   tc.background,
		FontColor:   tc.text,
		StrokeColor: tc.axis,
	})}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode rendered chart: %w", err)
	}
	if opts.Annotation != "" {
		img = drawAnnotation(img, opts.Annotation, opts.Theme)
	}
	return img, nil
}

// Blank returns a theme-colored empty image, used as the placeholder canvas
// before data is loaded and as the fallback when a render fails.
func Blank(w, h int, theme Theme) image.Image {
	tc := theme.colors()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{R: tc.background.R, G: tc.background.G, B: tc.background.B, A: 255}
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img
}

// drawAnnotation draws a small caption near the bottom-left of the image with
// a translucent backing box for readability on either theme.
func drawAnnotation(img image.Image, text string, theme Theme) image.Image {
	if img == nil || strings.TrimSpace(text) == "" {
		return img
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	face := basicfont.Face7x13
	textCol := image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	boxCol := image.NewUniform(color.RGBA{R: 0, G: 0, B: 0, A: 180})
	if theme == ThemeLight {
		textCol = image.NewUniform(color.RGBA{R: 20, G: 20, B: 20, A: 255})
		boxCol = image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 180})
	}
	dr := &font.Drawer{Dst: rgba, Src: textCol, Face: face}
	tw := dr.MeasureString(text).Ceil()
	pad := 4
	x := b.Min.X + 8
	y := b.Max.Y - 6
	rect := image.Rect(x-pad, y-face.Metrics().Ascent.Ceil()-pad, x+tw+pad, y+pad/2)
	draw.Draw(rgba, rect, boxCol, image.Point{}, draw.Over)
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(text)
	return rgba
}

// niceAxisBounds expands [min,max] by a small margin and rounds to "nice"
// numbers for readability.
func niceAxisBounds(min, max float64) (float64, float64) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return min, max
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	pad := span * 0.05
	if pad <= 0 {
		pad = 1
	}
	a := min - pad
	b := max + pad
	mag := math.Pow(10, math.Floor(math.Log10(span)))
	if !math.IsInf(mag, 0) && mag > 0 {
		a = math.Floor(a/mag) * mag
		b = math.Ceil(b/mag) * mag
	}
	return a, b
}

// niceTicks generates around n tick marks between [min, max] using 1/2/2.5/5
// increments scaled by the span's order of magnitude.
func niceTicks(min, max float64, n int) []chart.Tick {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	candidates := []float64{1, 2, 2.5, 5, 10}
	bestStep := mag
	bestScore := math.MaxFloat64
	for _, c := range candidates {
		step := c * mag
		count := math.Ceil((max - min) / step)
		if count < 2 {
			count = 2
		}
		score := math.Abs(count - float64(n))
		if score < bestScore {
			bestScore = score
			bestStep = step
		}
	}
	start := math.Floor(min/bestStep) * bestStep
	end := math.Ceil(max/bestStep) * bestStep
	ticks := []chart.Tick{}
	for v := start; v <= end+bestStep/2; v += bestStep {
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
		if len(ticks) > n+2 {
			break
		}
	}
	return ticks
}

func formatTick(v float64) string {
	if v == 0 {
		return "0"
	}
	av := math.Abs(v)
	switch {
	case av >= 1000:
		return fmt.Sprintf("%.0f", v)
	case av >= 100:
		return fmt.Sprintf("%.0f", v)
	case av >= 10:
		return fmt.Sprintf("%.1f", v)
	case av >= 0.01:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.2g", v)
	}
}
