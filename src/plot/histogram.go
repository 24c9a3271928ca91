package plot

import (
	"bytes"
	"fmt"
	"image"
	png "image/png"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
)

// MaxHistogramBins caps the error-distribution bucket count.
const MaxHistogramBins = 20

// HistogramBin is one bucket of final absolute errors.
type HistogramBin struct {
	Low, High float64
	Count     int
}

// BuildHistogram buckets the final absolute errors of all error-bearing
// variables into up to maxBins equal-width bins between min and max. With
// fewer values than bins the bin count shrinks so no empty tail renders. An
// empty input returns nil.
func BuildHistogram(finals []float64, maxBins int) []HistogramBin {
	if len(finals) == 0 || maxBins < 1 {
		return nil
	}
	min, max := finals[0], finals[0]
	for _, v := range finals[1:] {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	bins := maxBins
	if len(finals) < bins {
		bins = len(finals)
	}
	if max <= min {
		// all identical finals collapse to one bucket
		return []HistogramBin{{Low: min, High: max, Count: len(finals)}}
	}
	width := (max - min) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		out[i].Low = min + float64(i)*width
		out[i].High = out[i].Low + width
	}
	out[bins-1].High = max
	for _, v := range finals {
		idx := int((v - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// RenderHistogram draws the error-distribution bar chart. An empty bin list
// renders a theme-colored blank so the report set stays complete even for
// value-only datasets.
func RenderHistogram(bins []HistogramBin, opts RenderOptions) (image.Image, error) {
	opts.defaults()
	if len(bins) == 0 {
		return Blank(opts.Width, opts.Height, opts.Theme), nil
	}
	tc := opts.Theme.colors()
	bars := make([]chart.Value, len(bins))
	for i, b := range bins {
		bars[i] = chart.Value{
			Label: fmt.Sprintf("%s–%s", formatTick(b.Low), formatTick(b.High)),
			Value: float64(b.Count),
			Style: chart.Style{FillColor: histBarColor, StrokeColor: histBarColor},
		}
	}
	maxCount := 0
	for _, b := range bins {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	bc := chart.BarChart{
		Title:      opts.Title,
		TitleStyle: chart.Style{FontColor: tc.text},
		Background: chart.Style{FillColor: tc.background, Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 40}},
		Canvas:     chart.Style{FillColor: tc.background},
		Width:      opts.Width,
		Height:     opts.Height,
		BarWidth:   barWidthFor(opts.Width, len(bins)),
		XAxis:      chart.Style{StrokeColor: tc.axis, FontColor: tc.text},
		YAxis: chart.YAxis{
			Name:      "Variables",
			NameStyle: chart.Style{FontColor: tc.text},
			Style:     chart.Style{StrokeColor: tc.axis, FontColor: tc.text},
			Range:     &chart.ContinuousRange{Min: 0, Max: float64(maxCount) + 1},
		},
		Bars: bars,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render histogram: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode rendered histogram: %w", err)
	}
	if opts.Annotation != "" {
		img = drawAnnotation(img, opts.Annotation, opts.Theme)
	}
	return img, nil
}

// histBarColor reads acceptably on both themes.
var histBarColor = chart.ColorBlue

// barWidthFor sizes bars so the chart fills the width without overlapping.
func barWidthFor(chartWidth, bins int) int {
	if bins < 1 {
		return 20
	}
	w := (chartWidth - 120) / bins
	if w < 8 {
		w = 8
	}
	if w > 80 {
		w = 80
	}
	return w
}
