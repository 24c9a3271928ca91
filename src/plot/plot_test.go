package plot

import (
	"testing"

	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
)

func buildDataset(t *testing.T, header []string, rows [][]string) (*dataset.Dataset, *dataset.ColorAssignment) {
	t.Helper()
	d, err := dataset.Parse(header, rows)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d, dataset.AssignColors(d)
}

func TestBuildErrorKind(t *testing.T) {
	d, colors := buildDataset(t,
		[]string{"Iteration", "Error:A", "Value:B"},
		[][]string{{"0", "-2", "10"}, {"1", "1", "11"}})
	series, bounds := Build(d, []string{"B", "A"}, colors, KindError)
	// B has no error series; only A plots, and magnitudes are absolute.
	if len(series) != 1 || series[0].Name != "A" {
		t.Fatalf("series = %+v, want just A", series)
	}
	if series[0].Points[0].Magnitude != 2 {
		t.Fatalf("error magnitude = %v, want abs 2", series[0].Points[0].Magnitude)
	}
	if !bounds.Defined() || bounds.MaxY != 2 || bounds.MinX != 0 || bounds.MaxX != 1 {
		t.Fatalf("bounds = %+v", bounds)
	}
}

func TestBuildSelectionOrder(t *testing.T) {
	d, colors := buildDataset(t,
		[]string{"Iteration", "Error:a", "Error:b"},
		[][]string{{"0", "1", "2"}})
	series, _ := Build(d, []string{"b", "a"}, colors, KindError)
	if len(series) != 2 || series[0].Name != "b" || series[1].Name != "a" {
		t.Fatalf("series order = %v, want selection order", []string{series[0].Name, series[1].Name})
	}
}

func TestBuildGapSegments(t *testing.T) {
	d, colors := buildDataset(t,
		[]string{"Iteration", "Error:A"},
		[][]string{{"0", "1"}, {"1", ""}, {"2", "0.5"}, {"3", "0.25"}})
	series, _ := Build(d, []string{"A"}, colors, KindError)
	if len(series) != 1 {
		t.Fatalf("series count = %d", len(series))
	}
	s := series[0]
	if len(s.Points) != 3 {
		t.Fatalf("points = %d, want 3 (absent cell skipped)", len(s.Points))
	}
	if len(s.Segments) != 2 || len(s.Segments[0]) != 1 || len(s.Segments[1]) != 2 {
		t.Fatalf("segments = %v, want [1-point 2-point]", s.Segments)
	}
}

func TestBuildOmitsEmptyVariables(t *testing.T) {
	d, colors := buildDataset(t,
		[]string{"Iteration", "Error:empty", "Error:full"},
		[][]string{{"0", "", "1"}, {"1", "", "2"}})
	series, _ := Build(d, []string{"empty", "full", "ghost"}, colors, KindError)
	if len(series) != 1 || series[0].Name != "full" {
		t.Fatalf("series = %+v, want only full", series)
	}
}

func TestFitViewport(t *testing.T) {
	var b Bounds
	vp := FitViewport(b)
	if vp.MaxX <= vp.MinX || vp.MaxY <= vp.MinY {
		t.Fatalf("undefined bounds fit = %+v, want a nonempty window", vp)
	}

	b.extend(0, 1)
	b.extend(10, 5)
	vp = FitViewport(b)
	if vp.MinX > 0 || vp.MaxX < 10 || vp.MinY > 1 || vp.MaxY < 5 {
		t.Fatalf("fit %+v does not contain the data bounds", vp)
	}
}

func TestRenderDimensions(t *testing.T) {
	d, colors := buildDataset(t,
		[]string{"Iteration", "Error:A", "Error:B"},
		[][]string{{"0", "1", ""}, {"1", "0.5", "2"}, {"2", "0.25", "1"}})
	series, bounds := Build(d, []string{"A", "B"}, colors, KindError)
	img, err := Render(series, FitViewport(bounds), RenderOptions{Width: 400, Height: 300, Theme: ThemeDark, Title: "t"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Fatalf("rendered %dx%d, want 400x300", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestRenderSingletonSegment(t *testing.T) {
	// A single isolated point must still render (as a dot, not a line).
	d, colors := buildDataset(t,
		[]string{"Iteration", "Error:A"},
		[][]string{{"0", "1"}, {"1", ""}, {"2", "0.5"}})
	series, bounds := Build(d, []string{"A"}, colors, KindError)
	if _, err := Render(series, FitViewport(bounds), RenderOptions{Width: 300, Height: 200}); err != nil {
		t.Fatalf("Render with singleton segment: %v", err)
	}
}

func TestBlank(t *testing.T) {
	img := Blank(120, 80, ThemeLight)
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
		t.Fatalf("blank %v", img.Bounds())
	}
}

func TestBuildHistogram(t *testing.T) {
	if got := BuildHistogram(nil, MaxHistogramBins); got != nil {
		t.Fatalf("empty input = %v, want nil", got)
	}

	// Identical values collapse to a single bucket.
	bins := BuildHistogram([]float64{2, 2, 2}, MaxHistogramBins)
	if len(bins) != 1 || bins[0].Count != 3 || bins[0].Low != 2 || bins[0].High != 2 {
		t.Fatalf("identical values = %+v", bins)
	}

	// Bin count shrinks to the number of values.
	bins = BuildHistogram([]float64{0, 1, 2}, MaxHistogramBins)
	if len(bins) != 3 {
		t.Fatalf("bin count = %d, want 3", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 3 {
		t.Fatalf("counts sum to %d, want 3", total)
	}
	if bins[len(bins)-1].High != 2 {
		t.Fatalf("last bin high = %v, want max", bins[len(bins)-1].High)
	}

	// The max value lands in the last bin, not past it.
	bins = BuildHistogram([]float64{0, 0.5, 1}, 2)
	if len(bins) != 2 || bins[0].Count != 1 || bins[1].Count != 2 {
		t.Fatalf("max value not counted in last bin: %+v", bins)
	}
}

func TestRenderHistogramEmpty(t *testing.T) {
	img, err := RenderHistogram(nil, RenderOptions{Width: 200, Height: 100, Theme: ThemeDark})
	if err != nil {
		t.Fatalf("RenderHistogram empty: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Fatalf("blank histogram size %v", img.Bounds())
	}
}

func TestRenderHistogram(t *testing.T) {
	bins := BuildHistogram([]float64{0.1, 0.2, 0.9, 1.5}, 4)
	img, err := RenderHistogram(bins, RenderOptions{Width: 500, Height: 300, Theme: ThemeLight, Title: "dist"})
	if err != nil {
		t.Fatalf("RenderHistogram: %v", err)
	}
	if img.Bounds().Dx() != 500 || img.Bounds().Dy() != 300 {
		t.Fatalf("rendered %v, want 500x300", img.Bounds())
	}
}
