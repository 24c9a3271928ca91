package viewstate

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
	"github.com/JamesVaughan/visualize-calibration-report/src/plot"
)

func testDataset(t *testing.T, header []string, rows [][]string) *dataset.Dataset {
	t.Helper()
	d, err := dataset.Parse(header, rows)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}

func simpleDataset(t *testing.T) *dataset.Dataset {
	return testDataset(t,
		[]string{"Iteration", "Error:A", "Value:A", "Error:B"},
		[][]string{{"0", "1", "10", "2"}, {"1", "0.5", "11", "1"}, {"2", "0.25", "12", "0.5"}})
}

func TestPhaseTransitions(t *testing.T) {
	s := New()
	if s.Phase() != Empty {
		t.Fatalf("new state phase = %v, want Empty", s.Phase())
	}
	s.LoadDataset(simpleDataset(t), "r.csv", []string{"A"})
	if s.Phase() != Loaded {
		t.Fatalf("phase after load = %v, want Loaded", s.Phase())
	}
	if err := s.ToggleVariable("B"); err != nil {
		t.Fatalf("ToggleVariable: %v", err)
	}
	if s.Phase() != Interacting {
		t.Fatalf("phase after toggle = %v, want Interacting", s.Phase())
	}
	// A reload goes back to Loaded from any phase.
	s.LoadDataset(simpleDataset(t), "r.csv", nil)
	if s.Phase() != Loaded {
		t.Fatalf("phase after reload = %v, want Loaded", s.Phase())
	}
}

func TestLoadDatasetDropsStaleSelection(t *testing.T) {
	s := New()
	s.LoadDataset(simpleDataset(t), "r.csv", []string{"A", "B"})
	other := testDataset(t, []string{"Iteration", "Error:C"}, [][]string{{"0", "1"}})
	s.LoadDataset(other, "other.csv", []string{"A", "C"})
	// A belongs to the previous dataset; only C survives.
	if got := s.Selection(); !reflect.DeepEqual(got, []string{"C"}) {
		t.Fatalf("selection after reload = %v, want [C]", got)
	}
	if s.IsSelected("A") {
		t.Fatalf("stale name still selected")
	}
}

func TestToggleVariable(t *testing.T) {
	s := New()
	s.LoadDataset(simpleDataset(t), "r.csv", []string{"A"})
	if err := s.ToggleVariable("ghost"); !errors.Is(err, dataset.ErrInvalidArgument) {
		t.Fatalf("toggle unknown = %v, want ErrInvalidArgument", err)
	}
	if err := s.ToggleVariable("A"); err != nil {
		t.Fatalf("ToggleVariable: %v", err)
	}
	if len(s.Selection()) != 0 {
		t.Fatalf("selection after deselect = %v", s.Selection())
	}
	if err := s.ToggleVariable("B"); err != nil {
		t.Fatalf("ToggleVariable: %v", err)
	}
	if got := s.Selection(); !reflect.DeepEqual(got, []string{"B"}) {
		t.Fatalf("selection = %v, want [B]", got)
	}
}

func TestSelectionChangeResetsTransforms(t *testing.T) {
	s := New()
	s.LoadDataset(simpleDataset(t), "r.csv", []string{"A"})
	s.Pan(PaneError, 1, 1)
	s.Zoom(PaneValue, 2, 1, 11)
	if s.PaneTransform(PaneError).IsIdentity() || s.PaneTransform(PaneValue).IsIdentity() {
		t.Fatalf("transforms unexpectedly identity after pan/zoom")
	}
	if err := s.ToggleVariable("B"); err != nil {
		t.Fatalf("ToggleVariable: %v", err)
	}
	if !s.PaneTransform(PaneError).IsIdentity() || !s.PaneTransform(PaneValue).IsIdentity() {
		t.Fatalf("selection change did not reset transforms")
	}
}

func TestPanMovesViewport(t *testing.T) {
	s := New()
	s.LoadDataset(simpleDataset(t), "r.csv", []string{"A"})
	before := s.PaneViewport(PaneError)
	s.Pan(PaneError, 3, -0.5)
	after := s.PaneViewport(PaneError)
	if math.Abs((after.MinX-before.MinX)-3) > 1e-9 || math.Abs((after.MinY-before.MinY)+0.5) > 1e-9 {
		t.Fatalf("pan moved viewport %+v -> %+v", before, after)
	}
	// Pan never touches the other pane.
	if s.PaneTransform(PaneValue) != Identity() {
		t.Fatalf("pan leaked into the value pane")
	}
}

func TestZoomShrinksViewport(t *testing.T) {
	s := New()
	s.LoadDataset(simpleDataset(t), "r.csv", []string{"A"})
	before := s.PaneViewport(PaneError)
	cx := (before.MinX + before.MaxX) / 2
	cy := (before.MinY + before.MaxY) / 2
	s.Zoom(PaneError, 2, cx, cy)
	after := s.PaneViewport(PaneError)
	wantW := (before.MaxX - before.MinX) / 2
	if math.Abs((after.MaxX-after.MinX)-wantW) > 1e-9 {
		t.Fatalf("zoom x2 width = %v, want %v", after.MaxX-after.MinX, wantW)
	}
	// Zooming at the center keeps the center.
	if math.Abs((after.MinX+after.MaxX)/2-cx) > 1e-9 {
		t.Fatalf("center moved under centered zoom")
	}
}

func TestResetView(t *testing.T) {
	s := New()
	s.LoadDataset(simpleDataset(t), "r.csv", []string{"A"})
	fit := s.PaneViewport(PaneError)
	s.Pan(PaneError, 5, 5)
	s.Zoom(PaneError, 3, 0, 0)
	s.ResetView(PaneError)
	if got := s.PaneViewport(PaneError); got != fit {
		t.Fatalf("reset viewport = %+v, want fit %+v", got, fit)
	}
}

func TestPaneSeriesKinds(t *testing.T) {
	s := New()
	s.LoadDataset(simpleDataset(t), "r.csv", []string{"A", "B"})
	errSeries := s.PaneSeries(PaneError)
	valSeries := s.PaneSeries(PaneValue)
	if len(errSeries) != 2 {
		t.Fatalf("error pane series = %d, want 2", len(errSeries))
	}
	// B has no value series.
	if len(valSeries) != 1 || valSeries[0].Name != "A" {
		t.Fatalf("value pane series = %+v, want just A", valSeries)
	}
}

func TestSnapshotBuildPane(t *testing.T) {
	s := New()
	s.LoadDataset(simpleDataset(t), "r.csv", []string{"A"})
	s.Zoom(PaneError, 2, 1, 0.5)
	snap := s.Snapshot()
	series, vp := snap.BuildPane(PaneError)
	if len(series) != len(s.PaneSeries(PaneError)) {
		t.Fatalf("snapshot series = %d, want %d", len(series), len(s.PaneSeries(PaneError)))
	}
	if vp != s.PaneViewport(PaneError) {
		t.Fatalf("snapshot viewport %+v != live viewport %+v", vp, s.PaneViewport(PaneError))
	}
	// Mutating the live state afterwards does not disturb the snapshot.
	s.ClearSelection()
	series2, _ := snap.BuildPane(PaneError)
	if len(series2) != len(series) {
		t.Fatalf("snapshot changed after live mutation")
	}
}

func TestSnapshotEmpty(t *testing.T) {
	snap := New().Snapshot()
	series, vp := snap.BuildPane(PaneValue)
	if series != nil {
		t.Fatalf("empty snapshot series = %v", series)
	}
	if vp.MaxX <= vp.MinX {
		t.Fatalf("empty snapshot viewport degenerate: %+v", vp)
	}
}

func TestTransformApplyIdentity(t *testing.T) {
	fit := plot.Viewport{MinX: 0, MaxX: 10, MinY: -1, MaxY: 1}
	if got := Identity().Apply(fit); got != fit {
		t.Fatalf("identity apply = %+v, want fit", got)
	}
}

func TestTransformZoomAnchor(t *testing.T) {
	fit := plot.Viewport{MinX: 0, MaxX: 100, MinY: 0, MaxY: 10}
	tr := Identity()
	anchorX, anchorY := 25.0, 2.5
	before := tr.Apply(fit)
	relX := (anchorX - before.MinX) / (before.MaxX - before.MinX)
	relY := (anchorY - before.MinY) / (before.MaxY - before.MinY)
	tr.ZoomAt(4, anchorX, anchorY, fit)
	after := tr.Apply(fit)
	gotRelX := (anchorX - after.MinX) / (after.MaxX - after.MinX)
	gotRelY := (anchorY - after.MinY) / (after.MaxY - after.MinY)
	if math.Abs(gotRelX-relX) > 1e-9 || math.Abs(gotRelY-relY) > 1e-9 {
		t.Fatalf("anchor drifted: rel (%v,%v) -> (%v,%v)", relX, relY, gotRelX, gotRelY)
	}
}

func TestTransformZoomClamp(t *testing.T) {
	fit := plot.Viewport{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}
	tr := Identity()
	tr.ZoomAt(1e9, 0.5, 0.5, fit)
	if tr.ZoomX != maxZoom || tr.ZoomY != maxZoom {
		t.Fatalf("zoom not clamped: %+v", tr)
	}
	tr = Identity()
	tr.ZoomAt(1e-9, 0.5, 0.5, fit)
	if tr.ZoomX != minZoom || tr.ZoomY != minZoom {
		t.Fatalf("zoom-out not clamped: %+v", tr)
	}
}
