// Package viewstate holds the interactive session state: which variables are
// selected, how each plot pane is panned and zoomed, and which theme is
// active. All mutation happens on the UI thread through the explicit action
// methods; rendering and export consume snapshots.
package viewstate

import (
	"fmt"

	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
	"github.com/JamesVaughan/visualize-calibration-report/src/plot"
)

// Phase is the coarse lifecycle of a session.
type Phase int

const (
	// Empty: no dataset loaded yet.
	Empty Phase = iota
	// Loaded: dataset present with its default selection and fit transforms.
	Loaded
	// Interacting: the user has modified selection or view since load.
	Interacting
)

// Pane identifies one of the two plot panes.
type Pane int

const (
	PaneError Pane = iota
	PaneValue
)

// Kind maps the pane to the series kind it plots.
func (p Pane) Kind() plot.Kind {
	if p == PaneValue {
		return plot.KindValue
	}
	return plot.KindError
}

func (p Pane) String() string {
	if p == PaneValue {
		return "value"
	}
	return "error"
}

// Title returns the pane's chart heading.
func (p Pane) Title() string {
	if p == PaneValue {
		return "Value Evolution"
	}
	return "Error Convergence"
}

// YLabel returns the pane's Y-axis label.
func (p Pane) YLabel() string {
	if p == PaneValue {
		return "Value"
	}
	return "Absolute Error"
}

type paneState struct {
	series    []plot.Series
	fit       plot.Viewport
	transform Transform
}

// State is the per-session view state machine. Not safe for concurrent use;
// the update model is single-threaded by design.
type State struct {
	phase    Phase
	ds       *dataset.Dataset
	colors   *dataset.ColorAssignment
	path     string
	selected map[string]bool
	order    []string
	panes    [2]paneState
	theme    plot.Theme
}

// New returns an Empty session with the dark theme, matching the viewer's
// startup default.
func New() *State {
	return &State{selected: map[string]bool{}, theme: plot.ThemeDark}
}

// Phase returns the current lifecycle phase.
func (s *State) Phase() Phase { return s.phase }

// Dataset returns the active dataset, nil while Empty.
func (s *State) Dataset() *dataset.Dataset { return s.ds }

// Colors returns the color assignment of the active dataset.
func (s *State) Colors() *dataset.ColorAssignment { return s.colors }

// Path returns the file path the active dataset was loaded from.
func (s *State) Path() string { return s.path }

// Theme returns the active theme.
func (s *State) Theme() plot.Theme { return s.theme }

// SetTheme switches the chart theme. Selection and transforms are untouched;
// color assignment is hue-stable across themes so re-render is enough.
func (s *State) SetTheme(t plot.Theme) { s.theme = t }

// LoadDataset installs a freshly parsed dataset, replacing any prior one.
// Selection from a previous dataset is discarded entirely (stale names never
// survive a load), the default selection is applied and both panes reset to
// fit. Valid from every phase.
func (s *State) LoadDataset(d *dataset.Dataset, path string, defaultSelection []string) {
	s.ds = d
	s.colors = dataset.AssignColors(d)
	s.path = path
	s.selected = map[string]bool{}
	s.order = nil
	for _, name := range defaultSelection {
		if _, ok := d.Series(name); !ok {
			continue
		}
		if !s.selected[name] {
			s.selected[name] = true
			s.order = append(s.order, name)
		}
	}
	s.phase = Loaded
	s.resetTransforms()
	s.rebuild()
}

// Selection returns the selected names in selection order (a copy).
func (s *State) Selection() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// IsSelected reports whether name is currently selected.
func (s *State) IsSelected(name string) bool { return s.selected[name] }

// ToggleVariable flips one variable's membership. Unknown names are
// ErrInvalidArgument. Any selection change resets both panes to fit.
func (s *State) ToggleVariable(name string) error {
	if s.ds == nil {
		return fmt.Errorf("%w: no dataset loaded", dataset.ErrInvalidArgument)
	}
	if _, ok := s.ds.Series(name); !ok {
		return fmt.Errorf("%w: unknown variable %q", dataset.ErrInvalidArgument, name)
	}
	if s.selected[name] {
		delete(s.selected, name)
		for i, n := range s.order {
			if n == name {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	} else {
		s.selected[name] = true
		s.order = append(s.order, name)
	}
	s.phase = Interacting
	s.resetTransforms()
	s.rebuild()
	return nil
}

// SelectAll replaces the selection with names (typically the current filter
// result), keeping their order. Names not in the dataset are dropped.
func (s *State) SelectAll(names []string) {
	if s.ds == nil {
		return
	}
	s.selected = map[string]bool{}
	s.order = nil
	for _, name := range names {
		if _, ok := s.ds.Series(name); !ok {
			continue
		}
		if !s.selected[name] {
			s.selected[name] = true
			s.order = append(s.order, name)
		}
	}
	s.phase = Interacting
	s.resetTransforms()
	s.rebuild()
}

// ClearSelection empties the selection.
func (s *State) ClearSelection() {
	if s.ds == nil {
		return
	}
	s.selected = map[string]bool{}
	s.order = nil
	s.phase = Interacting
	s.resetTransforms()
	s.rebuild()
}

// Pan shifts one pane's viewport by (dx, dy) in data units. Selection is
// unchanged.
func (s *State) Pan(p Pane, dx, dy float64) {
	if s.ds == nil {
		return
	}
	s.panes[p].transform.Pan(dx, dy)
	s.phase = Interacting
}

// Zoom scales one pane's viewport by factor around the anchor point given in
// data coordinates. factor > 1 zooms in.
func (s *State) Zoom(p Pane, factor, anchorX, anchorY float64) {
	if s.ds == nil || factor <= 0 {
		return
	}
	s.panes[p].transform.ZoomAt(factor, anchorX, anchorY, s.panes[p].fit)
	s.phase = Interacting
}

// ResetView restores the fit-to-selection viewport of one pane.
func (s *State) ResetView(p Pane) {
	s.panes[p].transform = Identity()
	if s.phase == Loaded {
		return
	}
	s.phase = Interacting
}

// PaneSeries returns the plottable series of a pane in selection order.
func (s *State) PaneSeries(p Pane) []plot.Series { return s.panes[p].series }

// PaneViewport returns the pane's current visible window: the fit viewport
// with the pan/zoom transform applied.
func (s *State) PaneViewport(p Pane) plot.Viewport {
	return s.panes[p].transform.Apply(s.panes[p].fit)
}

// PaneTransform returns the pane's current transform.
func (s *State) PaneTransform(p Pane) Transform { return s.panes[p].transform }

func (s *State) resetTransforms() {
	s.panes[PaneError].transform = Identity()
	s.panes[PaneValue].transform = Identity()
}

// rebuild recomputes per-pane series and fit viewports after any selection
// or dataset change.
func (s *State) rebuild() {
	for _, p := range []Pane{PaneError, PaneValue} {
		if s.ds == nil {
			s.panes[p] = paneState{transform: Identity()}
			continue
		}
		series, bounds := plot.Build(s.ds, s.order, s.colors, p.Kind())
		s.panes[p].series = series
		s.panes[p].fit = plot.FitViewport(bounds)
	}
}

// Snapshot captures everything an export needs so it observes a consistent
// view even if the session keeps mutating afterwards. The dataset pointer is
// shared (datasets are immutable).
type Snapshot struct {
	Dataset    *dataset.Dataset
	Colors     *dataset.ColorAssignment
	Path       string
	Selection  []string
	Theme      plot.Theme
	Transforms [2]Transform
}

// Snapshot returns a copy of the current view state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Dataset:    s.ds,
		Colors:     s.colors,
		Path:       s.path,
		Selection:  s.Selection(),
		Theme:      s.theme,
		Transforms: [2]Transform{s.panes[PaneError].transform, s.panes[PaneValue].transform},
	}
}

// BuildPane rebuilds a pane's series and current viewport from the snapshot.
func (snap Snapshot) BuildPane(p Pane) ([]plot.Series, plot.Viewport) {
	if snap.Dataset == nil {
		return nil, plot.FitViewport(plot.Bounds{})
	}
	series, bounds := plot.Build(snap.Dataset, snap.Selection, snap.Colors, p.Kind())
	fit := plot.FitViewport(bounds)
	return series, snap.Transforms[p].Apply(fit)
}
