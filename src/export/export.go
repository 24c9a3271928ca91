// Package export serializes the current view as a PNG image or as raw CSV.
// Both operate on a viewstate snapshot so a consistent selection, transform
// and theme are observed, and both write output files atomically so a failed
// render never leaves a partial artifact behind.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image"
	png "image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
	"github.com/JamesVaughan/visualize-calibration-report/src/logging"
	"github.com/JamesVaughan/visualize-calibration-report/src/plot"
	"github.com/JamesVaughan/visualize-calibration-report/src/viewstate"
)

// Default export resolution, independent of the on-screen window size.
const (
	DefaultWidth  = 1600
	DefaultHeight = 1200
)

// PaneImage renders the pane exactly as currently viewed (selection, pan/zoom
// window, theme) at the requested fixed resolution. ErrEmptySelection when
// nothing is plotted for the pane.
func PaneImage(snap viewstate.Snapshot, pane viewstate.Pane, width, height int) (image.Image, error) {
	series, vp, err := paneData(snap, pane)
	if err != nil {
		return nil, err
	}
	return plot.Render(series, vp, plot.RenderOptions{
		Width:      width,
		Height:     height,
		Theme:      snap.Theme,
		Title:      pane.Title(),
		YLabel:     pane.YLabel(),
		Annotation: filepath.Base(snap.Path),
	})
}

// WritePaneImage renders the pane and writes it as PNG to path.
func WritePaneImage(snap viewstate.Snapshot, pane viewstate.Pane, width, height int, path string) error {
	img, err := PaneImage(snap, pane, width, height)
	if err != nil {
		return err
	}
	if err := WritePNG(img, path); err != nil {
		return err
	}
	logging.Infof("exported %s pane to %s", pane, path)
	return nil
}

// PaneCSV serializes the currently plotted points of the pane: one Iteration
// column plus one column per selected variable carrying the pane's series
// kind, in the dataset's iteration order. Cells are the data values
// (pre-transform); absent cells stay empty, so reloading the output
// reproduces the same points. ErrEmptySelection when nothing is plotted.
func PaneCSV(snap viewstate.Snapshot, pane viewstate.Pane) ([]byte, error) {
	series, _, err := paneData(snap, pane)
	if err != nil {
		return nil, err
	}
	prefix := dataset.ErrorPrefix
	if pane == viewstate.PaneValue {
		prefix = dataset.ValuePrefix
	}
	// Index plotted points by iteration per variable; gaps stay empty cells.
	cols := make([]map[int]float64, len(series))
	for i, s := range series {
		cols[i] = make(map[int]float64, len(s.Points))
		for _, p := range s.Points {
			cols[i][p.Iteration] = p.Magnitude
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := make([]string, 0, len(series)+1)
	header = append(header, "Iteration")
	for _, s := range series {
		header = append(header, prefix+s.Name)
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(header))
	for _, it := range snap.Dataset.Iterations() {
		row[0] = strconv.Itoa(it)
		for i := range series {
			if v, ok := cols[i][it]; ok {
				row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
			} else {
				row[i+1] = ""
			}
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePaneCSV serializes the pane and writes the CSV to path.
func WritePaneCSV(snap viewstate.Snapshot, pane viewstate.Pane, path string) error {
	b, err := PaneCSV(snap, pane)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, b); err != nil {
		return err
	}
	logging.Infof("exported %s pane CSV to %s", pane, path)
	return nil
}

// paneData rebuilds the pane's plotted series and current viewport from the
// snapshot, enforcing the empty-selection rule. Note the error-pane export of
// a selection holding only value-only variables is empty too: nothing is
// plotted there.
func paneData(snap viewstate.Snapshot, pane viewstate.Pane) ([]plot.Series, plot.Viewport, error) {
	if snap.Dataset == nil || len(snap.Selection) == 0 {
		return nil, plot.Viewport{}, fmt.Errorf("%w: nothing selected", dataset.ErrEmptySelection)
	}
	series, vp := snap.BuildPane(pane)
	if len(series) == 0 {
		return nil, plot.Viewport{}, fmt.Errorf("%w: no selected variable has %s data", dataset.ErrEmptySelection, pane.Kind())
	}
	return series, vp, nil
}

// WritePNG encodes img and writes it to path atomically (temp file + rename
// within the target directory).
func WritePNG(img image.Image, path string) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("png encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic writes via a temp file in the destination directory and
// renames into place, so readers never observe partial output.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", dataset.ErrMissingResource, dir, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// FormatMagnitude renders a plotted magnitude the way the CSV does; exposed
// for UI tooltips so both show identical values.
func FormatMagnitude(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
