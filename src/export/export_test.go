package export

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
	"github.com/JamesVaughan/visualize-calibration-report/src/viewstate"
)

func testSnapshot(t *testing.T, header []string, rows [][]string, selection []string) viewstate.Snapshot {
	t.Helper()
	d, err := dataset.Parse(header, rows)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := viewstate.New()
	s.LoadDataset(d, "/tmp/report.csv", selection)
	return s.Snapshot()
}

func TestPaneImageDimensions(t *testing.T) {
	snap := testSnapshot(t,
		[]string{"Iteration", "Error:A"},
		[][]string{{"0", "1"}, {"1", "0.5"}},
		[]string{"A"})
	img, err := PaneImage(snap, viewstate.PaneError, 640, 480)
	if err != nil {
		t.Fatalf("PaneImage: %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Fatalf("image %v, want 640x480", img.Bounds())
	}
}

func TestPaneImageEmptySelection(t *testing.T) {
	snap := testSnapshot(t,
		[]string{"Iteration", "Error:A"},
		[][]string{{"0", "1"}},
		nil)
	if _, err := PaneImage(snap, viewstate.PaneError, 100, 100); !errors.Is(err, dataset.ErrEmptySelection) {
		t.Fatalf("empty selection = %v, want ErrEmptySelection", err)
	}
}

func TestPaneImageWrongKindSelection(t *testing.T) {
	// Only a value-only variable is selected: the error pane has nothing to
	// plot, which is the empty-selection case too.
	snap := testSnapshot(t,
		[]string{"Iteration", "Value:V"},
		[][]string{{"0", "5"}},
		[]string{"V"})
	if _, err := PaneImage(snap, viewstate.PaneError, 100, 100); !errors.Is(err, dataset.ErrEmptySelection) {
		t.Fatalf("value-only on error pane = %v, want ErrEmptySelection", err)
	}
	if _, err := PaneImage(snap, viewstate.PaneValue, 100, 100); err != nil {
		t.Fatalf("value pane should render: %v", err)
	}
}

func TestPaneCSVRoundTrip(t *testing.T) {
	snap := testSnapshot(t,
		[]string{"Iteration", "Error:A", "Error:B"},
		[][]string{{"0", "-1", "2"}, {"1", "", "1"}, {"2", "0.25", "0.5"}},
		[]string{"A", "B"})
	b, err := PaneCSV(snap, viewstate.PaneError)
	if err != nil {
		t.Fatalf("PaneCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if lines[0] != "Iteration,Error:A,Error:B" {
		t.Fatalf("header = %q", lines[0])
	}
	// A's iteration-1 cell was absent and stays empty in the export.
	if lines[2] != "1,,1" {
		t.Fatalf("gap row = %q, want 1,,1", lines[2])
	}
	// Error magnitudes are exported as plotted: absolute.
	if lines[1] != "0,1,2" {
		t.Fatalf("first row = %q, want abs values", lines[1])
	}

	// The export reloads as a dataset with the same shape.
	d2, err := dataset.Load(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("reload exported CSV: %v", err)
	}
	if d2.Len() != 3 || d2.VariableCount() != 2 {
		t.Fatalf("reloaded %d iterations, %d variables", d2.Len(), d2.VariableCount())
	}
	a, _ := d2.Series("A")
	if dataset.Present(a.Error[1]) {
		t.Fatalf("gap did not survive the round trip")
	}
}

func TestPaneCSVValuePrefix(t *testing.T) {
	snap := testSnapshot(t,
		[]string{"Iteration", "Value:V"},
		[][]string{{"0", "5"}},
		[]string{"V"})
	b, err := PaneCSV(snap, viewstate.PaneValue)
	if err != nil {
		t.Fatalf("PaneCSV: %v", err)
	}
	if !strings.HasPrefix(string(b), "Iteration,Value:V") {
		t.Fatalf("value pane header = %q", strings.SplitN(string(b), "\n", 2)[0])
	}
}

func TestPaneCSVEmptySelection(t *testing.T) {
	snap := testSnapshot(t,
		[]string{"Iteration", "Error:A"},
		[][]string{{"0", "1"}},
		nil)
	if _, err := PaneCSV(snap, viewstate.PaneError); !errors.Is(err, dataset.ErrEmptySelection) {
		t.Fatalf("empty selection = %v, want ErrEmptySelection", err)
	}
}

func TestWritePaneImage(t *testing.T) {
	snap := testSnapshot(t,
		[]string{"Iteration", "Error:A"},
		[][]string{{"0", "1"}, {"1", "0.5"}},
		[]string{"A"})
	out := filepath.Join(t.TempDir(), "chart.png")
	if err := WritePaneImage(snap, viewstate.PaneError, 320, 240, out); err != nil {
		t.Fatalf("WritePaneImage: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open exported image: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode exported image: %v", err)
	}
	if img.Bounds().Dx() != 320 {
		t.Fatalf("exported width %d, want 320", img.Bounds().Dx())
	}
	// No temp files left behind by the atomic write.
	entries, err := os.ReadDir(filepath.Dir(out))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover files after export: %v", entries)
	}
}

func TestWritePaneCSV(t *testing.T) {
	snap := testSnapshot(t,
		[]string{"Iteration", "Error:A"},
		[][]string{{"0", "1"}},
		[]string{"A"})
	out := filepath.Join(t.TempDir(), "data.csv")
	if err := WritePaneCSV(snap, viewstate.PaneError, out); err != nil {
		t.Fatalf("WritePaneCSV: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(b), "Iteration,Error:A") {
		t.Fatalf("export content = %q", b)
	}
}

func TestFormatMagnitude(t *testing.T) {
	if FormatMagnitude(dataset.Absent()) != "" {
		t.Fatalf("absent should format empty")
	}
	if FormatMagnitude(0.25) != "0.25" {
		t.Fatalf("FormatMagnitude(0.25) = %q", FormatMagnitude(0.25))
	}
}
