package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/JamesVaughan/visualize-calibration-report/src/logging"
)

// Column header prefixes recognized during schema inference. Anything else
// (besides the Iteration column) is ignored, not an error.
const (
	ErrorPrefix = "Error:"
	ValuePrefix = "Value:"

	iterationHeader = "Iteration"
)

// Absent marks a cell that was empty in the source file. Aggregations must
// skip absent cells rather than treat them as zero.
func Absent() float64 { return math.NaN() }

// Present reports whether v holds a real cell value.
func Present(v float64) bool { return !math.IsNaN(v) }

// Series holds the error and value sequences of one variable, aligned with
// the dataset's iteration sequence. A variable may carry only one of the two
// (HasError/HasValue); slices for a missing kind stay nil.
type Series struct {
	Name     string
	HasError bool
	HasValue bool
	Error    []float64 // Absent() where the cell was empty
	Value    []float64
}

// LastPresentError returns the last present error cell, ok=false when the
// variable has no error series or every cell is absent.
func (s *Series) LastPresentError() (float64, bool) {
	return lastPresent(s.Error)
}

// LastPresentValue is the value-series counterpart of LastPresentError.
func (s *Series) LastPresentValue() (float64, bool) {
	return lastPresent(s.Value)
}

func lastPresent(seq []float64) (float64, bool) {
	for i := len(seq) - 1; i >= 0; i-- {
		if Present(seq[i]) {
			return seq[i], true
		}
	}
	return 0, false
}

// Dataset is the immutable snapshot of one loaded calibration report.
// Reloading a file produces a fresh Dataset; nothing mutates an existing one.
type Dataset struct {
	iterations []int
	vars       map[string]*Series
	names      []string // canonical sort order, drives color assignment
}

// Iterations returns the iteration sequence. Callers must not modify it.
func (d *Dataset) Iterations() []int { return d.iterations }

// Len returns the number of iterations.
func (d *Dataset) Len() int { return len(d.iterations) }

// VariableNames returns all variable names in canonical (lexicographic) order.
// Callers must not modify the returned slice.
func (d *Dataset) VariableNames() []string { return d.names }

// VariableCount returns the number of distinct variables.
func (d *Dataset) VariableCount() int { return len(d.names) }

// Series returns the series pair for a variable, ok=false for unknown names.
func (d *Dataset) Series(name string) (*Series, bool) {
	s, ok := d.vars[name]
	return s, ok
}

// column maps a header cell to a slot in the parsed table.
type column struct {
	name    string // base variable name, prefix stripped and trimmed
	isError bool
}

// Parse builds a Dataset from an already tokenized rectangular table. The
// header must contain exactly one Iteration column and at least one
// Error:/Value: column; empty cells are recorded as absent. All failures are
// ErrMalformedInput with the offending row/column named where feasible.
func Parse(header []string, rows [][]string) (*Dataset, error) {
	iterCol := -1
	cols := map[int]column{}
	for i, h := range header {
		t := strings.TrimSpace(h)
		switch {
		case t == iterationHeader:
			if iterCol >= 0 {
				return nil, fmt.Errorf("%w: duplicate Iteration column (columns %d and %d)", ErrMalformedInput, iterCol+1, i+1)
			}
			iterCol = i
		case strings.HasPrefix(t, ErrorPrefix):
			cols[i] = column{name: strings.TrimSpace(strings.TrimPrefix(t, ErrorPrefix)), isError: true}
		case strings.HasPrefix(t, ValuePrefix):
			cols[i] = column{name: strings.TrimSpace(strings.TrimPrefix(t, ValuePrefix))}
		default:
			// Unknown columns are skipped so reports can carry extra
			// bookkeeping columns without breaking the viewer.
			logging.Debugf("ignoring unrecognized column %q", t)
		}
	}
	if iterCol < 0 {
		return nil, fmt.Errorf("%w: header has no Iteration column", ErrMalformedInput)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: header has no Error:/Value: columns", ErrMalformedInput)
	}

	n := len(rows)
	vars := map[string]*Series{}
	series := func(name string) *Series {
		s, ok := vars[name]
		if !ok {
			s = &Series{Name: name}
			vars[name] = s
		}
		return s
	}
	for i, c := range cols {
		s := series(c.name)
		if c.isError {
			if s.HasError {
				return nil, fmt.Errorf("%w: duplicate column %q (column %d)", ErrMalformedInput, header[i], i+1)
			}
			s.HasError = true
		} else {
			if s.HasValue {
				return nil, fmt.Errorf("%w: duplicate column %q (column %d)", ErrMalformedInput, header[i], i+1)
			}
			s.HasValue = true
		}
	}
	for _, s := range vars {
		if s.HasError {
			s.Error = make([]float64, n)
		}
		if s.HasValue {
			s.Value = make([]float64, n)
		}
	}

	iterations := make([]int, 0, n)
	for r, row := range rows {
		// Row numbers in messages are 1-based and count the header.
		line := r + 2
		if len(row) != len(header) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrMalformedInput, line, len(row), len(header))
		}
		it, err := strconv.Atoi(strings.TrimSpace(row[iterCol]))
		if err != nil || it < 0 {
			return nil, fmt.Errorf("%w: row %d: bad iteration %q", ErrMalformedInput, line, row[iterCol])
		}
		if r > 0 && it <= iterations[r-1] {
			return nil, fmt.Errorf("%w: row %d: iteration %d not increasing (previous %d)", ErrMalformedInput, line, it, iterations[r-1])
		}
		iterations = append(iterations, it)
		for ci, c := range cols {
			cell := strings.TrimSpace(row[ci])
			v := Absent()
			if cell != "" {
				v, err = strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: row %d column %q: non-numeric cell %q", ErrMalformedInput, line, header[ci], cell)
				}
			}
			s := vars[c.name]
			if c.isError {
				s.Error[r] = v
			} else {
				s.Value[r] = v
			}
		}
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Dataset{iterations: iterations, vars: vars, names: names}, nil
}

// Load reads a calibration CSV from r and parses it. The reader is consumed
// fully before parsing so a failed parse never exposes a partial dataset.
func Load(r io.Reader) (*Dataset, error) {
	return LoadContext(context.Background(), r, nil)
}

// LoadContext is Load with cancellation and optional progress reporting for
// large files. progress (may be nil) receives the running row count roughly
// every thousand rows, mirroring the progress feedback of the original tool.
func LoadContext(ctx context.Context, r io.Reader, progress func(rows int)) (*Dataset, error) {
	defer logging.TimeTrack(time.Now(), "dataset load")
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are reported by Parse with row numbers
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		rows = append(rows, rec)
		if len(rows)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if progress != nil {
				progress(len(rows))
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := Parse(header, rows)
	if err != nil {
		return nil, err
	}
	logging.Infof("loaded %d iterations, %d variables", d.Len(), d.VariableCount())
	return d, nil
}

// LoadFile opens and loads path. A missing or unreadable file is
// ErrMissingResource; everything inside the file is ErrMalformedInput.
func LoadFile(path string) (*Dataset, error) {
	return LoadFileContext(context.Background(), path, nil)
}

// LoadFileContext is LoadFile with cancellation and progress reporting.
func LoadFileContext(ctx context.Context, path string, progress func(rows int)) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingResource, path, err)
	}
	defer f.Close()
	d, err := LoadContext(ctx, f, progress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
