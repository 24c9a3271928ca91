package analysis

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
)

// DefaultTopN is the length of the worst-variables ranking in a summary.
const DefaultTopN = 10

// VariableFinal pairs a variable with the absolute value of the last present
// cell of its error series.
type VariableFinal struct {
	Name          string
	FinalAbsError float64
}

// Summary aggregates convergence statistics for one dataset. It is always
// recomputed from the dataset, never cached or persisted.
type Summary struct {
	Iterations int
	Variables  int
	// Top lists the worst-converged variables (by final absolute error,
	// descending, names ascending on ties). Variables without an error
	// series never appear here.
	Top []VariableFinal
	// TotalErrorFirst/Last sum |error| over all variables with a present
	// cell at the first/last iteration. Absent cells are skipped.
	TotalErrorFirst float64
	TotalErrorLast  float64
	// ImprovementPct is (first-last)/first*100. When the first total is 0 it
	// is 0 if the last total is also 0 and NaN (undefined) otherwise.
	ImprovementPct float64
}

// Summarize computes the convergence summary with a top list of up to topN
// entries. topN < 1 is ErrInvalidArgument.
func Summarize(d *dataset.Dataset, topN int) (Summary, error) {
	if topN < 1 {
		return Summary{}, fmt.Errorf("%w: top-n must be >= 1, got %d", dataset.ErrInvalidArgument, topN)
	}
	s := Summary{Iterations: d.Len(), Variables: d.VariableCount()}
	var finals []VariableFinal
	for _, name := range d.VariableNames() {
		sr, _ := d.Series(name)
		if v, ok := sr.LastPresentError(); ok {
			finals = append(finals, VariableFinal{Name: name, FinalAbsError: math.Abs(v)})
		}
	}
	sort.Slice(finals, func(i, j int) bool {
		if finals[i].FinalAbsError != finals[j].FinalAbsError {
			return finals[i].FinalAbsError > finals[j].FinalAbsError
		}
		return finals[i].Name < finals[j].Name
	})
	if len(finals) > topN {
		finals = finals[:topN]
	}
	s.Top = finals

	if d.Len() > 0 {
		s.TotalErrorFirst = totalAbsErrorAt(d, 0)
		s.TotalErrorLast = totalAbsErrorAt(d, d.Len()-1)
	}
	switch {
	case s.TotalErrorFirst != 0:
		s.ImprovementPct = (s.TotalErrorFirst - s.TotalErrorLast) / s.TotalErrorFirst * 100
	case s.TotalErrorLast == 0:
		s.ImprovementPct = 0
	default:
		s.ImprovementPct = math.NaN()
	}
	return s, nil
}

// totalAbsErrorAt sums |error| across variables with a present error cell at
// iteration index i.
func totalAbsErrorAt(d *dataset.Dataset, i int) float64 {
	var total float64
	for _, name := range d.VariableNames() {
		s, _ := d.Series(name)
		if !s.HasError || i >= len(s.Error) {
			continue
		}
		if v := s.Error[i]; dataset.Present(v) {
			total += math.Abs(v)
		}
	}
	return total
}

// FinalAbsErrors returns the final absolute error of every error-bearing
// variable, unsorted. Used by the error-distribution histogram.
func FinalAbsErrors(d *dataset.Dataset) []float64 {
	var out []float64
	for _, name := range d.VariableNames() {
		s, _ := d.Series(name)
		if v, ok := s.LastPresentError(); ok {
			out = append(out, math.Abs(v))
		}
	}
	return out
}

// WriteText renders the summary in the plain console format the summary
// command prints.
func (s Summary) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Iterations:         %d\n", s.Iterations)
	fmt.Fprintf(w, "Variables:          %d\n", s.Variables)
	fmt.Fprintf(w, "Total |error| at first iteration: %.6g\n", s.TotalErrorFirst)
	fmt.Fprintf(w, "Total |error| at last iteration:  %.6g\n", s.TotalErrorLast)
	if math.IsNaN(s.ImprovementPct) {
		fmt.Fprintf(w, "Improvement:        undefined (started at zero error)\n")
	} else {
		fmt.Fprintf(w, "Improvement:        %.2f%%\n", s.ImprovementPct)
	}
	if len(s.Top) > 0 {
		fmt.Fprintf(w, "Worst variables by final |error|:\n")
		for i, vf := range s.Top {
			fmt.Fprintf(w, "  %2d. %-40s %.6g\n", i+1, vf.Name, vf.FinalAbsError)
		}
	}
}
