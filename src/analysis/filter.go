// Package analysis computes derived views of a calibration dataset: the
// filtered/ranked variable selection and the convergence summary. It is
// consumed by both the desktop viewer and the headless report tool.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
)

// DefaultMaxVars caps the default selection so loading a report with
// thousands of variables does not plot them all at once.
const DefaultMaxVars = 20

// ParseTerms splits a comma-separated filter string into trimmed terms,
// dropping empties. The result feeds SelectVariables unchanged.
func ParseTerms(text string) []string {
	var out []string
	for _, t := range strings.Split(text, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// rank orders candidates for selection: variables with an error series first,
// by descending final absolute error; error-less variables after them, by
// descending final absolute value; name ascending breaks every tie so the
// ordering is deterministic across calls.
type rank struct {
	name     string
	hasError bool
	mag      float64
}

// SelectVariables returns up to maxVars variable names matching terms,
// ordered by how badly converged they are. Empty terms match every variable.
// Matching is case-insensitive substring with OR semantics across terms. A
// term matching nothing yields an empty result, not an error; maxVars < 1 is
// ErrInvalidArgument.
func SelectVariables(d *dataset.Dataset, terms []string, maxVars int) ([]string, error) {
	if maxVars < 1 {
		return nil, fmt.Errorf("%w: max-vars must be >= 1, got %d", dataset.ErrInvalidArgument, maxVars)
	}
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			lowered = append(lowered, t)
		}
	}
	var ranks []rank
	for _, name := range d.VariableNames() {
		if len(lowered) > 0 {
			ln := strings.ToLower(name)
			hit := false
			for _, t := range lowered {
				if strings.Contains(ln, t) {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
		}
		s, _ := d.Series(name)
		r := rank{name: name}
		if v, ok := s.LastPresentError(); ok {
			r.hasError = true
			r.mag = math.Abs(v)
		} else if v, ok := s.LastPresentValue(); ok {
			r.mag = math.Abs(v)
		}
		ranks = append(ranks, r)
	}
	sort.Slice(ranks, func(i, j int) bool {
		a, b := ranks[i], ranks[j]
		if a.hasError != b.hasError {
			return a.hasError
		}
		if a.mag != b.mag {
			return a.mag > b.mag
		}
		return a.name < b.name
	})
	if len(ranks) > maxVars {
		ranks = ranks[:maxVars]
	}
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.name
	}
	return out, nil
}
