package analysis

import (
	"errors"
	"reflect"
	"testing"

	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
)

// buildDataset assembles a dataset from per-variable error/value final cells.
// An empty column spec means the variable lacks that series entirely.
func buildDataset(t *testing.T, header []string, rows [][]string) *dataset.Dataset {
	t.Helper()
	d, err := dataset.Parse(header, rows)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}

func TestParseTerms(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"zone", []string{"zone"}},
		{"zone, Income ,", []string{"zone", "Income"}},
	}
	for _, tc := range cases {
		if got := ParseTerms(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseTerms(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSelectVariablesRanking(t *testing.T) {
	d := buildDataset(t,
		[]string{"Iteration", "Error:small", "Error:big", "Error:negBig", "Value:valueOnly"},
		[][]string{
			{"0", "1", "1", "1", "1"},
			{"1", "0.1", "5", "-9", "50"},
		})
	got, err := SelectVariables(d, nil, 10)
	if err != nil {
		t.Fatalf("SelectVariables: %v", err)
	}
	// Error-bearing variables first by |final error| descending, then the
	// value-only variable by |final value|.
	want := []string{"negBig", "big", "small", "valueOnly"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranking = %v, want %v", got, want)
	}
}

func TestSelectVariablesFilter(t *testing.T) {
	d := buildDataset(t,
		[]string{"Iteration", "Error:Zone1_Pop", "Error:Zone2_Pop", "Error:Income"},
		[][]string{{"0", "1", "2", "3"}})

	got, err := SelectVariables(d, []string{"zone"}, 10)
	if err != nil {
		t.Fatalf("SelectVariables: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Zone2_Pop", "Zone1_Pop"}) {
		t.Fatalf("case-insensitive match = %v", got)
	}

	// OR semantics across terms.
	got, err = SelectVariables(d, []string{"income", "zone1"}, 10)
	if err != nil {
		t.Fatalf("SelectVariables: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Income", "Zone1_Pop"}) {
		t.Fatalf("OR match = %v", got)
	}

	// A term matching nothing is an empty result, not an error.
	got, err = SelectVariables(d, []string{"nope"}, 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("no-match = %v, %v; want empty, nil", got, err)
	}
}

func TestSelectVariablesCap(t *testing.T) {
	d := buildDataset(t,
		[]string{"Iteration", "Error:a", "Error:b", "Error:c"},
		[][]string{{"0", "3", "2", "1"}})
	got, err := SelectVariables(d, nil, 2)
	if err != nil {
		t.Fatalf("SelectVariables: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("capped selection = %v, want worst two", got)
	}
}

func TestSelectVariablesBadCap(t *testing.T) {
	d := buildDataset(t, []string{"Iteration", "Error:a"}, [][]string{{"0", "1"}})
	if _, err := SelectVariables(d, nil, 0); !errors.Is(err, dataset.ErrInvalidArgument) {
		t.Fatalf("max-vars 0 = %v, want ErrInvalidArgument", err)
	}
}

func TestSelectVariablesTieBreak(t *testing.T) {
	d := buildDataset(t,
		[]string{"Iteration", "Error:b", "Error:a"},
		[][]string{{"0", "1", "1"}})
	got, err := SelectVariables(d, nil, 10)
	if err != nil {
		t.Fatalf("SelectVariables: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("tie break = %v, want name ascending", got)
	}
}
