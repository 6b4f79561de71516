package transformer

import (
	"errors"
	"testing"

	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

func TestImputerStrategies(t *testing.T) {
	data := table.MustNew(
		table.MustValues("x", 1, 2, 2, 9, nil),
		table.MustValues("c", "b", "a", "b", nil, "a"),
		table.MustValues("full", 1, 1, 1, 1, 1),
	)

	tests := []struct {
		name     string
		config   ImputerConfig
		wantX    interface{}
		wantC    interface{}
		cFitted  bool
		wantCols []string
	}{
		{"mean", ImputerConfig{Strategy: StrategyMean}, 3.5, nil, false, []string{"x"}},
		{"median", ImputerConfig{Strategy: StrategyMedian}, 2.0, nil, false, []string{"x"}},
		{"mode ties resolve to smallest", ImputerConfig{Strategy: StrategyMode}, 2.0, "a", true, []string{"x", "c"}},
		{"constant number", ImputerConfig{Strategy: StrategyConstant, FillValue: 0}, 0.0, "0", true, []string{"x", "c"}},
		{"constant string", ImputerConfig{Strategy: StrategyConstant, FillValue: "unknown"}, nil, "unknown", true, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp, err := NewImputerFromConfig(tt.config)
			if err != nil {
				t.Fatalf("NewImputerFromConfig() error = %v", err)
			}
			out, err := imp.FitTransform(data, nil)
			if err != nil {
				t.Fatalf("FitTransform() error = %v", err)
			}

			fills := imp.FillValues()
			if len(fills) != len(tt.wantCols) {
				t.Errorf("FillValues() = %v, want columns %v", fills, tt.wantCols)
			}
			if tt.wantX != nil && fills["x"] != tt.wantX {
				t.Errorf("fill x = %v, want %v", fills["x"], tt.wantX)
			}
			if tt.cFitted && fills["c"] != tt.wantC {
				t.Errorf("fill c = %v, want %v", fills["c"], tt.wantC)
			}
			if _, ok := fills["full"]; ok {
				t.Error("column without missing values should not be fitted")
			}

			for _, name := range tt.wantCols {
				col, _ := out.Column(name)
				if col.MissingCount() != 0 {
					t.Errorf("column %s still has %d missing values", name, col.MissingCount())
				}
			}
		})
	}
}

func TestImputerDrop(t *testing.T) {
	data := ageCity()
	imp, _ := NewImputer(StrategyDrop)
	events, fn := recorder()
	imp.SetLogging("drop", fn)

	out, err := imp.FitTransform(data, nil)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	if out.NumRows() != len(data.CompleteRows()) {
		t.Errorf("NumRows() = %d, want %d", out.NumRows(), len(data.CompleteRows()))
	}
	if got := (*events)[1].payload.Details["rows_dropped"]; got != 2 {
		t.Errorf("rows_dropped = %v, want 2", got)
	}

	// Evaluated at transform time, not fit time.
	later := table.MustNew(table.MustValues("age", nil, nil, 1))
	out, err = imp.Transform(later)
	if err != nil {
		t.Fatal(err)
	}
	if out.NumRows() != 1 {
		t.Errorf("NumRows() = %d, want 1", out.NumRows())
	}
}

func TestImputerModeOnEmptyColumn(t *testing.T) {
	imp, _ := NewImputer(StrategyMode)
	data := table.MustNew(table.NewCategorical("c", []string{"", ""}, []bool{true, true}))
	err := imp.Fit(data, nil)
	if !errors.Is(err, errhandling.ErrData) {
		t.Errorf("Fit() error = %v, want ErrData", err)
	}
	if imp.IsFitted() {
		t.Error("failed fit should leave the imputer unfitted")
	}
}

func TestImputerMeanSkipsAllMissing(t *testing.T) {
	imp, _ := NewImputer(StrategyMean)
	events, fn := recorder()
	imp.SetLogging("", fn)
	data := table.MustNew(table.MustValues("empty", nil, nil), table.MustValues("x", 1, nil))
	if err := imp.Fit(data, nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := imp.FillValues()["empty"]; ok {
		t.Error("all-missing column should be skipped")
	}
	skipped, _ := (*events)[0].payload.Details["skipped_columns"].([]string)
	if len(skipped) != 1 || skipped[0] != "empty" {
		t.Errorf("skipped_columns = %v", (*events)[0].payload.Details["skipped_columns"])
	}
}

func TestImputerRestrictedColumns(t *testing.T) {
	imp, _ := NewImputerFromConfig(ImputerConfig{Strategy: StrategyMode, Columns: []string{"city"}})
	out, err := imp.FitTransform(ageCity(), nil)
	if err != nil {
		t.Fatal(err)
	}
	age, _ := out.Column("age")
	if age.MissingCount() != 1 {
		t.Errorf("age should be untouched, missing = %d", age.MissingCount())
	}

	imp, _ = NewImputerFromConfig(ImputerConfig{Strategy: StrategyMean, Columns: []string{"city"}})
	if err := imp.Fit(ageCity(), nil); !errors.Is(err, errhandling.ErrSchema) {
		t.Errorf("mean on categorical column: error = %v, want ErrSchema", err)
	}
}

func TestImputerParamsRoundTrip(t *testing.T) {
	imp, _ := NewImputer(StrategyMode)
	want, err := imp.FitTransform(ageCity(), nil)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := imp.MarshalParams()
	if err != nil {
		t.Fatal(err)
	}

	restored, _ := NewImputer(StrategyMode)
	if err := restored.UnmarshalParams(raw); err != nil {
		t.Fatal(err)
	}
	got, err := restored.Transform(ageCity())
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Errorf("restored transform =\n%v\nwant\n%v", got, want)
	}
}
