package table

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestFromValues(t *testing.T) {
	tests := []struct {
		name        string
		values      []interface{}
		wantKind    Kind
		wantMissing int
	}{
		{"ints", []interface{}{1, 2, 3}, Numeric, 0},
		{"floats with nil", []interface{}{1.5, nil, 3.0}, Numeric, 1},
		{"nan is missing", []interface{}{math.NaN(), 2.0}, Numeric, 1},
		{"strings", []interface{}{"A", "B", nil}, Categorical, 1},
		{"mixed numbers and strings", []interface{}{"A", 2}, Categorical, 0},
		{"all missing", []interface{}{nil, nil}, Numeric, 2},
		{"empty", []interface{}{}, Numeric, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := FromValues("c", tt.values...)
			if err != nil {
				t.Fatalf("FromValues() error = %v", err)
			}
			if c.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", c.Kind(), tt.wantKind)
			}
			if c.MissingCount() != tt.wantMissing {
				t.Errorf("MissingCount() = %d, want %d", c.MissingCount(), tt.wantMissing)
			}
			if c.Len() != len(tt.values) {
				t.Errorf("Len() = %d, want %d", c.Len(), len(tt.values))
			}
		})
	}

	t.Run("unsupported type", func(t *testing.T) {
		_, err := FromValues("c", true)
		if !errors.Is(err, ErrUnsupportedValue) {
			t.Errorf("FromValues(bool) error = %v, want ErrUnsupportedValue", err)
		}
	})
}

func TestColumnIsImmutable(t *testing.T) {
	src := []float64{1, 2, 3}
	c := NewNumeric("x", src)
	src[0] = 99
	if c.Float(0) != 1 {
		t.Errorf("column changed when source slice was modified: %v", c.Float(0))
	}
	out := c.Floats()
	out[1] = 99
	if c.Float(1) != 2 {
		t.Errorf("column changed when Floats() copy was modified: %v", c.Float(1))
	}
}

func TestNewCategoricalMissing(t *testing.T) {
	c := NewCategorical("city", []string{"A", "ignored", "B"}, []bool{false, true, false})
	if !c.IsMissing(1) || c.Value(1) != nil {
		t.Errorf("row 1 should be missing, got %v", c.Value(1))
	}
	if got := c.ObservedStrings(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("ObservedStrings() = %v", got)
	}
}

func TestNew(t *testing.T) {
	t.Run("duplicate names", func(t *testing.T) {
		_, err := New(MustValues("a", 1), MustValues("a", 2))
		if !errors.Is(err, ErrDuplicateColumn) {
			t.Errorf("New() error = %v, want ErrDuplicateColumn", err)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := New(MustValues("a", 1, 2), MustValues("b", 2))
		if !errors.Is(err, ErrRowCountMismatch) {
			t.Errorf("New() error = %v, want ErrRowCountMismatch", err)
		}
	})

	t.Run("nil column", func(t *testing.T) {
		_, err := New(nil)
		if !errors.Is(err, ErrNilColumn) {
			t.Errorf("New() error = %v, want ErrNilColumn", err)
		}
	})

	t.Run("empty table", func(t *testing.T) {
		tbl, err := New()
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if !reflect.DeepEqual(tbl.Shape(), []int{0, 0}) {
			t.Errorf("Shape() = %v", tbl.Shape())
		}
	})
}

func sampleTable() *Table {
	return MustNew(
		MustValues("age", 20, 25, 30, nil, 22),
		MustValues("city", "A", "B", "A", "C", nil),
	)
}

func TestTableAccessors(t *testing.T) {
	tbl := sampleTable()

	if !reflect.DeepEqual(tbl.Shape(), []int{5, 2}) {
		t.Errorf("Shape() = %v, want [5 2]", tbl.Shape())
	}
	if got := tbl.ColumnsOfKind(Numeric); !reflect.DeepEqual(got, []string{"age"}) {
		t.Errorf("ColumnsOfKind(Numeric) = %v", got)
	}
	if got := tbl.ColumnsOfKind(Categorical); !reflect.DeepEqual(got, []string{"city"}) {
		t.Errorf("ColumnsOfKind(Categorical) = %v", got)
	}
	if tbl.MissingCount() != 2 {
		t.Errorf("MissingCount() = %d, want 2", tbl.MissingCount())
	}
	if got := tbl.CompleteRows(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("CompleteRows() = %v", got)
	}
	if _, ok := tbl.Column("nope"); ok {
		t.Error("Column(nope) should not be found")
	}
}

func TestTake(t *testing.T) {
	tbl := sampleTable().Take([]int{4, 0})
	want := MustNew(
		MustValues("age", 22, 20),
		MustValues("city", nil, "A"),
	)
	if !tbl.Equal(want) {
		t.Errorf("Take() =\n%v\nwant\n%v", tbl, want)
	}
}

func TestZeroColumnTableKeepsRows(t *testing.T) {
	tbl := MustNew(MustValues("only", 1, 2, 3))

	dropped := tbl.Drop("only")
	if !reflect.DeepEqual(dropped.Shape(), []int{3, 0}) {
		t.Errorf("Drop() shape = %v, want [3 0]", dropped.Shape())
	}
	if got := len(dropped.Records()); got != 3 {
		t.Errorf("len(Records()) = %d, want 3", got)
	}

	taken := dropped.Take([]int{0, 2})
	if !reflect.DeepEqual(taken.Shape(), []int{2, 0}) {
		t.Errorf("Take() shape = %v, want [2 0]", taken.Shape())
	}

	rebuilt, err := NewBuilder(dropped).Set(MustValues("a", 1, 2, 3)).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if rebuilt.NumRows() != 3 {
		t.Errorf("NumRows() = %d, want 3", rebuilt.NumRows())
	}
	_, err = NewBuilder(dropped).Set(MustValues("a", 1)).Build()
	if !errors.Is(err, ErrRowCountMismatch) {
		t.Errorf("Build() error = %v, want ErrRowCountMismatch", err)
	}
}

func TestBuilder(t *testing.T) {
	base := sampleTable()
	out, err := NewBuilder(base).
		Set(MustValues("age", 1, 2, 3, 4, 5)).
		Set(MustValues("new", 0, 0, 0, 0, 0)).
		Drop("city").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := out.ColumnNames(); !reflect.DeepEqual(got, []string{"age", "new"}) {
		t.Errorf("ColumnNames() = %v", got)
	}
	if !base.Equal(sampleTable()) {
		t.Error("base table was modified by the builder")
	}

	_, err = NewBuilder(base).Set(MustValues("short", 1)).Build()
	if !errors.Is(err, ErrRowCountMismatch) {
		t.Errorf("Build() error = %v, want ErrRowCountMismatch", err)
	}
}

func TestDropKeepsOrder(t *testing.T) {
	tbl := MustNew(MustValues("a", 1), MustValues("b", 2), MustValues("c", 3))
	out := tbl.Drop("b", "missing")
	if got := out.ColumnNames(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("ColumnNames() = %v", got)
	}
	if c, _ := out.Column("c"); c.Float(0) != 3 {
		t.Errorf("column c lookup after drop = %v", c.Float(0))
	}
}

func TestRecords(t *testing.T) {
	recs := sampleTable().Records()
	if len(recs) != 5 {
		t.Fatalf("len(Records()) = %d", len(recs))
	}
	if recs[3]["age"] != nil || recs[3]["city"] != "C" {
		t.Errorf("Records()[3] = %v", recs[3])
	}
	if recs[0]["age"] != 20.0 {
		t.Errorf("Records()[0][age] = %v", recs[0]["age"])
	}
}

func TestCSVRoundTrip(t *testing.T) {
	input := "age,city,score\n20,A,1.5\n,B,NA\n30,,2\n"
	tbl, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	age, _ := tbl.Column("age")
	city, _ := tbl.Column("city")
	score, _ := tbl.Column("score")
	if age.Kind() != Numeric || city.Kind() != Categorical || score.Kind() != Numeric {
		t.Errorf("kinds = %v %v %v", age.Kind(), city.Kind(), score.Kind())
	}
	if !age.IsMissing(1) || !city.IsMissing(2) || !score.IsMissing(1) {
		t.Error("missing tokens not detected")
	}

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	want := "age,city,score\n20,A,1.5\n,B,\n30,,2\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() =\n%q\nwant\n%q", buf.String(), want)
	}
}
