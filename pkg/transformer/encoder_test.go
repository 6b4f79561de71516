package transformer

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

func colorShape() *table.Table {
	return table.MustNew(
		table.MustValues("id", 1, 2, 3, 4),
		table.MustValues("color", "red", "blue", "red", "green"),
		table.MustValues("shape", "sq", nil, "ci", "sq"),
	)
}

func TestEncoderCategoriesFirstSeenOrder(t *testing.T) {
	enc, _ := NewEncoder(MethodLabel)
	if err := enc.Fit(colorShape(), nil); err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{
		"color": {"red", "blue", "green"},
		"shape": {"sq", "ci"},
	}
	if got := enc.Categories(); !reflect.DeepEqual(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
}

func TestEncoderLabelUnknown(t *testing.T) {
	enc, _ := NewEncoder(MethodLabel)
	if err := enc.Fit(colorShape(), nil); err != nil {
		t.Fatal(err)
	}
	out, err := enc.Transform(table.MustNew(
		table.MustValues("color", "green", "purple", nil),
		table.MustValues("shape", "ci", "sq", "tri"),
	))
	if err != nil {
		t.Fatal(err)
	}
	color, _ := out.Column("color")
	shape, _ := out.Column("shape")
	if got := color.Floats(); !reflect.DeepEqual(got, []float64{2, UnknownLabel, UnknownLabel}) {
		t.Errorf("color = %v", got)
	}
	if got := shape.Floats(); !reflect.DeepEqual(got, []float64{1, 0, UnknownLabel}) {
		t.Errorf("shape = %v", got)
	}
}

func TestEncoderOneHot(t *testing.T) {
	data := colorShape()
	enc, _ := NewEncoder(MethodOneHot)
	out, err := enc.FitTransform(data, nil)
	if err != nil {
		t.Fatal(err)
	}

	// (original - categorical) + sum of categories
	wantCols := (3 - 2) + 3 + 2
	if out.NumCols() != wantCols {
		t.Fatalf("NumCols() = %d, want %d (%v)", out.NumCols(), wantCols, out.ColumnNames())
	}
	wantNames := []string{"id", "color_red", "color_blue", "color_green", "shape_sq", "shape_ci"}
	if got := out.ColumnNames(); !reflect.DeepEqual(got, wantNames) {
		t.Errorf("ColumnNames() = %v, want %v", got, wantNames)
	}

	groups := map[string][]string{
		"color": {"color_red", "color_blue", "color_green"},
		"shape": {"shape_sq", "shape_ci"},
	}
	for original, names := range groups {
		src, _ := data.Column(original)
		for r := range out.NumRows() {
			sum := 0.0
			for _, n := range names {
				c, _ := out.Column(n)
				sum += c.Float(r)
			}
			want := 1.0
			if src.IsMissing(r) {
				want = 0
			}
			if sum != want {
				t.Errorf("%s row %d: indicator sum = %v, want %v", original, r, sum, want)
			}
		}
	}
}

func TestEncoderOneHotUnseen(t *testing.T) {
	enc, _ := NewEncoder(MethodOneHot)
	if err := enc.Fit(colorShape(), nil); err != nil {
		t.Fatal(err)
	}
	out, err := enc.Transform(table.MustNew(
		table.MustValues("color", "purple"),
		table.MustValues("shape", "sq"),
	))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"color_red", "color_blue", "color_green"} {
		c, _ := out.Column(name)
		if c.Float(0) != 0 {
			t.Errorf("%s = %v, want 0 for unseen category", name, c.Float(0))
		}
	}
	if out.Has("color_purple") {
		t.Error("unseen category must not create a column")
	}
}

func TestEncoderOneHotAllMissingKeepsRows(t *testing.T) {
	data := table.MustNew(table.NewCategorical("c", []string{"", "", ""}, []bool{true, true, true}))
	enc, _ := NewEncoder(MethodOneHot)
	out, err := enc.FitTransform(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Shape(), []int{3, 0}) {
		t.Errorf("Shape() = %v, want [3 0]", out.Shape())
	}
}

func TestEncoderOneHotNameCollision(t *testing.T) {
	data := table.MustNew(
		table.MustValues("color", "red", "blue"),
		table.MustValues("color_red", 5, 6),
	)
	enc, _ := NewEncoderFromConfig(EncoderConfig{Method: MethodOneHot, Columns: []string{"color"}})
	_, err := enc.FitTransform(data, nil)
	if !errors.Is(err, errhandling.ErrSchema) {
		t.Errorf("FitTransform() error = %v, want ErrSchema", err)
	}
}

func TestEncoderFrequency(t *testing.T) {
	enc, _ := NewEncoder(MethodFrequency)
	out, err := enc.FitTransform(colorShape(), nil)
	if err != nil {
		t.Fatal(err)
	}
	color, _ := out.Column("color")
	if got := color.Floats(); !reflect.DeepEqual(got, []float64{0.5, 0.25, 0.5, 0.25}) {
		t.Errorf("color = %v", got)
	}
	shape, _ := out.Column("shape")
	if shape.Float(1) != 0 {
		t.Errorf("missing value encoded as %v, want 0", shape.Float(1))
	}
}

func TestEncoderLeavesNumericColumns(t *testing.T) {
	enc, _ := NewEncoder(MethodLabel)
	data := colorShape()
	out, err := enc.FitTransform(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	before, _ := data.Column("id")
	after, _ := out.Column("id")
	if before != after {
		t.Error("numeric column should be shared unchanged")
	}
}
