package transformer

import (
	"reflect"
	"testing"

	"github.com/Troge-dev/Transfory/pkg/table"
)

func TestFeatureGeneratorColumns(t *testing.T) {
	data := table.MustNew(
		table.MustValues("a", 1, 2),
		table.MustValues("tag", "x", "y"),
		table.MustValues("b", 3, 4),
		table.MustValues("c", 5, 6),
	)

	tests := []struct {
		name         string
		degree       int
		interactions bool
		wantNew      []string
	}{
		{"degree 1 no interactions", 1, false, nil},
		{"degree 2", 2, false, []string{"a^p2", "b^p2", "c^p2"}},
		{"degree 3 with interactions", 3, true, []string{
			"a^p2", "a^p3", "b^p2", "b^p3", "c^p2", "c^p3",
			"a_x_b", "a_x_c", "b_x_c",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewFeatureGenerator(tt.degree, tt.interactions)
			if err != nil {
				t.Fatal(err)
			}
			out, err := g.FitTransform(data, nil)
			if err != nil {
				t.Fatal(err)
			}
			got := out.ColumnNames()[data.NumCols():]
			if len(got) == 0 {
				got = nil
			}
			if !reflect.DeepEqual(got, tt.wantNew) {
				t.Errorf("new columns = %v, want %v", got, tt.wantNew)
			}
		})
	}
}

func TestFeatureGeneratorValues(t *testing.T) {
	g, _ := NewFeatureGenerator(2, true)
	out, err := g.FitTransform(table.MustNew(table.MustValues("a", 2, 3), table.MustValues("b", 5, 7)), nil)
	if err != nil {
		t.Fatal(err)
	}
	sq, _ := out.Column("a^p2")
	prod, _ := out.Column("a_x_b")
	if !reflect.DeepEqual(sq.Floats(), []float64{4, 9}) {
		t.Errorf("a^p2 = %v", sq.Floats())
	}
	if !reflect.DeepEqual(prod.Floats(), []float64{10, 21}) {
		t.Errorf("a_x_b = %v", prod.Floats())
	}
}

func TestFeatureGeneratorIgnoresNewColumns(t *testing.T) {
	g, _ := NewFeatureGenerator(2, true)
	if err := g.Fit(table.MustNew(table.MustValues("a", 1)), nil); err != nil {
		t.Fatal(err)
	}
	out, err := g.Transform(table.MustNew(table.MustValues("a", 2), table.MustValues("late", 3)))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "late", "a^p2"}
	if got := out.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
}
