package transformer

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

func TestExpressionFeature(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		want       *table.Column
	}{
		{"arithmetic", "age * 2", table.MustValues("out", 40, 50)},
		{"boolean", "age > 21", table.MustValues("out", 0, 1)},
		{"string", `city + "!"`, table.MustValues("out", "A!", "B!")},
	}

	data := table.MustNew(table.MustValues("age", 20, 25), table.MustValues("city", "A", "B"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := NewExpressionFeatureFromConfig(ExpressionConfig{Column: "out", Expression: tt.expression})
			if err != nil {
				t.Fatal(err)
			}
			out, err := x.FitTransform(data, nil)
			if err != nil {
				t.Fatal(err)
			}
			got, _ := out.Column("out")
			if !got.Equal(tt.want) {
				t.Errorf("out = %v, want %v", got.ObservedStrings(), tt.want.ObservedStrings())
			}
		})
	}
}

func TestExpressionFeatureOnError(t *testing.T) {
	data := table.MustNew(table.MustValues("age", 20, nil))

	strict, _ := NewExpressionFeatureFromConfig(ExpressionConfig{Column: "out", Expression: "age * 2"})
	if err := strict.Fit(data, nil); !errors.Is(err, errhandling.ErrData) {
		t.Errorf("Fit() error = %v, want ErrData", err)
	}

	lenient, _ := NewExpressionFeatureFromConfig(ExpressionConfig{Column: "out", Expression: "age * 2", OnError: OnErrorMissing})
	out, err := lenient.FitTransform(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	col, _ := out.Column("out")
	if col.Float(0) != 40 || !col.IsMissing(1) {
		t.Errorf("out = %v", col.Floats())
	}
}

func TestScriptTransformer(t *testing.T) {
	script := `
function transform(row) {
	return { age: row.age + 1, adult: row.age >= 21 };
}`
	s, err := NewScriptTransformerFromConfig(ScriptConfig{Script: script})
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.FitTransform(table.MustNew(table.MustValues("age", 20, 30)), nil)
	if err != nil {
		t.Fatal(err)
	}
	age, _ := out.Column("age")
	adult, _ := out.Column("adult")
	if !reflect.DeepEqual(age.Floats(), []float64{21, 31}) {
		t.Errorf("age = %v", age.Floats())
	}
	if !reflect.DeepEqual(adult.Floats(), []float64{0, 1}) {
		t.Errorf("adult = %v", adult.Floats())
	}
}

func TestScriptTransformerFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.js")
	if err := os.WriteFile(path, []byte(`function transform(row) { return {}; }`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewScriptTransformerFromConfig(ScriptConfig{ScriptFile: path}); err != nil {
		t.Errorf("NewScriptTransformerFromConfig() error = %v", err)
	}

	_, err := NewScriptTransformerFromConfig(ScriptConfig{ScriptFile: "../outside.js"})
	if !errors.Is(err, errhandling.ErrConfiguration) {
		t.Errorf("traversal path: error = %v, want ErrConfiguration", err)
	}
}

func TestScriptTransformerRuntimeError(t *testing.T) {
	s, _ := NewScriptTransformerFromConfig(ScriptConfig{Script: `function transform(row) { throw new Error("boom"); }`})
	err := s.Fit(table.MustNew(table.MustValues("a", 1)), nil)
	if !errors.Is(err, errhandling.ErrData) {
		t.Errorf("Fit() error = %v, want ErrData", err)
	}
}

func TestScriptTransformerOnErrorMissing(t *testing.T) {
	script := `
function transform(row) {
	if (row.age === null) { throw new Error("no age"); }
	return { double: row.age * 2 };
}`
	s, err := NewScriptTransformerFromConfig(ScriptConfig{Script: script, OnError: OnErrorMissing})
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.FitTransform(table.MustNew(table.MustValues("age", 1, nil)), nil)
	if err != nil {
		t.Fatal(err)
	}
	double, ok := out.Column("double")
	if !ok || double.Float(0) != 2 || !double.IsMissing(1) {
		t.Errorf("double = %v", out)
	}
}

func TestScriptTransformerInvalidResult(t *testing.T) {
	s, err := NewScriptTransformerFromConfig(ScriptConfig{Script: `function transform(row) { return 5; }`})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Fit(table.MustNew(table.MustValues("a", 1)), nil); !errors.Is(err, errhandling.ErrData) {
		t.Errorf("Fit() error = %v, want ErrData", err)
	}

	arr, err := NewScriptTransformerFromConfig(ScriptConfig{Script: `function transform(row) { return [1, 2]; }`})
	if err != nil {
		t.Fatal(err)
	}
	if err := arr.Fit(table.MustNew(table.MustValues("a", 1)), nil); !errors.Is(err, errhandling.ErrData) {
		t.Errorf("array result: Fit() error = %v, want ErrData", err)
	}

	_, err = NewScriptTransformerFromConfig(ScriptConfig{Script: `var transform = 1;`})
	if !errors.Is(err, errhandling.ErrConfiguration) {
		t.Errorf("non-function transform: error = %v, want ErrConfiguration", err)
	}
}

func TestScriptTransformerNewColumnOrder(t *testing.T) {
	script := `
function transform(row) {
	return { e5: row.x, a1: row.x, d4: row.x, b2: row.x, c3: row.x };
}`
	s, err := NewScriptTransformerFromConfig(ScriptConfig{Script: script})
	if err != nil {
		t.Fatal(err)
	}
	data := table.MustNew(table.MustValues("x", 1, 2))
	if err := s.Fit(data, nil); err != nil {
		t.Fatal(err)
	}

	want := []string{"x", "e5", "a1", "d4", "b2", "c3"}
	for i := 0; i < 20; i++ {
		out, err := s.Transform(data)
		if err != nil {
			t.Fatal(err)
		}
		if got := out.ColumnNames(); !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: columns = %v, want %v", i, got, want)
		}
	}
}
