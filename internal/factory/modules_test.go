package factory

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/Troge-dev/Transfory/internal/modules/input"
	"github.com/Troge-dev/Transfory/internal/modules/output"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/pipeline"
	"github.com/Troge-dev/Transfory/pkg/recipe"
	"github.com/Troge-dev/Transfory/pkg/table"
)

func TestCreateTransformer(t *testing.T) {
	tr, err := CreateTransformer("scaler", map[string]interface{}{"method": "minmax"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Name() != "Scaler" {
		t.Errorf("Name() = %q", tr.Name())
	}

	// nil config falls back to the kind's defaults
	if _, err := CreateTransformer("imputer", nil); err != nil {
		t.Errorf("CreateTransformer(imputer, nil) error = %v", err)
	}
}

func TestCreateTransformer_Unknown(t *testing.T) {
	_, err := CreateTransformer("normalizer", nil)
	if !errors.Is(err, errhandling.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
	if !strings.Contains(err.Error(), "normalizer") || !strings.Contains(err.Error(), "imputer") {
		t.Errorf("error should name the kind and the available kinds: %v", err)
	}
}

func TestCreatePipeline(t *testing.T) {
	r := &recipe.Recipe{
		Name: "titanic",
		Steps: []recipe.StepConfig{
			{ID: "impute", Kind: "imputer", Config: map[string]interface{}{"strategy": "mean"}},
			{ID: "encode", Kind: "encoder", Config: map[string]interface{}{"method": "label"}},
			{ID: "scale", Kind: "scaler", Config: map[string]interface{}{"method": "minmax", "columns": []interface{}{"age"}}},
		},
	}
	p, err := CreatePipeline(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "titanic" {
		t.Errorf("Name() = %q, want titanic", p.Name())
	}
	if got := p.StepIDs(); !reflect.DeepEqual(got, []string{"impute", "encode", "scale"}) {
		t.Errorf("StepIDs() = %v", got)
	}
	if p.IsFitted() {
		t.Error("a new pipeline should be unfitted")
	}

	data := table.MustNew(
		table.MustValues("age", 20.0, nil, 40.0),
		table.MustValues("city", "A", "B", "A"),
	)
	out, err := p.FitTransform(data, nil)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	age, _ := out.Column("age")
	if got := age.Floats(); !floatsNear(got, []float64{0, 0.5, 1}) {
		t.Errorf("age = %v, want [0 0.5 1]", got)
	}
}

func TestCreatePipeline_NameOverride(t *testing.T) {
	r := &recipe.Recipe{Name: "recipe", Steps: []recipe.StepConfig{{ID: "s", Kind: "scaler"}}}
	p, err := CreatePipeline(r, pipeline.WithName("override"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "override" {
		t.Errorf("Name() = %q, want override", p.Name())
	}
}

func TestCreatePipeline_Errors(t *testing.T) {
	tests := []struct {
		name string
		r    *recipe.Recipe
		want string
	}{
		{"nil recipe", nil, "recipe is nil"},
		{"unknown kind", &recipe.Recipe{Steps: []recipe.StepConfig{{ID: "x", Kind: "magic"}}}, `step "x" at index 0`},
		{"bad config", &recipe.Recipe{Steps: []recipe.StepConfig{
			{ID: "ok", Kind: "scaler"},
			{ID: "bad", Kind: "imputer", Config: map[string]interface{}{"strategy": "average"}},
		}}, `step "bad" at index 1`},
		{"duplicate ids", &recipe.Recipe{Steps: []recipe.StepConfig{
			{ID: "a", Kind: "scaler"},
			{ID: "a", Kind: "encoder"},
		}}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreatePipeline(tt.r)
			if !errors.Is(err, errhandling.ErrConfiguration) {
				t.Fatalf("error = %v, want ErrConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestCreateInputModule(t *testing.T) {
	got, err := CreateInputModule(&recipe.ModuleConfig{Type: "csv", Config: map[string]interface{}{"path": "train.csv"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.(*input.CSVInput); !ok {
		t.Errorf("got %T, want *input.CSVInput", got)
	}

	for _, cfg := range []*recipe.ModuleConfig{nil, {Type: "parquet"}} {
		if _, err := CreateInputModule(cfg); !errors.Is(err, errhandling.ErrConfiguration) {
			t.Errorf("CreateInputModule(%v) error = %v, want ErrConfiguration", cfg, err)
		}
	}
}

func TestCreateOutputModule(t *testing.T) {
	got, err := CreateOutputModule(nil)
	if err != nil || got != nil {
		t.Errorf("CreateOutputModule(nil) = %v, %v, want nil, nil", got, err)
	}

	tests := []struct {
		moduleType string
		want       output.Module
	}{
		{"csv", &output.CSVOutput{}},
		{"json", &output.JSONOutput{}},
	}
	for _, tt := range tests {
		t.Run(tt.moduleType, func(t *testing.T) {
			got, err := CreateOutputModule(&recipe.ModuleConfig{Type: tt.moduleType, Config: map[string]interface{}{"path": "out/x"}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if reflect.TypeOf(got) != reflect.TypeOf(tt.want) {
				t.Errorf("got %T, want %T", got, tt.want)
			}
		})
	}

	if _, err := CreateOutputModule(&recipe.ModuleConfig{Type: "parquet"}); !errors.Is(err, errhandling.ErrConfiguration) {
		t.Errorf("unknown output error = %v, want ErrConfiguration", err)
	}
}

func floatsNear(got, want []float64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-6 {
			return false
		}
	}
	return true
}
