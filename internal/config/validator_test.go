package config

import (
	"strings"
	"testing"
)

func validationErrorsFor(t *testing.T, file string) []ValidationError {
	t.Helper()
	var parsed *ParseResult
	if DetectFormat(file) == FormatJSON {
		parsed = ParseJSONString(mustRead(t, file))
	} else {
		parsed = ParseYAMLString(mustRead(t, file))
	}
	if !parsed.IsValid() {
		t.Fatalf("failed to parse %s: %v", file, parsed.Errors)
	}
	return ValidateConfig(parsed.Data).Errors
}

func TestValidateConfig_ValidRecipes(t *testing.T) {
	for _, file := range []string{"testdata/valid-recipe.yaml", "testdata/valid-recipe.json"} {
		t.Run(file, func(t *testing.T) {
			if errs := validationErrorsFor(t, file); len(errs) != 0 {
				t.Errorf("expected valid recipe, got errors: %v", errs)
			}
		})
	}
}

func TestValidateConfig_InvalidRecipes(t *testing.T) {
	tests := []struct {
		file     string
		wantPath string
		wantText string
	}{
		{"testdata/invalid-missing-steps.json", "/pipeline", "steps"},
		{"testdata/invalid-wrong-type.json", "/pipeline/name", "string"},
		{"testdata/invalid-unknown-method.yaml", "/pipeline/steps/0/method", "minmax"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			errs := validationErrorsFor(t, tt.file)
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range errs {
				if strings.HasPrefix(e.Path, tt.wantPath) && strings.Contains(e.Message, tt.wantText) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("no error at %s mentioning %q, got: %v", tt.wantPath, tt.wantText, errs)
			}
		})
	}
}

func TestValidateConfig_UnknownStepKind(t *testing.T) {
	data := map[string]interface{}{
		"schemaVersion": "1.0.0",
		"pipeline": map[string]interface{}{
			"name":    "p",
			"version": "1",
			"input":   map[string]interface{}{"type": "csv", "path": "a.csv"},
			"steps": []interface{}{
				map[string]interface{}{"id": "x", "kind": "normalizer"},
			},
		},
	}
	result := ValidateConfig(data)
	if result.Valid {
		t.Fatal("expected an unknown step kind to be rejected")
	}
	for _, e := range result.Errors {
		if e.Path == "/pipeline/steps/0/kind" {
			return
		}
	}
	t.Errorf("no error at /pipeline/steps/0/kind, got %v", result.Errors)
}

func TestValidateConfig_YAMLIntegers(t *testing.T) {
	parsed := ParseYAMLString(`
schemaVersion: "1.0.0"
pipeline:
  name: p
  version: "1"
  input: {type: csv, path: a.csv}
  steps:
    - {id: poly, kind: feature_generator, degree: 3}
`)
	if result := ValidateConfig(parsed.Data); !result.Valid {
		t.Errorf("YAML integer degree should validate, got %v", result.Errors)
	}
}

func TestValidateConfig_EmptyData(t *testing.T) {
	for _, data := range []map[string]interface{}{nil, {}} {
		if result := ValidateConfig(data); result.Valid {
			t.Errorf("ValidateConfig(%v) should fail", data)
		}
	}
}

func TestGetEmbeddedSchema(t *testing.T) {
	if !strings.Contains(string(GetEmbeddedSchema()), `"$defs"`) {
		t.Error("expected the embedded recipe schema")
	}
}
