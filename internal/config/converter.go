package config

import (
	"fmt"

	"github.com/Troge-dev/Transfory/pkg/recipe"
)

// ConvertToRecipe converts a parsed recipe document into a Recipe. The document
// should have been validated against the schema first.
//
// The document is expected to have this structure:
//
//	schemaVersion: "1.0.0"
//	pipeline:
//	  name: titanic
//	  version: "1.0.0"
//	  input: {type: csv, path: train.csv}
//	  target: survived
//	  steps:
//	    - {id: impute, kind: imputer, strategy: median}
//	  output: {type: csv, path: out.csv}
//	  report: {summary: text, path: report.json, format: json}
//	  state: {path: state.json}
//
// Step and module fields other than id/kind/type become the component's Config.
func ConvertToRecipe(data map[string]interface{}) (*recipe.Recipe, error) {
	if data == nil {
		return nil, fmt.Errorf("configuration data is nil")
	}

	pipelineData, ok := data["pipeline"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'pipeline' section")
	}

	r := &recipe.Recipe{}
	if r.Name, ok = pipelineData["name"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'pipeline.name'")
	}
	if r.Version, ok = pipelineData["version"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'pipeline.version'")
	}
	r.Description, _ = pipelineData["description"].(string)
	r.Target, _ = pipelineData["target"].(string)

	inputData, ok := pipelineData["input"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'pipeline.input' section")
	}
	input, err := convertModuleConfig(inputData)
	if err != nil {
		return nil, fmt.Errorf("invalid input config: %w", err)
	}
	r.Input = input

	stepsData, ok := pipelineData["steps"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'pipeline.steps' section")
	}
	for i, raw := range stepsData {
		stepMap, isMap := raw.(map[string]interface{})
		if !isMap {
			return nil, fmt.Errorf("invalid step at index %d", i)
		}
		step, stepErr := convertStepConfig(stepMap)
		if stepErr != nil {
			return nil, fmt.Errorf("invalid step at index %d: %w", i, stepErr)
		}
		r.Steps = append(r.Steps, step)
	}

	if outputData, okOutput := pipelineData["output"].(map[string]interface{}); okOutput {
		output, outErr := convertModuleConfig(outputData)
		if outErr != nil {
			return nil, fmt.Errorf("invalid output config: %w", outErr)
		}
		r.Output = output
	}

	if reportData, okReport := pipelineData["report"].(map[string]interface{}); okReport {
		r.Report = convertReportConfig(reportData)
	}

	if stateData, okState := pipelineData["state"].(map[string]interface{}); okState {
		path, _ := stateData["path"].(string)
		r.State = &recipe.StateConfig{Path: path}
	}

	return r, nil
}

func convertModuleConfig(data map[string]interface{}) (*recipe.ModuleConfig, error) {
	moduleType, ok := data["type"].(string)
	if !ok {
		return nil, fmt.Errorf("missing required field 'type'")
	}
	cfg := &recipe.ModuleConfig{Type: moduleType, Config: make(map[string]interface{})}
	for key, value := range data {
		if key != "type" {
			cfg.Config[key] = value
		}
	}
	return cfg, nil
}

func convertStepConfig(data map[string]interface{}) (recipe.StepConfig, error) {
	step := recipe.StepConfig{Config: make(map[string]interface{})}
	var ok bool
	if step.ID, ok = data["id"].(string); !ok || step.ID == "" {
		return step, fmt.Errorf("missing required field 'id'")
	}
	if step.Kind, ok = data["kind"].(string); !ok || step.Kind == "" {
		return step, fmt.Errorf("missing required field 'kind' in step %q", step.ID)
	}
	for key, value := range data {
		if key != "id" && key != "kind" {
			step.Config[key] = value
		}
	}
	return step, nil
}

func convertReportConfig(data map[string]interface{}) *recipe.ReportConfig {
	report := &recipe.ReportConfig{Summary: recipe.SummaryText}
	if summary, ok := data["summary"].(string); ok {
		report.Summary = summary
	}
	report.Path, _ = data["path"].(string)
	report.Format, _ = data["format"].(string)
	if report.Path != "" && report.Format == "" {
		report.Format = "json"
	}
	return report
}
