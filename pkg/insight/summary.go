package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// Summary formats.
const (
	FormatText  = "text"
	FormatTable = "table"
)

// NoEventsMessage is the text summary of an empty session.
const NoEventsMessage = "No transformation logs recorded."

// explainer renders one event of a known transformer kind.
type explainer func(e Event) string

// explainers are matched in order against the normalized transformer name.
var explainers = []struct {
	kind    string
	explain explainer
}{
	{"featuregenerator", explainFeatureGenerator},
	{"imputer", explainImputer},
	{"encoder", explainEncoder},
	{"scaler", explainScaler},
	{"outlier", explainOutlier},
}

// normalizeKind lowercases a name and strips separators so that "FeatureGenerator",
// "feature-generator" and "feature_generator" compare equal.
func normalizeKind(name string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(name))
}

// Explain renders the one-line explanation of an event.
func Explain(e Event) string {
	name := normalizeKind(e.Transformer)
	for _, x := range explainers {
		if !strings.Contains(name, x.kind) {
			continue
		}
		if strings.HasSuffix(e.Kind, "_start") {
			return fmt.Sprintf("%s: %s %s started on %s", e.Step, e.Transformer, phase(e), formatShape(e.Details["shape"]))
		}
		line := x.explain(e)
		if out, ok := e.Details["output_shape"]; ok {
			line += fmt.Sprintf(" (output %s)", formatShape(out))
		}
		return line
	}
	return fmt.Sprintf("%s completed %s", e.Step, e.Kind)
}

func phase(e Event) string {
	if strings.HasPrefix(e.Kind, "fit") {
		return "fit"
	}
	return "transform"
}

func explainImputer(e Event) string {
	strategy := fmt.Sprint(e.Config["strategy"])
	if phase(e) == "fit" {
		if strategy == "drop" {
			return fmt.Sprintf("%s: Imputer will drop rows with missing values", e.Step)
		}
		return fmt.Sprintf("%s: Imputer learned %s fill values for %s", e.Step, strategy, formatList(e.Details["columns"]))
	}
	if n, ok := e.Details["rows_dropped"]; ok {
		return fmt.Sprintf("%s: Imputer dropped %v rows with missing values", e.Step, n)
	}
	return fmt.Sprintf("%s: Imputer filled %v missing values in %s using %s", e.Step, valueOr(e.Details["values_filled"], 0), formatList(e.Details["columns"]), strategy)
}

func explainEncoder(e Event) string {
	method := fmt.Sprint(e.Config["method"])
	if phase(e) == "fit" {
		return fmt.Sprintf("%s: Encoder (%s) learned categories for %s", e.Step, method, formatList(e.Details["columns"]))
	}
	line := fmt.Sprintf("%s: Encoder (%s) encoded %s", e.Step, method, formatList(e.Details["columns"]))
	if cols := toStrings(e.Details["new_columns"]); len(cols) > 0 {
		line += fmt.Sprintf(" into %d indicator columns", len(cols))
	}
	if n := valueOr(e.Details["unknown_values"], 0); fmt.Sprint(n) != "0" {
		line += fmt.Sprintf(", %v unknown or missing values", n)
	}
	return line
}

func explainScaler(e Event) string {
	method := fmt.Sprint(e.Config["method"])
	if phase(e) == "fit" {
		return fmt.Sprintf("%s: Scaler (%s) learned scaling parameters for %s", e.Step, method, formatList(e.Details["columns"]))
	}
	return fmt.Sprintf("%s: Scaler (%s) rescaled %s", e.Step, method, formatList(e.Details["columns"]))
}

func explainFeatureGenerator(e Event) string {
	degree := valueOr(e.Config["degree"], "?")
	if phase(e) == "fit" {
		return fmt.Sprintf("%s: FeatureGenerator (degree %v) selected numeric columns %s", e.Step, degree, formatList(e.Details["columns"]))
	}
	return fmt.Sprintf("%s: FeatureGenerator (degree %v) added %d new columns", e.Step, degree, len(toStrings(e.Details["new_columns"])))
}

func explainOutlier(e Event) string {
	method := fmt.Sprint(e.Config["method"])
	if phase(e) == "fit" {
		return fmt.Sprintf("%s: OutlierHandler learned %s bounds for %s", e.Step, method, formatList(e.Details["columns"]))
	}
	return fmt.Sprintf("%s: OutlierHandler clipped %v values in %s", e.Step, valueOr(e.Details["values_clipped"], 0), formatList(e.Details["columns"]))
}

func valueOr(v interface{}, def interface{}) interface{} {
	if v == nil {
		return def
	}
	return v
}

// toStrings accepts []string and the []interface{} produced by JSON decoding.
func toStrings(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, len(list))
		for i, item := range list {
			out[i] = fmt.Sprint(item)
		}
		return out
	default:
		return nil
	}
}

func formatList(v interface{}) string {
	return "[" + strings.Join(toStrings(v), ", ") + "]"
}

func formatShape(v interface{}) string {
	switch s := v.(type) {
	case []int:
		if len(s) == 2 {
			return fmt.Sprintf("%d rows x %d columns", s[0], s[1])
		}
	case []interface{}:
		if len(s) == 2 {
			return fmt.Sprintf("%v rows x %v columns", s[0], s[1])
		}
	}
	return fmt.Sprint(v)
}

// Summary renders the session as text: a header, then one line per event.
func (r *Reporter) Summary() string {
	if len(r.events) == 0 {
		return NoEventsMessage
	}

	var sb strings.Builder
	sb.WriteString("=== Transfory Insight Report ===\n")
	fmt.Fprintf(&sb, "Session: %s\n", r.sessionID)
	fmt.Fprintf(&sb, "Session started: %s\n", r.started.Format(TimestampLayout))
	fmt.Fprintf(&sb, "Total events logged: %d\n\n", len(r.events))
	for _, e := range r.events {
		fmt.Fprintf(&sb, "[%s] %s\n", e.Timestamp.Format(TimestampLayout), Explain(e))
	}
	return sb.String()
}

// tabularColumns are the columns of Tabular, in order.
var tabularColumns = []string{"timestamp", "step", "transformer", "event", "config", "details"}

// Tabular returns the raw event list as a table with one row per event. Config and
// details are JSON encoded.
func (r *Reporter) Tabular() *table.Table {
	values := make([][]string, len(tabularColumns))
	for _, e := range r.events {
		row := []string{
			e.Timestamp.Format(TimestampLayout),
			e.Step,
			e.Transformer,
			e.Kind,
			encodeJSON(e.Config),
			encodeJSON(e.Details),
		}
		for i, v := range row {
			values[i] = append(values[i], v)
		}
	}

	cols := make([]*table.Column, len(tabularColumns))
	for i, name := range tabularColumns {
		cols[i] = table.NewCategorical(name, values[i], nil)
	}
	return table.MustNew(cols...)
}

// Summarize renders the session in the given format (text or table).
func (r *Reporter) Summarize(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatText:
		return r.Summary(), nil
	case FormatTable, "tabular":
		return r.Tabular().String(), nil
	default:
		return "", errhandling.NewExportError(fmt.Sprintf("unsupported summary format %q", format), nil)
	}
}

// encodeJSON renders a map as compact JSON; an empty map renders as "{}".
func encodeJSON(m map[string]interface{}) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprint(m)
	}
	return string(b)
}
