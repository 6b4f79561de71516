package insight

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
	"github.com/Troge-dev/Transfory/pkg/transformer"
)

var fixedTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func newTestReporter() *Reporter {
	return NewReporter(WithClock(func() time.Time { return fixedTime }), WithSessionID("session-1"))
}

func TestNewReporter(t *testing.T) {
	r := NewReporter()
	if r.SessionID() == "" {
		t.Error("SessionID() should be generated")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if NewReporter().SessionID() == r.SessionID() {
		t.Error("two reporters should not share a session id")
	}
}

func TestRecordDefaults(t *testing.T) {
	r := newTestReporter()
	r.Record("s1", transformer.Payload{Transformer: "Custom"})

	events := r.Events()
	if len(events) != 1 {
		t.Fatalf("len(Events()) = %d, want 1", len(events))
	}
	e := events[0]
	if e.Kind != UnknownEvent {
		t.Errorf("Kind = %q, want %q", e.Kind, UnknownEvent)
	}
	if e.Details == nil || len(e.Details) != 0 {
		t.Errorf("Details = %v, want empty map", e.Details)
	}
	if !e.Timestamp.Equal(fixedTime) || e.Step != "s1" {
		t.Errorf("event = %+v", e)
	}
}

func TestEventsAreCopies(t *testing.T) {
	r := newTestReporter()
	details := map[string]interface{}{"rows": 3}
	r.Record("s", transformer.Payload{Event: "fit", Details: details})

	details["rows"] = 99
	events := r.Events()
	events[0].Details["rows"] = 42

	if got := r.Events()[0].Details["rows"]; got != 3 {
		t.Errorf("stored details mutated: rows = %v", got)
	}
}

func TestCallbackWithTransformer(t *testing.T) {
	r := newTestReporter()
	scaler, err := transformer.NewScaler(transformer.MethodMinMax)
	if err != nil {
		t.Fatal(err)
	}
	scaler.SetLogging("scale", r.Callback())

	data := table.MustNew(table.MustValues("x", 1, 2, 3))
	if _, err := scaler.FitTransform(data, nil); err != nil {
		t.Fatal(err)
	}

	events := r.Events()
	if len(events) != 2 {
		t.Fatalf("len(Events()) = %d, want 2", len(events))
	}
	if events[0].Kind != "fit" || events[1].Kind != "transform" {
		t.Errorf("kinds = %q, %q", events[0].Kind, events[1].Kind)
	}
	if events[0].Step != "scale" || events[0].Transformer != "Scaler" {
		t.Errorf("event = %+v", events[0])
	}
}

func TestClear(t *testing.T) {
	r := newTestReporter()
	r.Record("s", transformer.Payload{Event: "fit"})
	r.Clear()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", r.Len())
	}
	if r.Summary() != NoEventsMessage {
		t.Errorf("Summary() = %q", r.Summary())
	}
	if !r.Started().Equal(fixedTime) {
		t.Error("Clear should keep the session start time")
	}
}

func TestExplain(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  []string
	}{
		{
			name: "imputer fit",
			event: Event{Step: "impute", Transformer: "Imputer", Kind: "fit",
				Config: map[string]interface{}{"strategy": "mean"}, Details: map[string]interface{}{"columns": []string{"age"}}},
			want: []string{"impute:", "learned mean fill values", "[age]"},
		},
		{
			name: "imputer transform",
			event: Event{Step: "impute", Transformer: "Imputer", Kind: "transform",
				Config: map[string]interface{}{"strategy": "mean"}, Details: map[string]interface{}{"columns": []string{"age"}, "values_filled": 1}},
			want: []string{"filled 1 missing values"},
		},
		{
			name: "encoder kebab case",
			event: Event{Step: "enc", Transformer: "label-encoder", Kind: "transform",
				Config: map[string]interface{}{"method": "onehot"}, Details: map[string]interface{}{"columns": []interface{}{"city"}, "new_columns": []interface{}{"city_A", "city_B"}}},
			want: []string{"Encoder (onehot) encoded [city]", "2 indicator columns"},
		},
		{
			name: "feature generator snake case",
			event: Event{Step: "poly", Transformer: "feature_generator", Kind: "transform",
				Config: map[string]interface{}{"degree": 2}, Details: map[string]interface{}{"new_columns": []string{"a^2", "b^2", "a_x_b"}}},
			want: []string{"added 3 new columns"},
		},
		{
			name: "scaler fit_end with output shape",
			event: Event{Step: "scale", Transformer: "Scaler", Kind: "fit_end",
				Config: map[string]interface{}{"method": "zscore"}, Details: map[string]interface{}{"columns": []string{"x"}, "output_shape": []int{5, 2}}},
			want: []string{"learned scaling parameters", "(output 5 rows x 2 columns)"},
		},
		{
			name: "start event",
			event: Event{Step: "clip", Transformer: "OutlierHandler", Kind: "fit_start",
				Details: map[string]interface{}{"shape": []int{10, 3}}},
			want: []string{"clip: OutlierHandler fit started on 10 rows x 3 columns"},
		},
		{
			name:  "unknown transformer",
			event: Event{Step: "custom", Transformer: "Custom", Kind: "fit"},
			want:  []string{"custom completed fit"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Explain(tt.event)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Explain() = %q, want it to contain %q", got, w)
				}
			}
		})
	}
}

func TestSummary(t *testing.T) {
	r := newTestReporter()
	if r.Summary() != NoEventsMessage {
		t.Errorf("empty Summary() = %q", r.Summary())
	}

	r.Record("impute", transformer.Payload{Event: "fit", Transformer: "Imputer", Config: map[string]interface{}{"strategy": "median"}})
	r.Record("custom", transformer.Payload{Event: "transform", Transformer: "Custom"})

	got := r.Summary()
	for _, want := range []string{
		"=== Transfory Insight Report ===",
		"Session: session-1",
		"Session started: 2024-03-01 12:30:00",
		"Total events logged: 2",
		"[2024-03-01 12:30:00] impute: Imputer learned median fill values",
		"[2024-03-01 12:30:00] custom completed transform",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() missing %q\n%s", want, got)
		}
	}
}

func TestTabular(t *testing.T) {
	r := newTestReporter()
	empty := r.Tabular()
	if empty.NumRows() != 0 || empty.NumCols() != 6 {
		t.Errorf("empty Tabular() shape = %v", empty.Shape())
	}

	r.Record("s", transformer.Payload{Event: "fit", Transformer: "Scaler", Details: map[string]interface{}{"columns": []string{"x"}}})
	tab := r.Tabular()
	if tab.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", tab.NumRows())
	}
	details, _ := tab.Column("details")
	if details.Str(0) != `{"columns":["x"]}` {
		t.Errorf("details = %q", details.Str(0))
	}
	event, _ := tab.Column("event")
	if event.Str(0) != "fit" {
		t.Errorf("event = %q", event.Str(0))
	}
}

func TestSummarize(t *testing.T) {
	r := newTestReporter()
	r.Record("s", transformer.Payload{Event: "fit", Transformer: "Scaler"})

	text, err := r.Summarize("text")
	if err != nil || !strings.Contains(text, "Total events logged: 1") {
		t.Errorf("Summarize(text) = %q, %v", text, err)
	}
	tab, err := r.Summarize("table")
	if err != nil || !strings.Contains(tab, "transformer") {
		t.Errorf("Summarize(table) = %q, %v", tab, err)
	}
	if _, err := r.Summarize("html"); !errors.Is(err, errhandling.ErrExport) {
		t.Errorf("Summarize(html) error = %v, want ErrExport", err)
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	r := newTestReporter()

	if err := r.Export(filepath.Join(dir, "empty.json"), ExportJSON); !errors.Is(err, errhandling.ErrExport) {
		t.Errorf("empty Export() error = %v, want ErrExport", err)
	}

	r.Record("impute", transformer.Payload{Event: "fit", Transformer: "Imputer",
		Config: map[string]interface{}{"strategy": "mean"}, Details: map[string]interface{}{"columns": []string{"age"}}})
	r.Record("impute", transformer.Payload{Event: "transform", Transformer: "Imputer",
		Details: map[string]interface{}{"values_filled": 2}})

	if err := r.Export(filepath.Join(dir, "log.xml"), "xml"); !errors.Is(err, errhandling.ErrExport) {
		t.Errorf("Export(xml) error = %v, want ErrExport", err)
	}

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "out", "log.json")
		if err := r.Export(path, ExportJSON); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var records []map[string]interface{}
		if err := json.Unmarshal(data, &records); err != nil {
			t.Fatal(err)
		}
		if len(records) != 2 {
			t.Fatalf("len(records) = %d, want 2", len(records))
		}
		if records[0]["timestamp"] != "2024-03-01 12:30:00" || records[0]["event"] != "fit" {
			t.Errorf("record = %v", records[0])
		}
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		if err := r.WriteCSV(&buf); err != nil {
			t.Fatal(err)
		}
		rows, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		wantHeader := []string{"timestamp", "step", "transformer", "event", "config", "columns", "values_filled"}
		if strings.Join(rows[0], ",") != strings.Join(wantHeader, ",") {
			t.Errorf("header = %v, want %v", rows[0], wantHeader)
		}
		if rows[1][5] != `["age"]` || rows[1][6] != "" {
			t.Errorf("row 1 = %v", rows[1])
		}
		if rows[2][5] != "" || rows[2][6] != "2" {
			t.Errorf("row 2 = %v", rows[2])
		}
	})
}
