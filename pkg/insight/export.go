package insight

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Troge-dev/Transfory/internal/pathutil"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
)

// Export formats.
const (
	ExportJSON = "json"
	ExportCSV  = "csv"
)

// csvBaseFields lead every CSV export; detail keys follow in first-seen order.
var csvBaseFields = []string{"timestamp", "step", "transformer", "event", "config"}

// record is the JSON shape of one exported event.
type record struct {
	Timestamp   string                 `json:"timestamp"`
	Step        string                 `json:"step"`
	Transformer string                 `json:"transformer"`
	Event       string                 `json:"event"`
	Config      map[string]interface{} `json:"config"`
	Details     map[string]interface{} `json:"details"`
}

// Export writes the event list to path in the given format. An empty session, an
// unknown format and any write failure are reported as export errors.
func (r *Reporter) Export(path, format string) error {
	if len(r.events) == 0 {
		return errhandling.NewExportError("no events to export", nil)
	}

	var write func(io.Writer) error
	switch strings.ToLower(format) {
	case ExportJSON:
		write = r.WriteJSON
	case ExportCSV:
		write = r.WriteCSV
	default:
		return errhandling.NewExportError(fmt.Sprintf("unsupported export format %q (expected json or csv)", format), nil)
	}

	if err := pathutil.EnsureParentDir(path); err != nil {
		return errhandling.NewExportError("preparing export path", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errhandling.NewExportError(fmt.Sprintf("creating %s", path), err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return errhandling.NewExportError(fmt.Sprintf("writing %s", path), err)
	}
	if err := f.Close(); err != nil {
		return errhandling.NewExportError(fmt.Sprintf("closing %s", path), err)
	}
	return nil
}

// WriteJSON writes the events as an indented JSON array.
func (r *Reporter) WriteJSON(w io.Writer) error {
	records := make([]record, len(r.events))
	for i, e := range r.events {
		cfg := e.Config
		if cfg == nil {
			cfg = map[string]interface{}{}
		}
		records[i] = record{
			Timestamp:   e.Timestamp.Format(TimestampLayout),
			Step:        e.Step,
			Transformer: e.Transformer,
			Event:       e.Kind,
			Config:      cfg,
			Details:     e.Details,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteCSV writes one row per event. Each detail key becomes its own column; the
// header is the union of keys across all events, and events lacking a key leave
// the cell empty. Non-scalar values are JSON encoded.
func (r *Reporter) WriteCSV(w io.Writer) error {
	header := append([]string(nil), csvBaseFields...)
	seen := make(map[string]bool, len(header))
	for _, f := range header {
		seen[f] = true
	}
	for _, e := range r.events {
		for _, k := range sortedKeys(e.Details) {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range r.events {
		row := []string{
			e.Timestamp.Format(TimestampLayout),
			e.Step,
			e.Transformer,
			e.Kind,
			encodeJSON(e.Config),
		}
		for _, k := range header[len(csvBaseFields):] {
			v, ok := e.Details[k]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, cellValue(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
