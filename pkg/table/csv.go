package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// MissingTokens are the CSV cell values read as missing.
var MissingTokens = []string{"", "NA", "NaN", "nan", "null", "None"}

func isMissingToken(s string) bool {
	s = strings.TrimSpace(s)
	for _, tok := range MissingTokens {
		if s == tok {
			return true
		}
	}
	return false
}

// ReadCSV reads a comma-separated table with a header row. A column is numeric
// when every non-missing cell parses as a float; otherwise it is categorical.
func ReadCSV(r io.Reader) (*Table, error) {
	return ReadDelimited(r, ',')
}

// ReadDelimited is ReadCSV with a custom field delimiter.
func ReadDelimited(r io.Reader, comma rune) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(rows) == 0 {
		return New()
	}

	header := rows[0]
	body := rows[1:]
	cols := make([]*Column, len(header))
	for j, name := range header {
		cols[j] = csvColumn(strings.TrimSpace(name), body, j)
	}
	return New(cols...)
}

func csvColumn(name string, body [][]string, j int) *Column {
	nums := make([]float64, len(body))
	numeric := true
	for i, row := range body {
		cell := ""
		if j < len(row) {
			cell = row[j]
		}
		if isMissingToken(cell) {
			nums[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = f
	}
	if numeric {
		return &Column{name: name, kind: Numeric, nums: nums}
	}

	strs := make([]string, len(body))
	miss := make([]bool, len(body))
	for i, row := range body {
		cell := ""
		if j < len(row) {
			cell = row[j]
		}
		if isMissingToken(cell) {
			miss[i] = true
			continue
		}
		strs[i] = cell
	}
	return &Column{name: name, kind: Categorical, strs: strs, missing: miss}
}

// WriteCSV writes the table with a header row; missing values are written as "".
func (t *Table) WriteCSV(w io.Writer) error {
	return t.WriteDelimited(w, ',')
}

// WriteDelimited is WriteCSV with a custom field delimiter.
func (t *Table) WriteDelimited(w io.Writer, comma rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = comma
	if err := writer.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	record := make([]string, len(t.columns))
	for r := range t.rows {
		for i, c := range t.columns {
			record[i] = c.Str(r)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", r, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
