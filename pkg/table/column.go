// Package table provides the immutable in-memory tables transformers operate on.
// A Table is an ordered set of uniquely named, equal-length columns. A Column is
// either numeric (float64, NaN marks a missing entry) or categorical (string with an
// explicit missing marker). Nothing in this package mutates a column or a table after
// construction; derived tables share the columns they did not change.
package table

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the value kind of a column.
type Kind int

// Column kinds.
const (
	Numeric Kind = iota + 1
	Categorical
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is a named, immutable sequence of values of a single kind.
type Column struct {
	name    string
	kind    Kind
	nums    []float64
	strs    []string
	missing []bool
}

// NewNumeric creates a numeric column. NaN entries are missing. values is copied.
func NewNumeric(name string, values []float64) *Column {
	nums := make([]float64, len(values))
	copy(nums, values)
	return &Column{name: name, kind: Numeric, nums: nums}
}

// NewCategorical creates a categorical column. missing must be nil (no missing
// entries) or parallel to values; the string at a missing position is ignored.
// Both slices are copied.
func NewCategorical(name string, values []string, missing []bool) *Column {
	strs := make([]string, len(values))
	miss := make([]bool, len(values))
	for i, v := range values {
		if i < len(missing) && missing[i] {
			miss[i] = true
			continue
		}
		strs[i] = v
	}
	return &Column{name: name, kind: Categorical, strs: strs, missing: miss}
}

// FromValues creates a column from loosely typed values. nil and NaN are missing.
// A column whose non-missing values are all numbers is numeric; any string makes it
// categorical (numbers are then rendered with strconv). An all-missing column is numeric.
func FromValues(name string, values ...interface{}) (*Column, error) {
	numeric := true
	for i, v := range values {
		switch v.(type) {
		case nil, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		case string:
			numeric = false
		default:
			return nil, fmt.Errorf("%w: column %q row %d has type %T", ErrUnsupportedValue, name, i, v)
		}
	}

	if numeric {
		nums := make([]float64, len(values))
		for i, v := range values {
			nums[i] = toFloat(v)
		}
		return &Column{name: name, kind: Numeric, nums: nums}, nil
	}

	strs := make([]string, len(values))
	miss := make([]bool, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
			miss[i] = true
		case string:
			strs[i] = x
		default:
			f := toFloat(x)
			if math.IsNaN(f) {
				miss[i] = true
				continue
			}
			strs[i] = formatFloat(f)
		}
	}
	return &Column{name: name, kind: Categorical, strs: strs, missing: miss}, nil
}

// MustValues is like FromValues but panics on error. Intended for tests and literals.
func MustValues(name string, values ...interface{}) *Column {
	c, err := FromValues(name, values...)
	if err != nil {
		panic(err)
	}
	return c
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	default:
		return math.NaN()
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the column kind.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of rows.
func (c *Column) Len() int {
	if c.kind == Numeric {
		return len(c.nums)
	}
	return len(c.strs)
}

// IsNumeric reports whether the column is numeric.
func (c *Column) IsNumeric() bool { return c.kind == Numeric }

// IsMissing reports whether row i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.kind == Numeric {
		return math.IsNaN(c.nums[i])
	}
	return c.missing[i]
}

// Float returns row i of a numeric column (NaN when missing).
// Categorical columns always return NaN.
func (c *Column) Float(i int) float64 {
	if c.kind != Numeric {
		return math.NaN()
	}
	return c.nums[i]
}

// Str returns row i rendered as a string; missing entries render as "".
func (c *Column) Str(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	if c.kind == Numeric {
		return formatFloat(c.nums[i])
	}
	return c.strs[i]
}

// Value returns row i as nil (missing), float64 or string.
func (c *Column) Value(i int) interface{} {
	if c.IsMissing(i) {
		return nil
	}
	if c.kind == Numeric {
		return c.nums[i]
	}
	return c.strs[i]
}

// MissingCount returns the number of missing entries.
func (c *Column) MissingCount() int {
	n := 0
	for i := range c.Len() {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Floats returns a copy of a numeric column's values, or nil for categorical columns.
func (c *Column) Floats() []float64 {
	if c.kind != Numeric {
		return nil
	}
	out := make([]float64, len(c.nums))
	copy(out, c.nums)
	return out
}

// ObservedFloats returns the non-missing values of a numeric column in row order.
func (c *Column) ObservedFloats() []float64 {
	if c.kind != Numeric {
		return nil
	}
	out := make([]float64, 0, len(c.nums))
	for _, v := range c.nums {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// ObservedStrings returns the non-missing values rendered as strings in row order.
func (c *Column) ObservedStrings() []string {
	out := make([]string, 0, c.Len())
	for i := range c.Len() {
		if !c.IsMissing(i) {
			out = append(out, c.Str(i))
		}
	}
	return out
}

// Rename returns a column with the same values under a new name.
func (c *Column) Rename(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

// Take returns a column holding the given rows, in the given order.
func (c *Column) Take(rows []int) *Column {
	if c.kind == Numeric {
		nums := make([]float64, len(rows))
		for i, r := range rows {
			nums[i] = c.nums[r]
		}
		return &Column{name: c.name, kind: Numeric, nums: nums}
	}
	strs := make([]string, len(rows))
	miss := make([]bool, len(rows))
	for i, r := range rows {
		strs[i] = c.strs[r]
		miss[i] = c.missing[r]
	}
	return &Column{name: c.name, kind: Categorical, strs: strs, missing: miss}
}

// Equal reports whether two columns have the same name, kind and values.
// Missing entries compare equal to each other.
func (c *Column) Equal(o *Column) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.name != o.name || c.kind != o.kind || c.Len() != o.Len() {
		return false
	}
	for i := range c.Len() {
		if c.IsMissing(i) != o.IsMissing(i) {
			return false
		}
		if c.IsMissing(i) {
			continue
		}
		if c.kind == Numeric {
			if c.nums[i] != o.nums[i] {
				return false
			}
		} else if c.strs[i] != o.strs[i] {
			return false
		}
	}
	return true
}
