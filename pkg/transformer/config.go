package transformer

import (
	"fmt"
	"math"

	"github.com/Troge-dev/Transfory/pkg/errhandling"
)

// Raw configuration maps come from YAML (ints) or JSON (float64) documents, so the
// accessors below accept every numeric representation.

func rawString(component string, raw map[string]interface{}, key, def string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errhandling.NewConfigurationError(component, fmt.Sprintf("'%s' must be a string, got %T", key, v))
	}
	return s, nil
}

func rawFloat(component string, raw map[string]interface{}, key string, def float64) (float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := asFloat(v)
	if !ok {
		return 0, errhandling.NewConfigurationError(component, fmt.Sprintf("'%s' must be a number, got %T", key, v))
	}
	return f, nil
}

func rawInt(component string, raw map[string]interface{}, key string, def int) (int, error) {
	f, err := rawFloat(component, raw, key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, errhandling.NewConfigurationError(component, fmt.Sprintf("'%s' must be an integer, got %v", key, f))
	}
	return int(f), nil
}

func rawBool(component string, raw map[string]interface{}, key string, def bool) (bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errhandling.NewConfigurationError(component, fmt.Sprintf("'%s' must be a boolean, got %T", key, v))
	}
	return b, nil
}

func rawStrings(component string, raw map[string]interface{}, key string) ([]string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []interface{}:
		out := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, errhandling.NewConfigurationError(component, fmt.Sprintf("'%s[%d]' must be a string, got %T", key, i, item))
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, errhandling.NewConfigurationError(component, fmt.Sprintf("'%s' must be a list of strings, got %T", key, v))
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

// putColumns records an explicit column restriction in a config map.
func putColumns(cfg map[string]interface{}, columns []string) {
	if len(columns) > 0 {
		cfg["columns"] = append([]string(nil), columns...)
	}
}
