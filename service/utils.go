package service

import (
	"encoding/json"
	"strconv"
)

// Float coerces JSON decoded numbers, and numeric strings, into a float64.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func Bool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case int:
		return b != 0, true
	default:
		return false, false
	}
}

func Clamp(v float64, min float64, max float64) float64 {
	if v < min {
		return min
	}

	if v > max {
		return max
	}

	return v
}

// Map returns a converter that translates string values through a table.
func Map[T any](m map[string]T) func(any) (any, bool) {
	return func(v any) (any, bool) {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}

		t, found := m[s]
		return t, found
	}
}

// Numeric is a converter accepting any numeric value.
func Numeric(v any) (any, bool) {
	return Float(v)
}
