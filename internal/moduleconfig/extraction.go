// Package moduleconfig provides shared extraction helpers for module configuration maps.
//
// Module configs arrive as map[string]interface{} decoded from YAML or JSON, so
// numbers may be int, int64, uint64, or float64 and lists are []interface{}.
// The helpers normalize those shapes and return descriptive errors.
package moduleconfig

import (
	"fmt"
	"math"
	"strconv"
)

// OnError behavior constants shared by filter modules.
const (
	OnErrorFail = "fail"
	OnErrorSkip = "skip"
	OnErrorLog  = "log"
)

// String returns a required non-empty string field.
func String(cfg map[string]interface{}, key string) (string, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required field %q is missing", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string, got %T", key, v)
	}
	if s == "" {
		return "", fmt.Errorf("field %q cannot be empty", key)
	}
	return s, nil
}

// OptionalString returns a string field or def when absent.
func OptionalString(cfg map[string]interface{}, key, def string) (string, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case int, int64, float64, bool:
		// YAML decodes unquoted scalars (state: 06, value: 1) as numbers.
		return fmt.Sprint(s), nil
	default:
		return "", fmt.Errorf("field %q must be a string, got %T", key, v)
	}
}

// Bool returns a boolean field or def when absent.
func Bool(cfg map[string]interface{}, key string, def bool) (bool, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("field %q must be a boolean, got %q", key, b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("field %q must be a boolean, got %T", key, v)
	}
}

// ToFloat converts a decoded number (or numeric string) to float64.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// OptionalFloat returns a numeric field, or nil when absent.
func OptionalFloat(cfg map[string]interface{}, key string) (*float64, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := ToFloat(v)
	if !ok || math.IsNaN(f) {
		return nil, fmt.Errorf("field %q must be a number, got %v", key, v)
	}
	return &f, nil
}

// Int returns an integer field or def when absent.
func Int(cfg map[string]interface{}, key string, def int) (int, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("field %q must be an integer, got %v", key, v)
	}
	return int(f), nil
}

// StringSlice returns a list-of-strings field. Numeric items are formatted.
func StringSlice(cfg map[string]interface{}, key string) ([]string, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for i, item := range list {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case int, int64, float64:
				out = append(out, fmt.Sprint(s))
			default:
				return nil, fmt.Errorf("field %q[%d] must be a string, got %T", key, i, item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q must be a list, got %T", key, v)
	}
}

// FloatSlice returns a list-of-numbers field.
func FloatSlice(cfg map[string]interface{}, key string) ([]float64, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		if fs, ok := v.([]float64); ok {
			return fs, nil
		}
		return nil, fmt.Errorf("field %q must be a list of numbers, got %T", key, v)
	}
	out := make([]float64, 0, len(list))
	for i, item := range list {
		f, ok := ToFloat(item)
		if !ok {
			return nil, fmt.Errorf("field %q[%d] must be a number, got %v", key, i, item)
		}
		out = append(out, f)
	}
	return out, nil
}

// Map returns a nested object field, or nil when absent.
func Map(cfg map[string]interface{}, key string) (map[string]interface{}, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("field %q must be an object, got %T", key, v)
	}
	return m, nil
}

// MapSlice returns a list-of-objects field.
func MapSlice(cfg map[string]interface{}, key string) ([]map[string]interface{}, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		if ms, ok := v.([]map[string]interface{}); ok {
			return ms, nil
		}
		return nil, fmt.Errorf("field %q must be a list of objects, got %T", key, v)
	}
	out := make([]map[string]interface{}, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q[%d] must be an object, got %T", key, i, item)
		}
		out = append(out, m)
	}
	return out, nil
}

// OnError returns the normalized onError mode. Empty means fail.
func OnError(cfg map[string]interface{}) (string, error) {
	mode, err := OptionalString(cfg, "onError", OnErrorFail)
	if err != nil {
		return "", err
	}
	if mode == "" {
		mode = OnErrorFail
	}
	if err := ValidateOnError(mode); err != nil {
		return "", err
	}
	return mode, nil
}

// ValidateOnError validates that onError is one of fail, skip, log.
func ValidateOnError(onError string) error {
	switch onError {
	case OnErrorFail, OnErrorSkip, OnErrorLog:
		return nil
	default:
		return fmt.Errorf("invalid onError value %q (must be fail, skip, or log)", onError)
	}
}
