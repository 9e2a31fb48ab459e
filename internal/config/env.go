package config

import (
	"fmt"
	"os"
	"regexp"
)

// envRefRegex matches ${NAME} and ${NAME:-default}.
var envRefRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv returns a copy of data with ${NAME} references in every string
// replaced from the environment. A reference to an unset variable without a
// default is reported as an error and left in place.
func ExpandEnv(data map[string]interface{}) (map[string]interface{}, []ParseError) {
	if data == nil {
		return nil, nil
	}
	var errs []ParseError
	out, _ := expandValue(data, &errs).(map[string]interface{})
	return out, errs
}

func expandValue(v interface{}, errs *[]ParseError) interface{} {
	switch val := v.(type) {
	case string:
		return expandString(val, errs)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = expandValue(item, errs)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = expandValue(item, errs)
		}
		return out
	default:
		return v
	}
}

func expandString(s string, errs *[]ParseError) string {
	return envRefRegex.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRefRegex.FindStringSubmatch(ref)
		if value, ok := os.LookupEnv(m[1]); ok {
			return value
		}
		// m[0] contains ":-" only when a default was written, even an empty one
		if len(m[0]) > len(m[1])+3 {
			return m[2]
		}
		*errs = append(*errs, ParseError{
			Message: fmt.Sprintf("environment variable %s is not set", m[1]),
			Type:    ErrorTypeEnv,
		})
		return ref
	})
}
