// Package template renders {{path}} placeholders against nested data.
//
// It is used twice during a report execution: report parameters are
// substituted into module configs ({{params.state}}) before modules are
// built, and section narratives are rendered against computed results
// ({{entries[0].label}}).
package template

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/TheUndivideProject/Prototype-1/internal/logger"
)

// Template syntax constants
const (
	// TemplatePrefix is the opening delimiter for template variables
	TemplatePrefix = "{{"
	// TemplateSuffix is the closing delimiter for template variables
	TemplateSuffix = "}}"
)

// Error messages for template evaluation
const (
	ErrMsgInvalidTemplateSyntax = "invalid template syntax"
	ErrMsgEmptyVariablePath     = "empty variable path"
	ErrMsgUnknownFilter         = "unknown filter"
)

// templateVarRegex matches {{path}} followed by any number of "| filter" or
// `| filter: "arg"` clauses.
// Group 1: variable path (e.g., "entries[0].label")
// Group 2: the filter clauses, unparsed
var templateVarRegex = regexp.MustCompile(`\{\{\s*([^|}]+?)((?:\s*\|\s*[a-z]+(?::\s*"[^"]*")?)*)\s*\}\}`)

// filterRegex splits the filter clauses of a variable.
var filterRegex = regexp.MustCompile(`\|\s*([a-z]+)(?::\s*"([^"]*)")?`)

var emptyBracesRegex = regexp.MustCompile(`\{\{\s*\}\}`)

// Filter is one formatting step applied to a resolved value.
type Filter struct {
	Name string
	Arg  string
}

// Variable represents a parsed template variable
type Variable struct {
	FullMatch    string // The full matched string including {{ }}
	Path         string // The variable path (e.g., "params.state")
	DefaultValue string // Default value if specified (empty string if not)
	HasDefault   bool   // Whether a default value was specified
	Filters      []Filter
}

// Filters understood by the evaluator.
//
//	{{x | default: "n/a"}}  value used when x is missing or null
//	{{x | number}}          1234567.8 -> 1,234,568
//	{{x | money}}           1234567.8 -> $1,234,567.80
//	{{x | percent}}         12.345 -> 12.3%
//	{{x | upper}}, {{x | lower}}
var knownFilters = map[string]bool{
	"default": true,
	"number":  true,
	"money":   true,
	"percent": true,
	"upper":   true,
	"lower":   true,
}

// Evaluator evaluates template strings against a data map.
//
// Parsed variables are cached per template string. The cache is guarded by a
// mutex so one Evaluator can serve all sections of an execution.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string][]Variable
}

// NewEvaluator creates a new template evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string][]Variable),
	}
}

// HasVariables checks if a string contains template variables.
func HasVariables(s string) bool {
	return strings.Contains(s, TemplatePrefix) && strings.Contains(s, TemplateSuffix)
}

// ParseVariables extracts all template variables from a template string.
func (e *Evaluator) ParseVariables(template string) []Variable {
	e.mu.RLock()
	cached, ok := e.cache[template]
	e.mu.RUnlock()
	if ok {
		return cached
	}

	matches := templateVarRegex.FindAllStringSubmatch(template, -1)
	variables := make([]Variable, 0, len(matches))
	for _, match := range matches {
		v := Variable{
			FullMatch: match[0],
			Path:      strings.TrimSpace(match[1]),
		}
		for _, f := range filterRegex.FindAllStringSubmatch(match[2], -1) {
			if f[1] == "default" {
				v.DefaultValue = f[2]
				v.HasDefault = true
				continue
			}
			v.Filters = append(v.Filters, Filter{Name: f[1], Arg: f[2]})
		}
		variables = append(variables, v)
	}

	e.mu.Lock()
	e.cache[template] = variables
	e.mu.Unlock()
	return variables
}

// Evaluate replaces every variable in template with its value from data.
//
// Missing fields render as an empty string unless a default is given.
func (e *Evaluator) Evaluate(template string, data map[string]interface{}) string {
	out, _ := e.evaluate(template, data, false)
	return out
}

// EvaluateStrict is Evaluate, but reports the paths of variables that were
// missing and had no default.
func (e *Evaluator) EvaluateStrict(template string, data map[string]interface{}) (string, []string) {
	return e.evaluate(template, data, false)
}

// EvaluatePartial substitutes only the variables whose root segment is a key
// of data and leaves the others in place for a later pass. Missing paths
// under a known root are reported.
func (e *Evaluator) EvaluatePartial(template string, data map[string]interface{}) (string, []string) {
	return e.evaluate(template, data, true)
}

func rootOf(path string) string {
	root, _, _ := strings.Cut(path, ".")
	if i := strings.Index(root, "["); i >= 0 {
		root = root[:i]
	}
	return root
}

func (e *Evaluator) evaluate(template string, data map[string]interface{}, partial bool) (string, []string) {
	if !HasVariables(template) {
		return template, nil
	}
	variables := e.ParseVariables(template)
	if len(variables) == 0 {
		return template, nil
	}

	logger.Debug("evaluating template",
		slog.String("template", truncateForLog(template, 100)),
		slog.Int("variable_count", len(variables)),
	)

	var missing []string
	result := template
	for _, v := range variables {
		if partial {
			if _, known := data[rootOf(v.Path)]; !known {
				continue
			}
		}
		value, ok := e.resolveVariable(v, data)
		if !ok {
			missing = append(missing, v.Path)
		}
		result = strings.Replace(result, v.FullMatch, value, 1)
	}
	return result, missing
}

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// resolveVariable returns the rendered value, and false when the path was
// missing and no default applied.
func (e *Evaluator) resolveVariable(v Variable, data map[string]interface{}) (string, bool) {
	value, found := GetNestedValue(data, v.Path)
	if !found || value == nil {
		if v.HasDefault {
			return v.DefaultValue, true
		}
		logger.Debug("template variable missing, using empty string",
			slog.String("path", v.Path),
		)
		return "", false
	}

	out := ValueToString(value)
	for _, f := range v.Filters {
		out = applyFilter(f, value, out)
	}
	return out, true
}

func applyFilter(f Filter, value interface{}, rendered string) string {
	switch f.Name {
	case "upper":
		return strings.ToUpper(rendered)
	case "lower":
		return strings.ToLower(rendered)
	}

	n, ok := toFloat(value)
	if !ok {
		return rendered
	}
	switch f.Name {
	case "number":
		return groupThousands(decimal.NewFromFloat(n).Round(0).String())
	case "money":
		s := groupThousands(decimal.NewFromFloat(math.Abs(n)).StringFixed(2))
		if n < 0 {
			return "-$" + s
		}
		return "$" + s
	case "percent":
		return decimal.NewFromFloat(n).StringFixed(1) + "%"
	}
	return rendered
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// groupThousands inserts commas into the integer part of a decimal string.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

// GetNestedValue extracts a value from a nested object using dot notation.
// Supports array indexing with [n] syntax.
// Returns the value and a boolean indicating if the field was found.
func GetNestedValue(obj map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	parts := strings.Split(path, ".")
	current := interface{}(obj)

	for _, part := range parts {
		arrayIdx := -1
		key, index, hasIndex := parseArrayNotation(part)
		if hasIndex {
			arrayIdx = index
			part = key
		}

		switch v := current.(type) {
		case map[string]interface{}:
			val, ok := v[part]
			if !ok {
				return nil, false
			}
			current = val
		case map[string]string:
			val, ok := v[part]
			if !ok {
				return nil, false
			}
			current = val
		case map[string]float64:
			val, ok := v[part]
			if !ok {
				return nil, false
			}
			current = val
		default:
			return nil, false
		}

		if arrayIdx >= 0 {
			switch arr := current.(type) {
			case []interface{}:
				if arrayIdx >= len(arr) {
					return nil, false
				}
				current = arr[arrayIdx]
			case []map[string]interface{}:
				if arrayIdx >= len(arr) {
					return nil, false
				}
				current = arr[arrayIdx]
			default:
				return nil, false
			}
		}
	}

	return current, true
}

// parseArrayNotation parses a path part for array indexing.
// E.g., "entries[0]" returns ("entries", 0, true)
func parseArrayNotation(part string) (string, int, bool) {
	idx := strings.Index(part, "[")
	if idx == -1 {
		return part, -1, false
	}

	endIdx := strings.Index(part, "]")
	if endIdx == -1 || endIdx < idx+1 || endIdx != len(part)-1 {
		return part, -1, false
	}

	index, err := strconv.Atoi(part[idx+1 : endIdx])
	if err != nil || index < 0 {
		return part, -1, false
	}

	return part[:idx], index, true
}

// ValueToString converts any value to its string representation.
func ValueToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case float64:
		// Format integers without decimal point
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ValidateSyntax validates that a template string has valid syntax.
// Returns an error if the syntax is invalid (e.g., unmatched braces).
func ValidateSyntax(template string) error {
	if template == "" {
		return nil
	}

	openCount := strings.Count(template, TemplatePrefix)
	closeCount := strings.Count(template, TemplateSuffix)
	if openCount != closeCount {
		return fmt.Errorf("%s: unmatched template delimiters (found %d '{{' and %d '}}')",
			ErrMsgInvalidTemplateSyntax, openCount, closeCount)
	}
	if openCount == 0 {
		return nil
	}

	if emptyBracesRegex.MatchString(template) {
		return fmt.Errorf("%s: %s", ErrMsgInvalidTemplateSyntax, ErrMsgEmptyVariablePath)
	}

	for _, match := range templateVarRegex.FindAllStringSubmatch(template, -1) {
		if strings.TrimSpace(match[1]) == "" {
			return fmt.Errorf("%s: %s", ErrMsgInvalidTemplateSyntax, ErrMsgEmptyVariablePath)
		}
		for _, f := range filterRegex.FindAllStringSubmatch(match[2], -1) {
			if !knownFilters[f[1]] {
				return fmt.Errorf("%s: %s %q", ErrMsgInvalidTemplateSyntax, ErrMsgUnknownFilter, f[1])
			}
		}
	}

	// Every {{ and }} must belong to a match ("}}{{" balances but does not pair).
	remainder := templateVarRegex.ReplaceAllString(template, "")
	if strings.Contains(remainder, TemplatePrefix) || strings.Contains(remainder, TemplateSuffix) {
		return fmt.Errorf("%s: template delimiters must form valid {{...}} expressions (stray '{{' or '}}' found)",
			ErrMsgInvalidTemplateSyntax)
	}

	return nil
}

// EvaluateMapValues partially evaluates every string of a decoded config
// value, recursing into maps and lists. Missing variable paths are collected.
func (e *Evaluator) EvaluateMapValues(data interface{}, vars map[string]interface{}) (interface{}, []string) {
	switch v := data.(type) {
	case string:
		if HasVariables(v) {
			return e.EvaluatePartial(v, vars)
		}
		return v, nil
	case map[string]interface{}:
		var missing []string
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			out, m := e.EvaluateMapValues(val, vars)
			result[key] = out
			missing = append(missing, m...)
		}
		return result, missing
	case []interface{}:
		var missing []string
		result := make([]interface{}, len(v))
		for i, item := range v {
			out, m := e.EvaluateMapValues(item, vars)
			result[i] = out
			missing = append(missing, m...)
		}
		return result, missing
	default:
		return data, nil
	}
}
