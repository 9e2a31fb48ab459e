package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported report file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// decoder turns file content into a generic document and maps decoder
// failures to a located ParseError.
type decoder struct {
	unmarshal func(content []byte, v interface{}) error
	locate    func(err error, content []byte) ParseError
	kind      string
}

var decoders = map[string]decoder{
	FormatJSON: {unmarshal: json.Unmarshal, locate: jsonError, kind: "JSON object"},
	FormatYAML: {unmarshal: yaml.Unmarshal, locate: yamlError, kind: "YAML mapping"},
}

// ParseJSONString parses JSON report content.
func ParseJSONString(content string) *ParseResult {
	return parse([]byte(content), FormatJSON)
}

// ParseYAMLString parses YAML report content. A document holding only
// comments parses to nil data without errors.
func ParseYAMLString(content string) *ParseResult {
	return parse([]byte(content), FormatYAML)
}

func parse(content []byte, format string) *ParseResult {
	result := &ParseResult{Format: format}
	dec, ok := decoders[format]
	if !ok {
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("unsupported format: %s", format),
			Type:    ErrorTypeFormat,
		})
		return result
	}
	if len(bytes.TrimSpace(content)) == 0 {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected " + dec.kind,
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var doc interface{}
	if err := dec.unmarshal(content, &doc); err != nil {
		result.Errors = append(result.Errors, dec.locate(err, content))
		return result
	}
	if doc == nil {
		return result
	}
	data, ok := doc.(map[string]interface{})
	if !ok {
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("invalid configuration: expected %s, got %T", dec.kind, doc),
			Type:    ErrorTypeFormat,
		})
		return result
	}
	result.Data = data
	return result
}

// ParseConfig reads, parses, and validates a report file. The format comes
// from the extension, or from the content when the extension is unknown.
func ParseConfig(filepath string) *Result {
	result := &Result{FilePath: filepath}

	content, err := os.ReadFile(filepath)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    filepath,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	format := DetectFormat(filepath)
	if format == "" {
		format = sniffFormat(content)
	}
	check(result, content, format)
	return result
}

// ParseConfigString parses and validates report content. An empty format is
// detected from the content.
func ParseConfigString(content string, format string) *Result {
	result := &Result{}
	if format == "" {
		format = sniffFormat([]byte(content))
	}
	check(result, []byte(content), format)
	return result
}

// check parses content into result, expands ${ENV} references, and
// validates the document. Each step runs only when the previous succeeded.
func check(result *Result, content []byte, format string) {
	if format == "" {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    result.FilePath,
			Message: "unable to detect configuration format: not valid JSON or YAML",
			Type:    ErrorTypeFormat,
		})
		return
	}

	parsed := parse(content, format)
	result.Format = parsed.Format
	result.Data = parsed.Data
	for _, e := range parsed.Errors {
		if e.Path == "" {
			e.Path = result.FilePath
		}
		result.ParseErrors = append(result.ParseErrors, e)
	}
	if !parsed.IsValid() {
		return
	}

	data, envErrs := ExpandEnv(result.Data)
	result.Data = data
	for _, e := range envErrs {
		e.Path = result.FilePath
		result.ParseErrors = append(result.ParseErrors, e)
	}
	if len(envErrs) > 0 {
		return
	}
	result.ValidationErrors = ValidateConfig(result.Data).Errors
}

// DetectFormat maps a file extension to a format, or "" when unknown.
func DetectFormat(filepath string) string {
	switch strings.ToLower(path.Ext(filepath)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// sniffFormat guesses the format of content. JSON is also YAML, so a leading
// brace or bracket wins.
func sniffFormat(content []byte) string {
	trimmed := bytes.TrimSpace(content)
	switch {
	case len(trimmed) == 0:
		return ""
	case trimmed[0] == '{' || trimmed[0] == '[':
		return FormatJSON
	}
	var doc interface{}
	if err := yaml.Unmarshal(trimmed, &doc); err == nil && doc != nil {
		return FormatYAML
	}
	return ""
}

func jsonError(err error, content []byte) ParseError {
	pe := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		pe.Offset = syntaxErr.Offset
		pe.Message = fmt.Sprintf("JSON syntax error at offset %d: %s", syntaxErr.Offset, syntaxErr.Error())
	case errors.As(err, &typeErr):
		pe.Offset = typeErr.Offset
		pe.Message = fmt.Sprintf("type error at field '%s': expected %s, got %s",
			typeErr.Field, typeErr.Type.String(), typeErr.Value)
	default:
		return pe
	}
	pe.Line, pe.Column = lineColumn(content, pe.Offset)
	return pe
}

// lineColumn converts a byte offset to a 1-based line and column.
func lineColumn(content []byte, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

func yamlError(err error, _ []byte) ParseError {
	pe := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		pe.Message = "YAML type error: " + strings.Join(typeErr.Errors, "; ")
	}
	// yaml.v3 reports positions only in the message: "yaml: line N: ...".
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		pe.Line = line
	}
	return pe
}
