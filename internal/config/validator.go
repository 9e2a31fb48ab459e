package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/report-schema.json
var embeddedSchema []byte

const schemaURL = "https://github.com/TheUndivideProject/Prototype-1/schemas/report/v1.0.0/report-schema.json"

// GetEmbeddedSchema returns the embedded report schema.
func GetEmbeddedSchema() []byte {
	return embeddedSchema
}

// compiledSchema compiles the embedded schema on first use.
var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(embeddedSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
})

// ValidateConfig validates a parsed configuration against the report schema,
// then checks the cross-references the schema cannot express: unique names
// and parameter defaults within their allowed values.
func ValidateConfig(data map[string]interface{}) *ValidationResult {
	if len(data) == 0 {
		return invalid(ValidationError{Path: "/", Type: "required", Message: "configuration is empty"})
	}

	schema, err := compiledSchema()
	if err != nil {
		return invalid(ValidationError{Path: "/", Type: "schema", Message: fmt.Sprintf("failed to load schema: %v", err)})
	}

	if err := schema.Validate(data); err != nil {
		var detailed *jsonschema.ValidationError
		if !errors.As(err, &detailed) {
			return invalid(ValidationError{Path: "/", Type: "validation", Message: err.Error()})
		}
		return invalid(leafErrors(detailed)...)
	}

	errs := checkReferences(data)
	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func invalid(errs ...ValidationError) *ValidationResult {
	return &ValidationResult{Valid: false, Errors: errs}
}

// checkReferences reports duplicate source, view, section, and parameter
// names, and parameter defaults outside their allowed list.
func checkReferences(data map[string]interface{}) []ValidationError {
	rep, _ := data["report"].(map[string]interface{})
	var errs []ValidationError

	tables := map[string]string{}
	for _, kind := range []string{"sources", "views"} {
		items, _ := rep[kind].([]interface{})
		for i, item := range items {
			m, _ := item.(map[string]interface{})
			name, _ := m["name"].(string)
			path := fmt.Sprintf("/report/%s/%d/name", kind, i)
			if prev, dup := tables[name]; dup {
				errs = append(errs, ValidationError{
					Path: path, Type: "unique",
					Message: fmt.Sprintf("name %q is already used at %s", name, prev),
				})
				continue
			}
			tables[name] = path
		}
	}

	for _, kind := range []string{"sections", "parameters"} {
		seen := map[string]bool{}
		items, _ := rep[kind].([]interface{})
		for i, item := range items {
			m, _ := item.(map[string]interface{})
			name, _ := m["name"].(string)
			if seen[name] {
				errs = append(errs, ValidationError{
					Path: fmt.Sprintf("/report/%s/%d/name", kind, i), Type: "unique",
					Message: fmt.Sprintf("duplicate %s name %q", strings.TrimSuffix(kind, "s"), name),
				})
			}
			seen[name] = true
		}
	}

	params, _ := rep["parameters"].([]interface{})
	for i, item := range params {
		m, _ := item.(map[string]interface{})
		allowed, _ := m["allowed"].([]interface{})
		if len(allowed) == 0 {
			continue
		}
		def := fmt.Sprint(valueOr(m["default"], ""))
		ok := false
		for _, a := range allowed {
			if fmt.Sprint(a) == def {
				ok = true
				break
			}
		}
		if !ok {
			errs = append(errs, ValidationError{
				Path: fmt.Sprintf("/report/parameters/%d/default", i), Type: "enum",
				Expected: fmt.Sprint(allowed), Actual: def,
				Message: fmt.Sprintf("default %q is not one of the allowed values", def),
			})
		}
	}
	return errs
}

func valueOr(v, def interface{}) interface{} {
	if v == nil {
		return def
	}
	return v
}

// leafErrors flattens a schema validation error tree into the failures that
// have no further causes, which are the ones a user can act on.
func leafErrors(err *jsonschema.ValidationError) []ValidationError {
	if len(err.Causes) == 0 {
		return []ValidationError{{
			Path:    instancePath(err.InstanceLocation),
			Type:    keyword(err),
			Message: leafMessage(err),
		}}
	}
	var out []ValidationError
	for _, cause := range err.Causes {
		out = append(out, leafErrors(cause)...)
	}
	return out
}

func instancePath(loc []string) string {
	return "/" + strings.Join(loc, "/")
}

// keyword names the schema keyword that failed, such as "required" or "enum".
func keyword(err *jsonschema.ValidationError) string {
	if err.ErrorKind == nil {
		return "validation"
	}
	path := err.ErrorKind.KeywordPath()
	if len(path) == 0 {
		return "validation"
	}
	return path[len(path)-1]
}

// leafMessage drops the "jsonschema validation failed" preamble and the
// location prefix the library puts in front of every message.
func leafMessage(err *jsonschema.ValidationError) string {
	msg := err.Error()
	if at := strings.Index(msg, "- at '"); at >= 0 {
		if i := strings.Index(msg[at:], "': "); i >= 0 {
			msg = msg[at+i+3:]
		}
	}
	return strings.TrimSpace(msg)
}
