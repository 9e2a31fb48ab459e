// Package config provides functionality for parsing and validating
// report configuration files (JSON/YAML).
//
// A report file is decoded with gopkg.in/yaml.v3 or encoding/json, has its
// ${ENV} references expanded, is validated against the embedded JSON schema,
// and is converted into a pkg/report.Report whose BaseDir is the file's
// directory.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// Load reads, validates, and converts the report configuration at path.
// Syntax and I/O failures are parse errors; schema and reference failures
// are validation errors.
func Load(path string) (*report.Report, error) {
	result := ParseConfig(path)
	if err := result.Err(); err != nil {
		return nil, err
	}
	r, err := ConvertToReport(result.Data)
	if err != nil {
		return nil, errhandling.NewValidationError(fmt.Sprintf("%s: %v", path, err), err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	r.BaseDir = filepath.Dir(path)
	return r, nil
}

// LoadAll loads several report files. Report IDs must be unique across them.
func LoadAll(paths ...string) ([]*report.Report, error) {
	reports := make([]*report.Report, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		r, err := Load(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[r.ID]; dup {
			return nil, errhandling.NewValidationError(
				fmt.Sprintf("report id %q is defined by both %s and %s", r.ID, prev, p), nil)
		}
		seen[r.ID] = p
		reports = append(reports, r)
	}
	return reports, nil
}
