// Package factory provides module creation functions for the report runtime.
// It centralizes the logic for instantiating source, filter, section, and
// output modules from their configuration using the module registry.
//
// # Module Creation
//
// The factory uses the registry package to look up module constructors by
// type. Unknown types and constructor failures are returned as validation
// errors naming the offending module, so a bad report fails before any
// dataset is read.
//
// # Adding New Module Types
//
// To add a new module type, see the documentation in internal/registry.
// You do NOT need to modify this factory; just register your constructor.
package factory

import (
	"fmt"
	"strings"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/filter"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/input"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/output"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/section"
	"github.com/TheUndivideProject/Prototype-1/internal/registry"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// DefaultInputFormat is used for sources that do not name a format.
const DefaultInputFormat = "csv"

// CreateInputModule creates the source module for src.
func CreateInputModule(src report.Source, baseDir string, loader *input.Loader) (input.Module, error) {
	format := src.Format
	if format == "" {
		format = DefaultInputFormat
	}
	constructor := registry.GetInputConstructor(format)
	if constructor == nil {
		return nil, unknownType("source", src.Name, "format", format, registry.ListInputTypes())
	}
	m, err := constructor(src, baseDir, loader)
	if err != nil {
		return nil, invalid(fmt.Sprintf("source %q", src.Name), err)
	}
	return m, nil
}

// CreateFilterModules creates the filter chain of a view.
func CreateFilterModules(view string, cfgs []report.ModuleConfig, fc registry.FilterContext) ([]filter.Module, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}

	fc.View = view
	modules := make([]filter.Module, 0, len(cfgs))
	for i, cfg := range cfgs {
		where := fmt.Sprintf("view %q filter %d", view, i)
		constructor := registry.GetFilterConstructor(cfg.Type)
		if constructor == nil {
			return nil, unknownType("view", view, "filter type", cfg.Type, registry.ListFilterTypes())
		}
		fc.Index = i
		m, err := constructor(cfg, fc)
		if err != nil {
			return nil, invalid(fmt.Sprintf("%s (%s)", where, cfg.Type), err)
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// CreateSectionModule creates a section module from configuration.
func CreateSectionModule(cfg report.ModuleConfig) (section.Module, error) {
	constructor := registry.GetSectionConstructor(cfg.Type)
	if constructor == nil {
		return nil, unknownType("section", cfg.Name, "type", cfg.Type, registry.ListSectionTypes())
	}
	m, err := constructor(cfg)
	if err != nil {
		return nil, invalid(fmt.Sprintf("section %q", cfg.Name), err)
	}
	return m, nil
}

// CreateOutputModule creates an output module from configuration.
func CreateOutputModule(cfg report.ModuleConfig) (output.Module, error) {
	constructor := registry.GetOutputConstructor(cfg.Type)
	if constructor == nil {
		return nil, unknownType("output", "", "type", cfg.Type, registry.ListOutputTypes())
	}
	m, err := constructor(cfg)
	if err != nil {
		return nil, invalid(fmt.Sprintf("output %q", cfg.Type), err)
	}
	return m, nil
}

func unknownType(kind, name, field, value string, known []string) error {
	subject := kind
	if name != "" {
		subject = fmt.Sprintf("%s %q", kind, name)
	}
	return errhandling.NewValidationError(
		fmt.Sprintf("%s: unknown %s %q (known: %s)", subject, field, value, strings.Join(known, ", ")), nil)
}

// invalid keeps already-classified errors and wraps the rest as validation errors.
func invalid(where string, err error) error {
	if ce := errhandling.ClassifyError(err); ce.Category != errhandling.CategoryUnknown {
		return fmt.Errorf("%s: %w", where, err)
	}
	return errhandling.NewValidationError(fmt.Sprintf("%s: %v", where, err), err)
}
