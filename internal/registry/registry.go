// Package registry provides module registries for source, filter, section,
// and output modules.
//
// # Overview
//
// Instead of hard-coded switch statements, modules register their
// constructors by type string. The factory looks constructors up here when a
// report is built, so adding a new module type does not touch the factory.
//
// # Adding a New Module
//
// To add a new section type (e.g., a "trend" section):
//
//  1. Implement section.Module
//  2. Create a constructor function matching SectionConstructor
//  3. Register the constructor in an init() function
//
// Example:
//
//	func init() {
//	    registry.RegisterSection("trend", func(cfg report.ModuleConfig) (section.Module, error) {
//	        return NewTrend(cfg)
//	    })
//	}
//
// # Built-in Modules
//
// Built-in modules are registered in builtins.go. There is no fallback for
// unknown types: the factory reports them as validation errors.
package registry

import (
	"sort"
	"sync"

	"github.com/TheUndivideProject/Prototype-1/internal/modules/filter"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/input"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/output"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/section"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// InputConstructor creates a source module. Relative paths resolve against baseDir.
type InputConstructor func(src report.Source, baseDir string, loader *input.Loader) (input.Module, error)

// FilterContext carries what a filter constructor may need besides its config.
type FilterContext struct {
	// View is the name of the view the filter belongs to
	View string
	// BaseDir is the report directory, for script files
	BaseDir string
	// Sets resolves entity sets for semiJoin filters
	Sets filter.SetSource
	// Index is the filter's position in its view
	Index int
}

// FilterConstructor creates a filter module from configuration.
type FilterConstructor func(cfg report.ModuleConfig, fc FilterContext) (filter.Module, error)

// SectionConstructor creates a section module from configuration.
type SectionConstructor func(cfg report.ModuleConfig) (section.Module, error)

// OutputConstructor creates an output module from configuration.
type OutputConstructor func(cfg report.ModuleConfig) (output.Module, error)

var (
	inputMu       sync.RWMutex
	inputRegistry = make(map[string]InputConstructor)
)

var (
	filterMu       sync.RWMutex
	filterRegistry = make(map[string]FilterConstructor)
)

var (
	sectionMu       sync.RWMutex
	sectionRegistry = make(map[string]SectionConstructor)
)

var (
	outputMu       sync.RWMutex
	outputRegistry = make(map[string]OutputConstructor)
)

// RegisterInput registers a source module constructor by format.
// Registering an existing type overwrites the previous constructor.
func RegisterInput(format string, constructor InputConstructor) {
	inputMu.Lock()
	defer inputMu.Unlock()
	inputRegistry[format] = constructor
}

// RegisterFilter registers a filter module constructor by type string.
// Registering an existing type overwrites the previous constructor.
//
// Example:
//
//	func init() {
//	    registry.RegisterFilter("prefix", newPrefix)
//	}
func RegisterFilter(moduleType string, constructor FilterConstructor) {
	filterMu.Lock()
	defer filterMu.Unlock()
	filterRegistry[moduleType] = constructor
}

// RegisterSection registers a section module constructor by type string.
func RegisterSection(moduleType string, constructor SectionConstructor) {
	sectionMu.Lock()
	defer sectionMu.Unlock()
	sectionRegistry[moduleType] = constructor
}

// RegisterOutput registers an output module constructor by type string.
func RegisterOutput(moduleType string, constructor OutputConstructor) {
	outputMu.Lock()
	defer outputMu.Unlock()
	outputRegistry[moduleType] = constructor
}

// GetInputConstructor returns the registered constructor for a source format, or nil.
func GetInputConstructor(format string) InputConstructor {
	inputMu.RLock()
	defer inputMu.RUnlock()
	return inputRegistry[format]
}

// GetFilterConstructor returns the registered constructor for a filter type, or nil.
func GetFilterConstructor(moduleType string) FilterConstructor {
	filterMu.RLock()
	defer filterMu.RUnlock()
	return filterRegistry[moduleType]
}

// GetSectionConstructor returns the registered constructor for a section type, or nil.
func GetSectionConstructor(moduleType string) SectionConstructor {
	sectionMu.RLock()
	defer sectionMu.RUnlock()
	return sectionRegistry[moduleType]
}

// GetOutputConstructor returns the registered constructor for an output type, or nil.
func GetOutputConstructor(moduleType string) OutputConstructor {
	outputMu.RLock()
	defer outputMu.RUnlock()
	return outputRegistry[moduleType]
}

func sortedKeys[V any](mu *sync.RWMutex, m map[string]V) []string {
	mu.RLock()
	defer mu.RUnlock()
	types := make([]string, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ListInputTypes returns all registered source formats, sorted.
func ListInputTypes() []string { return sortedKeys(&inputMu, inputRegistry) }

// ListFilterTypes returns all registered filter types, sorted.
func ListFilterTypes() []string { return sortedKeys(&filterMu, filterRegistry) }

// ListSectionTypes returns all registered section types, sorted.
func ListSectionTypes() []string { return sortedKeys(&sectionMu, sectionRegistry) }

// ListOutputTypes returns all registered output types, sorted.
func ListOutputTypes() []string { return sortedKeys(&outputMu, outputRegistry) }

// ClearRegistries removes all registered constructors.
// This is intended for testing purposes only.
func ClearRegistries() {
	inputMu.Lock()
	inputRegistry = make(map[string]InputConstructor)
	inputMu.Unlock()

	filterMu.Lock()
	filterRegistry = make(map[string]FilterConstructor)
	filterMu.Unlock()

	sectionMu.Lock()
	sectionRegistry = make(map[string]SectionConstructor)
	sectionMu.Unlock()

	outputMu.Lock()
	outputRegistry = make(map[string]OutputConstructor)
	outputMu.Unlock()
}

// RegisterBuiltins registers the built-in modules again, after ClearRegistries.
func RegisterBuiltins() {
	registerBuiltinInputModules()
	registerBuiltinFilterModules()
	registerBuiltinSectionModules()
	registerBuiltinOutputModules()
}
