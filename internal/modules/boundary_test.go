// Package modules_test verifies module boundary compliance.
// Modules must not import the runtime, the factory, or the registry.
package modules_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "github.com/TheUndivideProject/Prototype-1"

// TestModuleBoundaryCompliance verifies that module packages don't import runtime internals.
// Sections reach views only through section.Env and filters reach entity sets
// only through filter.SetSource.
func TestModuleBoundaryCompliance(t *testing.T) {
	modulePackages := []string{
		"internal/modules/input",
		"internal/modules/filter",
		"internal/modules/section",
		"internal/modules/output",
	}

	forbiddenImports := []string{
		modulePath + "/internal/runtime",
		modulePath + "/internal/factory",
		modulePath + "/internal/registry",
		modulePath + "/internal/api",
	}

	for _, pkgPath := range modulePackages {
		t.Run(pkgPath, func(t *testing.T) {
			matches, err := filepath.Glob(filepath.Join("../..", pkgPath, "*.go"))
			if err != nil {
				t.Fatalf("failed to glob package %s: %v", pkgPath, err)
			}
			if len(matches) == 0 {
				t.Fatalf("no files found for %s", pkgPath)
			}

			for _, file := range matches {
				// Test files may import the runtime to exercise a module end to end.
				if strings.HasSuffix(file, "_test.go") {
					continue
				}

				fset := token.NewFileSet()
				content, err := os.ReadFile(file)
				if err != nil {
					t.Fatalf("failed to read file %s: %v", file, err)
				}

				f, err := parser.ParseFile(fset, file, content, parser.ImportsOnly)
				if err != nil {
					t.Fatalf("failed to parse file %s: %v", file, err)
				}

				for _, imp := range f.Imports {
					importPath := strings.Trim(imp.Path.Value, `"`)
					for _, forbidden := range forbiddenImports {
						if importPath == forbidden {
							t.Errorf("BOUNDARY VIOLATION: %s imports forbidden package %s\n"+
								"Modules must not depend on runtime internals. Use interfaces only.",
								filepath.Base(file), forbidden)
						}
					}
				}
			}
		})
	}
}

// TestCoreHasNoModuleDependencies keeps the pure table, aggregate, and
// classify packages free of module and runtime imports.
func TestCoreHasNoModuleDependencies(t *testing.T) {
	for _, pkgPath := range []string{"internal/table", "internal/aggregate", "internal/classify"} {
		t.Run(pkgPath, func(t *testing.T) {
			matches, err := filepath.Glob(filepath.Join("../..", pkgPath, "*.go"))
			if err != nil {
				t.Fatal(err)
			}
			for _, file := range matches {
				if strings.HasSuffix(file, "_test.go") {
					continue
				}
				f, err := parser.ParseFile(token.NewFileSet(), file, nil, parser.ImportsOnly)
				if err != nil {
					t.Fatalf("failed to parse file %s: %v", file, err)
				}
				for _, imp := range f.Imports {
					importPath := strings.Trim(imp.Path.Value, `"`)
					if strings.HasPrefix(importPath, modulePath+"/internal/modules") ||
						strings.HasPrefix(importPath, modulePath+"/internal/runtime") {
						t.Errorf("%s imports %s", filepath.Base(file), importPath)
					}
				}
			}
		})
	}
}
