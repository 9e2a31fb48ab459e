// This file registers all built-in modules during initialization.
package registry

import (
	"fmt"

	"github.com/TheUndivideProject/Prototype-1/internal/modules/filter"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/input"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/output"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/section"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

func init() {
	RegisterBuiltins()
}

// registerBuiltinInputModules registers the delimited-file source formats.
func registerBuiltinInputModules() {
	RegisterInput("csv", delimitedInput(""))
	// tsv is csv with a tab delimiter unless the source overrides it
	RegisterInput("tsv", delimitedInput("\t"))
}

func delimitedInput(defaultDelimiter string) InputConstructor {
	return func(src report.Source, baseDir string, loader *input.Loader) (input.Module, error) {
		columns, err := columnTypes(src)
		if err != nil {
			return nil, err
		}
		delim := src.Delimiter
		if delim == "" {
			delim = defaultDelimiter
		}
		return input.NewCSVModule(input.CSVConfig{
			Name:      src.Name,
			Path:      src.Path,
			BaseDir:   baseDir,
			Delimiter: delim,
			Columns:   columns,
		}, loader)
	}
}

func columnTypes(src report.Source) (map[string]table.ColumnType, error) {
	if len(src.Columns) == 0 {
		return nil, nil
	}
	out := make(map[string]table.ColumnType, len(src.Columns))
	for col, typ := range src.Columns {
		ct := table.ColumnType(typ)
		if !ct.Valid() {
			return nil, fmt.Errorf("source %q: column %q has unknown type %q", src.Name, col, typ)
		}
		out[col] = ct
	}
	return out, nil
}

// registerBuiltinFilterModules registers all built-in filter module types.
func registerBuiltinFilterModules() {
	RegisterFilter("notNull", func(cfg report.ModuleConfig, _ FilterContext) (filter.Module, error) {
		return filter.ParseNullConfig(cfg.Config, false)
	})
	RegisterFilter("isNull", func(cfg report.ModuleConfig, _ FilterContext) (filter.Module, error) {
		return filter.ParseNullConfig(cfg.Config, true)
	})
	RegisterFilter("equals", func(cfg report.ModuleConfig, _ FilterContext) (filter.Module, error) {
		return filter.ParseEqualsConfig(cfg.Config)
	})
	RegisterFilter("range", func(cfg report.ModuleConfig, _ FilterContext) (filter.Module, error) {
		return filter.ParseRangeConfig(cfg.Config)
	})
	RegisterFilter("prefix", func(cfg report.ModuleConfig, _ FilterContext) (filter.Module, error) {
		return filter.ParsePrefixConfig(cfg.Config)
	})

	// condition - expr-lang row predicate
	RegisterFilter("condition", func(cfg report.ModuleConfig, _ FilterContext) (filter.Module, error) {
		config, err := filter.ParseConditionConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		return filter.NewConditionFromConfig(config)
	})

	// script - goja include(row) predicate
	RegisterFilter("script", func(cfg report.ModuleConfig, fc FilterContext) (filter.Module, error) {
		config, err := filter.ParseScriptConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		config.BaseDir = fc.BaseDir
		return filter.NewScriptFromConfig(config)
	})

	// semiJoin - keep rows whose entity key appears in another view
	RegisterFilter("semiJoin", func(cfg report.ModuleConfig, fc FilterContext) (filter.Module, error) {
		config, err := filter.ParseSemiJoinConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		config.View = fc.View
		return filter.NewSemiJoin(config, fc.Sets)
	})
}

// registerBuiltinSectionModules registers all built-in section types.
func registerBuiltinSectionModules() {
	RegisterSection("aggregate", func(cfg report.ModuleConfig) (section.Module, error) {
		return section.NewAggregate(cfg)
	})
	RegisterSection("summary", func(cfg report.ModuleConfig) (section.Module, error) {
		return section.NewSummary(cfg)
	})
	RegisterSection("share", func(cfg report.ModuleConfig) (section.Module, error) {
		return section.NewShare(cfg)
	})
	RegisterSection("histogram", func(cfg report.ModuleConfig) (section.Module, error) {
		return section.NewHistogram(cfg)
	})
	RegisterSection("classify", func(cfg report.ModuleConfig) (section.Module, error) {
		return section.NewClassify(cfg)
	})
	RegisterSection("points", func(cfg report.ModuleConfig) (section.Module, error) {
		return section.NewPoints(cfg)
	})
}

// registerBuiltinOutputModules registers all built-in output module types.
func registerBuiltinOutputModules() {
	RegisterOutput("json", func(cfg report.ModuleConfig) (output.Module, error) {
		config, err := output.ParseJSONConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		return output.NewJSON(config), nil
	})
	RegisterOutput("markdown", func(cfg report.ModuleConfig) (output.Module, error) {
		config, err := output.ParseMarkdownConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		return output.NewMarkdown(config), nil
	})
}
