package runtime

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/TheUndivideProject/Prototype-1/internal/template"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// paramsKey is the template root module configs reference parameters under.
const paramsKey = "params"

var renderer = template.NewEvaluator()

// ResolveParameters merges caller overrides onto the report's parameter
// defaults. Overrides naming an undeclared parameter, or values outside a
// parameter's allowed list, are validation errors.
func ResolveParameters(r *report.Report, overrides map[string]string) (map[string]string, error) {
	params := make(map[string]string, len(r.Parameters))
	declared := make(map[string]report.Parameter, len(r.Parameters))
	for _, p := range r.Parameters {
		params[p.Name] = p.Default
		declared[p.Name] = p
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := declared[name]; !ok {
			return nil, NewValidationError(fmt.Sprintf("unknown parameter %q", name), nil)
		}
		params[name] = overrides[name]
	}

	for _, p := range r.Parameters {
		v := params[p.Name]
		if len(p.Allowed) > 0 && !slices.Contains(p.Allowed, v) {
			return nil, NewValidationError(fmt.Sprintf("parameter %q: value %q is not one of [%s]",
				p.Name, v, strings.Join(p.Allowed, ", ")), nil)
		}
	}
	return params, nil
}

// Render returns a copy of r whose module titles and configs have every {{params.x}}
// reference substituted. Other template roots, such as the narrative
// variables resolved against section results, are left in place.
func Render(r *report.Report, params map[string]string) (*report.Report, error) {
	vars := map[string]interface{}{paramsKey: params}
	out := *r

	var missing []string
	renderAll := func(cfgs []report.ModuleConfig) []report.ModuleConfig {
		if cfgs == nil {
			return nil
		}
		rendered := make([]report.ModuleConfig, len(cfgs))
		for i, cfg := range cfgs {
			rendered[i] = cfg
			if cfg.Title != "" {
				title, m := renderer.EvaluatePartial(cfg.Title, vars)
				rendered[i].Title = title
				missing = append(missing, m...)
			}
			if cfg.Config == nil {
				continue
			}
			v, m := renderer.EvaluateMapValues(cfg.Config, vars)
			rendered[i].Config = v.(map[string]interface{})
			missing = append(missing, m...)
		}
		return rendered
	}

	out.Views = make([]report.View, len(r.Views))
	for i, v := range r.Views {
		out.Views[i] = v
		out.Views[i].Filters = renderAll(v.Filters)
	}
	out.Sections = renderAll(r.Sections)
	out.Outputs = renderAll(r.Outputs)

	if len(missing) > 0 {
		slices.Sort(missing)
		missing = slices.Compact(missing)
		return nil, NewValidationError(fmt.Sprintf("undefined template variables: %s", strings.Join(missing, ", ")), nil)
	}
	return &out, nil
}
