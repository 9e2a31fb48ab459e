package config

import (
	"fmt"

	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// ConvertToReport converts parsed configuration data to a Report.
// The input data should have been validated against the schema before calling this function.
//
// The configuration is expected to have this structure:
//
//	{
//	  "schemaVersion": "1.0.0",
//	  "report": {
//	    "id": "...",
//	    "name": "...",
//	    "parameters": [...],
//	    "sources": [...],
//	    "views": [...],
//	    "sections": [...],
//	    "outputs": [...]
//	  }
//	}
func ConvertToReport(data map[string]interface{}) (*report.Report, error) {
	if data == nil {
		return nil, fmt.Errorf("configuration data is nil")
	}

	reportData, ok := data["report"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'report' section")
	}

	r := &report.Report{}
	if r.ID, ok = reportData["id"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'report.id'")
	}
	if r.Name, ok = reportData["name"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'report.name'")
	}
	r.Description, _ = reportData["description"].(string)
	r.Version, _ = reportData["version"].(string)
	if c, ok := toInt(reportData["concurrency"]); ok {
		r.Concurrency = c
	}

	for i, item := range listOf(reportData["parameters"]) {
		p, err := convertParameter(item)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter at index %d: %w", i, err)
		}
		r.Parameters = append(r.Parameters, p)
	}

	for i, item := range listOf(reportData["sources"]) {
		src, err := convertSource(item)
		if err != nil {
			return nil, fmt.Errorf("invalid source at index %d: %w", i, err)
		}
		r.Sources = append(r.Sources, src)
	}

	for i, item := range listOf(reportData["views"]) {
		v, err := convertView(item)
		if err != nil {
			return nil, fmt.Errorf("invalid view at index %d: %w", i, err)
		}
		r.Views = append(r.Views, v)
	}

	for i, item := range listOf(reportData["sections"]) {
		cfg, err := convertModuleConfig(item)
		if err != nil {
			return nil, fmt.Errorf("invalid section at index %d: %w", i, err)
		}
		r.Sections = append(r.Sections, cfg)
	}

	for i, item := range listOf(reportData["outputs"]) {
		cfg, err := convertModuleConfig(item)
		if err != nil {
			return nil, fmt.Errorf("invalid output at index %d: %w", i, err)
		}
		r.Outputs = append(r.Outputs, cfg)
	}

	return r, nil
}

func convertParameter(item interface{}) (report.Parameter, error) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return report.Parameter{}, fmt.Errorf("expected object, got %T", item)
	}
	name, ok := m["name"].(string)
	if !ok {
		return report.Parameter{}, fmt.Errorf("missing required field 'name'")
	}
	p := report.Parameter{Name: name, Default: scalarString(m["default"])}
	p.Description, _ = m["description"].(string)
	for _, a := range listOf(m["allowed"]) {
		p.Allowed = append(p.Allowed, scalarString(a))
	}
	return p, nil
}

func convertSource(item interface{}) (report.Source, error) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return report.Source{}, fmt.Errorf("expected object, got %T", item)
	}
	src := report.Source{}
	if src.Name, ok = m["name"].(string); !ok {
		return report.Source{}, fmt.Errorf("missing required field 'name'")
	}
	if src.Path, ok = m["path"].(string); !ok {
		return report.Source{}, fmt.Errorf("source %q: missing required field 'path'", src.Name)
	}
	src.Format, _ = m["format"].(string)
	src.Delimiter, _ = m["delimiter"].(string)
	if cols, ok := m["columns"].(map[string]interface{}); ok {
		src.Columns = make(map[string]string, len(cols))
		for col, typ := range cols {
			s, ok := typ.(string)
			if !ok {
				return report.Source{}, fmt.Errorf("source %q: column %q type must be a string, got %T", src.Name, col, typ)
			}
			src.Columns[col] = s
		}
	}
	return src, nil
}

// convertView accepts either `source:` or `view:` as the table a view narrows.
func convertView(item interface{}) (report.View, error) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return report.View{}, fmt.Errorf("expected object, got %T", item)
	}
	v := report.View{}
	if v.Name, ok = m["name"].(string); !ok {
		return report.View{}, fmt.Errorf("missing required field 'name'")
	}
	from, _ := m["source"].(string)
	if from == "" {
		from, _ = m["view"].(string)
	}
	if from == "" {
		return report.View{}, fmt.Errorf("view %q: one of 'source' or 'view' is required", v.Name)
	}
	v.From = from

	for i, f := range listOf(m["filters"]) {
		cfg, err := convertModuleConfig(f)
		if err != nil {
			return report.View{}, fmt.Errorf("view %q: invalid filter at index %d: %w", v.Name, i, err)
		}
		v.Filters = append(v.Filters, cfg)
	}
	return v, nil
}

// convertModuleConfig converts a raw {type, name, title, config} map to ModuleConfig.
func convertModuleConfig(item interface{}) (report.ModuleConfig, error) {
	data, ok := item.(map[string]interface{})
	if !ok {
		return report.ModuleConfig{}, fmt.Errorf("expected object, got %T", item)
	}
	cfg := report.ModuleConfig{}
	if cfg.Type, ok = data["type"].(string); !ok {
		return report.ModuleConfig{}, fmt.Errorf("missing required field 'type'")
	}
	cfg.Name, _ = data["name"].(string)
	cfg.Title, _ = data["title"].(string)

	cfg.Config = map[string]interface{}{}
	if raw, ok := data["config"]; ok && raw != nil {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return report.ModuleConfig{}, fmt.Errorf("field 'config' must be an object, got %T", raw)
		}
		cfg.Config = m
	}
	return cfg, nil
}

func listOf(v interface{}) []interface{} {
	l, _ := v.([]interface{})
	return l
}

// scalarString renders a YAML scalar (string, number, bool) as a parameter value.
func scalarString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
