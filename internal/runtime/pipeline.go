// Package runtime provides the report execution engine.
// It resolves parameters, plans sources, views, and sections, computes the
// sections in parallel over memoized views, and hands the result to outputs.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/factory"
	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/metrics"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/input"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/output"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/section"
	"github.com/TheUndivideProject/Prototype-1/internal/registry"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// DefaultConcurrency bounds parallel section computation when the report does not.
const DefaultConcurrency = 4

// Executor runs report configurations.
//
// The Executor only interacts with modules through their public interfaces
// (input.Module, filter.Module, section.Module, output.Module), so modules can
// be developed independently of runtime internals. One Executor may run many
// executions concurrently; they share the Loader and therefore its cache.
type Executor struct {
	loader      *input.Loader
	concurrency int
}

// NewExecutor creates an executor that loads datasets through loader.
// concurrency <= 0 uses each report's setting, or DefaultConcurrency.
func NewExecutor(loader *input.Loader, concurrency int) *Executor {
	if loader == nil {
		loader = input.NewLoader(nil)
	}
	return &Executor{loader: loader, concurrency: concurrency}
}

// plannedSection pairs a section module with its configuration.
type plannedSection struct {
	cfg    report.ModuleConfig
	module section.Module
}

// plan is one fully constructed execution.
type plan struct {
	report   *report.Report
	params   map[string]string
	session  *session
	sections []plannedSection
	outputs  []output.Module
}

// Validate constructs every module of r with default parameters and checks
// view references, without reading any dataset.
func (e *Executor) Validate(r *report.Report) error {
	if r == nil {
		return ErrNilReport
	}
	params, err := ResolveParameters(r, nil)
	if err != nil {
		return err
	}
	_, err = e.prepare(r, params)
	return err
}

func (e *Executor) prepare(r *report.Report, params map[string]string) (*plan, error) {
	rendered, err := Render(r, params)
	if err != nil {
		return nil, err
	}

	s := newSession(r.ID, r.BaseDir, params, e.loader)
	for _, src := range rendered.Sources {
		if s.has(src.Name) {
			return nil, NewValidationError(fmt.Sprintf("duplicate source or view name %q", src.Name), nil)
		}
		m, err := factory.CreateInputModule(src, r.BaseDir, e.loader)
		if err != nil {
			return nil, err
		}
		s.sources[src.Name] = m
	}

	for _, v := range rendered.Views {
		if s.has(v.Name) {
			return nil, NewValidationError(fmt.Sprintf("duplicate source or view name %q", v.Name), nil)
		}
		filters, err := factory.CreateFilterModules(v.Name, v.Filters, registry.FilterContext{BaseDir: r.BaseDir, Sets: s})
		if err != nil {
			return nil, err
		}
		s.views[v.Name] = &viewNode{name: v.Name, from: v.From, filters: filters}
	}
	if err := checkViewGraph(s, rendered.Views); err != nil {
		return nil, err
	}

	p := &plan{report: rendered, params: params, session: s}
	seen := make(map[string]bool, len(rendered.Sections))
	for _, cfg := range rendered.Sections {
		if cfg.Name == "" {
			return nil, NewValidationError("section name is required", nil)
		}
		if seen[cfg.Name] {
			return nil, NewValidationError(fmt.Sprintf("duplicate section name %q", cfg.Name), nil)
		}
		seen[cfg.Name] = true

		m, err := factory.CreateSectionModule(cfg)
		if err != nil {
			return nil, err
		}
		for _, v := range m.Views() {
			if !s.has(v) {
				return nil, NewValidationError(fmt.Sprintf("section %q: unknown view %q", cfg.Name, v), nil)
			}
		}
		p.sections = append(p.sections, plannedSection{cfg: cfg, module: m})
	}

	for _, cfg := range rendered.Outputs {
		m, err := factory.CreateOutputModule(cfg)
		if err != nil {
			return nil, err
		}
		p.outputs = append(p.outputs, m)
	}
	return p, nil
}

// Execute computes every section of r. Section failures degrade that section
// only; the returned error is non-nil only for configuration errors and
// cancellation, in which case the result carries status "error".
func (e *Executor) Execute(ctx context.Context, r *report.Report, overrides map[string]string) (*report.Result, error) {
	result, _, err := e.execute(ctx, r, overrides)
	return result, err
}

func (e *Executor) execute(ctx context.Context, r *report.Report, overrides map[string]string) (*report.Result, *plan, error) {
	if r == nil {
		return nil, nil, ErrNilReport
	}
	startedAt := time.Now()
	result := &report.Result{ReportID: r.ID, ReportName: r.Name, Status: report.StatusError, StartedAt: startedAt}
	execCtx := logger.ExecutionContext{ReportID: r.ID, ReportName: r.Name}

	fail := func(module string, err error) (*report.Result, *plan, error) {
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(module, err)
		logger.LogError("report execution failed", logger.ErrorContext{
			ExecutionContext: execCtx,
			Category:         result.Error.Category,
			Err:              err,
			Duration:         result.CompletedAt.Sub(startedAt),
		})
		logger.LogExecutionEnd(execCtx, report.StatusError, 0, result.CompletedAt.Sub(startedAt))
		metrics.ExecutionsTotal.WithLabelValues(r.ID, report.StatusError).Inc()
		return result, nil, err
	}

	params, err := ResolveParameters(r, overrides)
	if err != nil {
		logger.LogExecutionStart(execCtx, overrides)
		return fail("parameters", err)
	}
	result.Parameters = params
	logger.LogExecutionStart(execCtx, params)

	p, err := e.prepare(r, params)
	if err != nil {
		return fail("", err)
	}

	sectionStart := time.Now()
	sections, err := e.computeSections(ctx, p, p.sections)
	if err != nil {
		return fail("", err)
	}
	result.Sections = sections
	result.CompletedAt = time.Now()
	result.Status = overallStatus(sections)

	m := logger.ExecutionMetrics{
		TotalDuration:   result.CompletedAt.Sub(startedAt),
		SectionDuration: result.CompletedAt.Sub(sectionStart),
		SourcesLoaded:   int(p.session.sourcesLoaded.Load()),
		RowsLoaded:      int(p.session.rowsLoaded.Load()),
		ViewsResolved:   int(p.session.viewsResolved.Load()),
	}
	for _, s := range sections {
		switch s.Status {
		case report.SectionOK:
			m.SectionsOK++
		case report.SectionNoData:
			m.SectionsNoData++
		default:
			m.SectionsFailed++
		}
	}
	logger.LogMetrics(execCtx, m)
	logger.LogExecutionEnd(execCtx, result.Status, len(sections), m.TotalDuration)
	metrics.ExecutionsTotal.WithLabelValues(r.ID, result.Status).Inc()
	return result, p, nil
}

// ExecuteSection computes the single section named name. A name the report
// does not define returns an error wrapping ErrUnknownSection.
func (e *Executor) ExecuteSection(ctx context.Context, r *report.Report, name string, overrides map[string]string) (*report.SectionResult, error) {
	if r == nil {
		return nil, ErrNilReport
	}
	params, err := ResolveParameters(r, overrides)
	if err != nil {
		return nil, err
	}
	p, err := e.prepare(r, params)
	if err != nil {
		return nil, err
	}
	for _, ps := range p.sections {
		if ps.cfg.Name == name {
			results, err := e.computeSections(ctx, p, []plannedSection{ps})
			if err != nil {
				return nil, err
			}
			return &results[0], nil
		}
	}
	return nil, fmt.Errorf("report %s: %w %q", r.ID, ErrUnknownSection, name)
}

// Run executes r and writes the result to every configured output.
// Output errors are returned after all outputs have been attempted.
func (e *Executor) Run(ctx context.Context, r *report.Report, overrides map[string]string) (*report.Result, error) {
	result, p, err := e.execute(ctx, r, overrides)
	if err != nil {
		return result, err
	}
	return result, writeOutputs(ctx, r.ID, p.outputs, result)
}

// computeSections fans the sections out over an errgroup bounded by the
// report's concurrency. Results keep configuration order.
func (e *Executor) computeSections(ctx context.Context, p *plan, sections []plannedSection) ([]report.SectionResult, error) {
	limit := e.concurrency
	if limit <= 0 {
		limit = p.report.Concurrency
	}
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]report.SectionResult, len(sections))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, ps := range sections {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := computeSection(gctx, p, ps)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// computeSection runs one section. Recoverable failures become a degraded
// section result; fatal failures are returned.
func computeSection(ctx context.Context, p *plan, ps plannedSection) (*report.SectionResult, error) {
	execCtx := logger.ExecutionContext{
		ReportID:    p.report.ID,
		Stage:       "section",
		Section:     ps.cfg.Name,
		SectionType: ps.cfg.Type,
	}
	logger.LogStageStart(execCtx)
	start := time.Now()

	res, err := ps.module.Compute(ctx, p.session)
	duration := time.Since(start)
	metrics.SectionDuration.WithLabelValues(ps.cfg.Type).Observe(duration.Seconds())

	if err != nil {
		if errhandling.IsFatal(err) {
			metrics.SectionsTotal.WithLabelValues(report.SectionError).Inc()
			return nil, fmt.Errorf("section %s: %w", ps.cfg.Name, err)
		}
		status := report.SectionError
		if errhandling.IsRecoverable(err) {
			status = report.SectionNoData
		}
		res = &report.SectionResult{
			Name:   ps.cfg.Name,
			Type:   ps.cfg.Type,
			Title:  ps.cfg.Title,
			Status: status,
			Error:  buildExecutionError(ps.cfg.Name, err),
		}
		logger.WithExecution(execCtx).Warn("section degraded",
			slog.String("status", status),
			slog.String("error_category", res.Error.Category),
			slog.String("error", err.Error()),
		)
	}
	res.DurationMs = duration.Milliseconds()
	metrics.SectionsTotal.WithLabelValues(res.Status).Inc()
	logger.LogStageEnd(execCtx, -1, -1, duration, nil)
	return res, nil
}

func overallStatus(sections []report.SectionResult) string {
	for _, s := range sections {
		if s.Status != report.SectionOK {
			return report.StatusPartial
		}
	}
	return report.StatusSuccess
}

// dependent is implemented by filters that read another view.
type dependent interface {
	Dependency() string
}

// checkViewGraph rejects unknown references and cycles among views, counting
// both the view a view narrows and the views its semi-joins draw from.
func checkViewGraph(s *session, views []report.View) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(s.views))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		node, ok := s.views[name]
		if !ok {
			return nil
		}
		switch state[name] {
		case visiting:
			return NewValidationError(fmt.Sprintf("view cycle: %v", append(path, name)), nil)
		case done:
			return nil
		}
		state[name] = visiting
		path = append(path, name)

		deps := []string{node.from}
		for _, f := range node.filters {
			if d, ok := f.(dependent); ok {
				deps = append(deps, d.Dependency())
			}
		}
		for _, dep := range deps {
			if !s.has(dep) {
				return NewValidationError(fmt.Sprintf("view %q: unknown source or view %q", name, dep), nil)
			}
			if err := visit(dep, path); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, v := range views {
		if err := visit(v.Name, nil); err != nil {
			return err
		}
	}
	return nil
}

// writeOutputs writes result to every output and closes it.
func writeOutputs(ctx context.Context, reportID string, outputs []output.Module, result *report.Result) error {
	var errs []error
	for i, o := range outputs {
		execCtx := logger.ExecutionContext{ReportID: reportID, Stage: "output"}
		start := time.Now()
		err := o.Write(ctx, result)
		if cerr := o.Close(); err == nil {
			err = cerr
		}
		logger.LogStageEnd(execCtx, -1, -1, time.Since(start), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
