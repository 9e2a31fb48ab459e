package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/filter"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/input"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// viewNode is a planned view: where it reads from and its filter chain.
type viewNode struct {
	name    string
	from    string
	filters []filter.Module
}

// lazyTable resolves a table at most once per session.
type lazyTable struct {
	once sync.Once
	t    *table.Table
	err  error
}

// session holds the tables of one execution. Views are resolved on first use
// and memoized, so sections running in parallel share each filtered table.
// It implements section.Env and filter.SetSource.
type session struct {
	reportID string
	baseDir  string
	params   map[string]string
	loader   *input.Loader
	sources  map[string]input.Module
	views    map[string]*viewNode

	mu     sync.Mutex
	tables map[string]*lazyTable
	sets   map[string]*lazySet

	sourcesLoaded atomic.Int64
	rowsLoaded    atomic.Int64
	viewsResolved atomic.Int64
}

type lazySet struct {
	once sync.Once
	set  filter.EntitySet
	err  error
}

func newSession(reportID, baseDir string, params map[string]string, loader *input.Loader) *session {
	return &session{
		reportID: reportID,
		baseDir:  baseDir,
		params:   params,
		loader:   loader,
		sources:  make(map[string]input.Module),
		views:    make(map[string]*viewNode),
		tables:   make(map[string]*lazyTable),
		sets:     make(map[string]*lazySet),
	}
}

// has reports whether name is a source or a view.
func (s *session) has(name string) bool {
	if _, ok := s.sources[name]; ok {
		return true
	}
	_, ok := s.views[name]
	return ok
}

// View implements section.Env.
func (s *session) View(ctx context.Context, name string) (*table.Table, error) {
	if !s.has(name) {
		return nil, NewValidationError(fmt.Sprintf("unknown view %q", name), nil)
	}
	s.mu.Lock()
	lt, ok := s.tables[name]
	if !ok {
		lt = &lazyTable{}
		s.tables[name] = lt
	}
	s.mu.Unlock()

	lt.once.Do(func() {
		lt.t, lt.err = s.resolve(ctx, name)
	})
	return lt.t, lt.err
}

func (s *session) resolve(ctx context.Context, name string) (*table.Table, error) {
	if src, ok := s.sources[name]; ok {
		return s.load(ctx, name, src)
	}

	node := s.views[name]
	execCtx := logger.ExecutionContext{ReportID: s.reportID, Stage: "view", View: name}
	logger.LogStageStart(execCtx)
	start := time.Now()

	t, err := s.View(ctx, node.from)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", name, err)
	}
	rowsIn := t.Len()
	for i, f := range node.filters {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("view %s: %w", name, err)
		}
		t, err = f.Apply(ctx, t)
		if err != nil {
			logger.LogStageEnd(execCtx, rowsIn, -1, time.Since(start), err)
			return nil, fmt.Errorf("view %s filter %d: %w", name, i, err)
		}
	}
	t = t.WithName(name)

	s.viewsResolved.Add(1)
	logger.LogStageEnd(execCtx, rowsIn, t.Len(), time.Since(start), nil)
	return t, nil
}

func (s *session) load(ctx context.Context, name string, src input.Module) (*table.Table, error) {
	execCtx := logger.ExecutionContext{ReportID: s.reportID, Stage: "load", Source: name}
	logger.LogStageStart(execCtx)
	start := time.Now()

	t, err := src.Load(ctx)
	if err != nil {
		logger.LogStageEnd(execCtx, -1, -1, time.Since(start), err)
		return nil, err
	}
	s.sourcesLoaded.Add(1)
	s.rowsLoaded.Add(int64(t.Len()))
	logger.LogStageEnd(execCtx, -1, t.Len(), time.Since(start), nil)
	return t, nil
}

// EntitySet implements filter.SetSource.
func (s *session) EntitySet(ctx context.Context, view, column string) (filter.EntitySet, error) {
	key := view + "\x00" + column
	s.mu.Lock()
	ls, ok := s.sets[key]
	if !ok {
		ls = &lazySet{}
		s.sets[key] = ls
	}
	s.mu.Unlock()

	ls.once.Do(func() {
		t, err := s.View(ctx, view)
		if err != nil {
			ls.err = err
			return
		}
		ls.set, ls.err = filter.BuildEntitySet(t, column)
	})
	return ls.set, ls.err
}

// Dataset implements section.Env. Paths resolve against the report directory.
func (s *session) Dataset(ctx context.Context, path string) (*table.Table, error) {
	return s.loader.Load(ctx, input.ResolvePath(s.baseDir, path))
}

// Params implements section.Env.
func (s *session) Params() map[string]string { return s.params }
