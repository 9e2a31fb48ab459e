// Package api serves report results over HTTP with echo.
//
// Every request executes the report against the shared dataset cache, so
// repeated requests parse each file once. Query parameters other than the
// pagination keys are report parameter overrides.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/metrics"
	"github.com/TheUndivideProject/Prototype-1/internal/runtime"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// Pagination query keys. They are never passed to the report as parameters.
const (
	queryLimit  = "limit"
	queryOffset = "offset"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 10 * time.Second

// Server exposes a fixed set of reports.
type Server struct {
	echo     *echo.Echo
	executor *runtime.Executor
	reports  map[string]*report.Report
	order    []string
}

// ReportInfo describes a report in the listing.
type ReportInfo struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  []report.Parameter `json:"parameters,omitempty"`
	Sections    []SectionInfo      `json:"sections"`
}

// SectionInfo names one section of a report.
type SectionInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error report.ExecutionError `json:"error"`
}

// NewServer creates a server for reports, executed by executor.
func NewServer(executor *runtime.Executor, reports []*report.Report) *Server {
	s := &Server{
		echo:     echo.New(),
		executor: executor,
		reports:  make(map[string]*report.Report, len(reports)),
	}
	for _, r := range reports {
		s.reports[r.ID] = r
		s.order = append(s.order, r.ID)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("http request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Int64("duration_ms", v.Latency.Milliseconds()),
			)
			return nil
		},
	}))
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := s.echo.Group("/api")
	api.GET("/reports", s.listReports)
	api.GET("/reports/:id", s.getReport)
	api.GET("/reports/:id/sections/:section", s.getSection)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", addr), slog.Int("reports", len(s.order)))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listReports(c echo.Context) error {
	infos := make([]ReportInfo, 0, len(s.order))
	for _, id := range s.order {
		r := s.reports[id]
		info := ReportInfo{ID: r.ID, Name: r.Name, Description: r.Description, Parameters: r.Parameters}
		for _, sec := range r.Sections {
			info.Sections = append(info.Sections, SectionInfo{Name: sec.Name, Type: sec.Type, Title: sec.Title})
		}
		infos = append(infos, info)
	}
	return c.JSON(http.StatusOK, infos)
}

func (s *Server) getReport(c echo.Context) error {
	r, ok := s.reports[c.Param("id")]
	if !ok {
		return notFound(c, "report", c.Param("id"))
	}
	result, err := s.executor.Execute(c.Request().Context(), r, overrides(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) getSection(c echo.Context) error {
	r, ok := s.reports[c.Param("id")]
	if !ok {
		return notFound(c, "report", c.Param("id"))
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return errorJSON(c, err)
	}

	sec, err := s.executor.ExecuteSection(c.Request().Context(), r, c.Param("section"), overrides(c))
	if errors.Is(err, runtime.ErrUnknownSection) {
		return notFound(c, "section", c.Param("section"))
	}
	if err != nil {
		return errorJSON(c, err)
	}
	paginate(sec, limit, offset)
	return c.JSON(http.StatusOK, sec)
}

// overrides returns the first value of every non-pagination query key.
func overrides(c echo.Context) map[string]string {
	out := map[string]string{}
	for key, values := range c.QueryParams() {
		if key == queryLimit || key == queryOffset || len(values) == 0 {
			continue
		}
		out[key] = values[0]
	}
	return out
}

// pagination reads limit and offset. A missing limit means all entries.
func pagination(c echo.Context) (limit, offset int, err error) {
	limit = -1
	if raw := c.QueryParam(queryLimit); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return 0, 0, errhandling.NewValidationError("limit must be a non-negative integer", err)
		}
	}
	if raw := c.QueryParam(queryOffset); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errhandling.NewValidationError("offset must be a non-negative integer", err)
		}
	}
	return limit, offset, nil
}

// paginate slices the section entries in place. TotalEntries keeps the
// count before slicing.
func paginate(sec *report.SectionResult, limit, offset int) {
	total := len(sec.Entries)
	if sec.TotalEntries == 0 {
		sec.TotalEntries = total
	}
	if offset >= total {
		sec.Entries = []report.Entry{}
		return
	}
	end := total
	if limit >= 0 && offset+limit < total {
		end = offset + limit
	}
	sec.Entries = sec.Entries[offset:end]
}

func notFound(c echo.Context, kind, name string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{Error: report.ExecutionError{
		Category: "not_found",
		Message:  kind + " " + strconv.Quote(name) + " not found",
	}})
}

// errorJSON maps fatal execution errors to status codes.
func errorJSON(c echo.Context, err error) error {
	ce := errhandling.ClassifyError(err)
	status := http.StatusInternalServerError
	switch ce.Category {
	case errhandling.CategoryValidation:
		status = http.StatusBadRequest
	case errhandling.CategoryCanceled:
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, ErrorResponse{Error: report.ExecutionError{
		Category: string(ce.Category),
		Message:  err.Error(),
	}})
}
