// Package main provides the CLI entry point for the seed report runtime.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TheUndivideProject/Prototype-1/internal/api"
	"github.com/TheUndivideProject/Prototype-1/internal/cache"
	"github.com/TheUndivideProject/Prototype-1/internal/cli"
	"github.com/TheUndivideProject/Prototype-1/internal/config"
	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/metrics"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/input"
	"github.com/TheUndivideProject/Prototype-1/internal/runtime"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

var (
	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds the flag values and exit code of one CLI invocation.
type app struct {
	stdout, stderr io.Writer
	code           int

	verbose   bool
	quiet     bool
	logFormat string
	logFile   string

	params []string
	output string
	addr   string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer logger.CloseLogFile()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return cli.ExitRuntimeError
	}
	return a.code
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "seed",
		Short: "Seed - declarative filing aggregation reports",
		Long: `Seed loads SEC and IRS filing extracts, filters and joins them, and
computes the report sections described by a YAML or JSON report file.

Examples:
  # Validate a report file
  seed validate configs/nonprofit-irs.yaml

  # Run a report with a parameter override
  seed run configs/corporate-environmental-giving.yaml --param state=CA

  # Serve reports over HTTP
  seed serve configs/*.yaml --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.configureLogging()
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "json", "Log format: json or human")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also write JSON logs to this file")

	validateCmd := &cobra.Command{
		Use:   "validate <report-file>",
		Short: "Validate a report file",
		Long: `Validate a report file against the schema, then check that every
source, view, and module it references can be built.

Exit codes:
  0 - Report is valid
  1 - Validation errors
  2 - Parse errors`,
		Args: cobra.ExactArgs(1),
		Run:  a.runValidate,
	}

	runCmd := &cobra.Command{
		Use:   "run <report-file>",
		Short: "Execute a report and write its outputs",
		Long: `Execute every section of a report and write the configured outputs.
Sections that have no data or fail are listed on stderr; the run still
succeeds when only sections degrade.

Exit codes:
  0 - Report executed (possibly with degraded sections)
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors`,
		Args: cobra.ExactArgs(1),
		Run:  a.runReport,
	}
	runCmd.Flags().StringArrayVarP(&a.params, "param", "p", nil, "Report parameter as name=value (repeatable)")
	runCmd.Flags().StringVarP(&a.output, "output", "o", "", "Also write the result as JSON to this path")

	serveCmd := &cobra.Command{
		Use:   "serve <report-file>...",
		Short: "Serve reports over HTTP",
		Args:  cobra.MinimumNArgs(1),
		Run:   a.runServe,
	}
	serveCmd.Flags().StringVar(&a.addr, "addr", ":8080", "Listen address")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   a.runVersion,
	}

	root.AddCommand(validateCmd, runCmd, serveCmd, versionCmd)
	return root
}

func (a *app) configureLogging() error {
	format, err := logger.ParseFormat(a.logFormat)
	if err != nil {
		return err
	}
	lvl := slog.LevelInfo
	if a.verbose {
		lvl = slog.LevelDebug
	} else if a.quiet {
		lvl = slog.LevelError
	}
	logger.SetLevelAndFormat(lvl, format)
	if a.logFile != "" {
		return logger.SetLogFile(a.logFile)
	}
	return nil
}

// load parses path and prints its errors. It returns nil and sets the exit
// code when the file cannot be used.
func (a *app) load(path string) *report.Report {
	result := config.ParseConfig(path)
	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(a.stderr, result.ParseErrors, a.verbose)
		a.code = cli.ExitParseError
		return nil
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(a.stderr, result.ValidationErrors, a.verbose, a.quiet)
		a.code = cli.ExitValidationError
		return nil
	}
	r, err := config.Load(path)
	if err != nil {
		a.fail(err)
		return nil
	}
	return r
}

func (a *app) fail(err error) {
	cli.PrintError(a.stderr, err)
	a.code = cli.ExitCode(err)
}

func (a *app) newExecutor() *runtime.Executor {
	return runtime.NewExecutor(input.NewLoader(cache.New()), 0)
}

func (a *app) runValidate(_ *cobra.Command, args []string) {
	if !a.quiet {
		fmt.Fprintf(a.stdout, "Validating report: %s\n", args[0])
	}
	r := a.load(args[0])
	if r == nil {
		return
	}
	if err := a.newExecutor().Validate(r); err != nil {
		a.fail(err)
		return
	}
	if !a.quiet {
		fmt.Fprintln(a.stdout, "✓ Report is valid")
		if a.verbose {
			cli.PrintReportSummary(a.stdout, r)
		}
	}
}

func (a *app) runReport(cmd *cobra.Command, args []string) {
	overrides, err := parseParams(a.params)
	if err != nil {
		a.fail(err)
		return
	}
	r := a.load(args[0])
	if r == nil {
		return
	}
	if a.output != "" {
		r.Outputs = append(r.Outputs, report.ModuleConfig{
			Type:   "json",
			Name:   "cli",
			Config: map[string]interface{}{"path": a.output, "pretty": true},
		})
	}
	if !a.quiet {
		fmt.Fprintf(a.stdout, "Executing report %s...\n", r.ID)
	}

	metrics.Init()
	result, err := a.newExecutor().Run(cmd.Context(), r, overrides)
	cli.PrintExecutionResult(a.stdout, a.stderr, result, err, cli.OutputOptions{Verbose: a.verbose, Quiet: a.quiet})
	if err != nil {
		a.code = cli.ExitCode(err)
	}
}

func (a *app) runServe(cmd *cobra.Command, args []string) {
	reports, err := config.LoadAll(args...)
	if err != nil {
		a.fail(err)
		return
	}
	executor := a.newExecutor()
	for _, r := range reports {
		if err := executor.Validate(r); err != nil {
			a.fail(err)
			return
		}
	}

	metrics.Init()
	if err := api.NewServer(executor, reports).Run(cmd.Context(), a.addr); err != nil {
		a.fail(err)
	}
}

func (a *app) runVersion(_ *cobra.Command, _ []string) {
	fmt.Fprintf(a.stdout, "Version: %s\n", version)
	fmt.Fprintf(a.stdout, "Commit: %s\n", commit)
	fmt.Fprintf(a.stdout, "Build Date: %s\n", buildDate)
}

// parseParams turns repeated name=value flags into overrides.
func parseParams(flags []string) (map[string]string, error) {
	overrides := make(map[string]string, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errhandling.NewValidationError(fmt.Sprintf("--param %q: want name=value", f), nil)
		}
		overrides[name] = value
	}
	return overrides, nil
}
