package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vk/formulagrid/internal/app"
)

// Process exit codes.
const (
	ExitRuntime     = 1
	ExitUsage       = 2
	ExitNodesFailed = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// options holds the raw flag values before they are merged into an
// app.Config.
type options struct {
	configPath   string
	workers      int
	logLevel     string
	logFormat    string
	outputFormat string
	outputPath   string
	metricsPath  string
	watch        bool
	listenAddr   string
	failOnError  bool
}

// Execute runs the command line args. Results go to outW, logs and
// diagnostics to errW. The returned error is an *ExitError whenever the
// process should exit with a specific code.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	if args == nil {
		args = []string{}
	}
	cmd := NewRootCommand(outW, errW)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand builds the formulagrid command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	opts := &options{}
	defaults := app.DefaultConfig()

	root := &cobra.Command{
		Use:   "formulagrid [flags] [PATH...]",
		Short: "Evaluate a grid of interdependent formulas",
		Long: `FormulaGrid loads entity definitions from HCL and YAML files, builds the
dependency graph of their formulas and evaluates it layer by layer.

Each PATH is an entity file or a directory searched recursively for
.hcl, .yaml and .yml files. Paths may also be set in the config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, opts, args)
			if err != nil {
				return err
			}
			return runApp(cmd.Context(), cfg, outW, errW)
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := root.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a TOML config file.")
	flags.IntVarP(&opts.workers, "workers", "w", defaults.Workers, "Nodes of one layer evaluated concurrently.")
	flags.StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "Logging level: 'debug', 'info', 'warn' or 'error'.")
	flags.StringVar(&opts.logFormat, "log-format", defaults.LogFormat, "Log output format: 'text' or 'json'.")
	flags.StringVarP(&opts.outputFormat, "output", "o", defaults.OutputFormat, "Result format: 'text' or 'json'.")
	flags.StringVar(&opts.outputPath, "out-file", "", "Write results to this file instead of stdout.")
	flags.StringVar(&opts.metricsPath, "metrics-file", "", "Write Prometheus metrics to this file after each run.")
	flags.BoolVar(&opts.watch, "watch", false, "Re-run whenever an entity file changes.")
	flags.StringVar(&opts.listenAddr, "listen", "", "Serve /health, /metrics and /results on this address (watch mode only).")
	flags.BoolVar(&opts.failOnError, "fail-on-error", false, "Exit with status 3 when any node fails.")

	root.AddCommand(newFunctionsCommand(outW))
	return root
}

// buildConfig layers defaults, the config file and explicitly set flags, in
// that order.
func buildConfig(cmd *cobra.Command, opts *options, args []string) (*app.Config, error) {
	cfg := app.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = app.LoadConfigFile(opts.configPath, cfg)
		if err != nil {
			return nil, usageError(err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	if flags.Changed("output") {
		cfg.OutputFormat = opts.outputFormat
	}
	if flags.Changed("out-file") {
		cfg.OutputPath = opts.outputPath
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsPath = opts.metricsPath
	}
	if flags.Changed("watch") {
		cfg.Watch = opts.watch
	}
	if flags.Changed("listen") {
		cfg.ListenAddr = opts.listenAddr
	}
	if flags.Changed("fail-on-error") {
		cfg.FailOnError = opts.failOnError
	}
	if len(args) > 0 {
		cfg.EntityPaths = args
	}

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return validated, nil
}

func runApp(ctx context.Context, cfg *app.Config, outW, errW io.Writer) error {
	a, err := app.NewApp(outW, errW, cfg)
	if err != nil {
		return &ExitError{Code: ExitRuntime, Message: err.Error()}
	}

	if cfg.Watch {
		err = a.Watch(ctx)
	} else {
		_, err = a.Run(ctx)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, app.ErrNodesFailed):
		return &ExitError{Code: ExitNodesFailed, Message: err.Error()}
	default:
		return &ExitError{Code: ExitRuntime, Message: fmt.Sprintf("formulagrid: %v", err)}
	}
}
