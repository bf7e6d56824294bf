package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shpitdev/filemod/internal/app"
	"github.com/shpitdev/filemod/internal/config"
	"github.com/shpitdev/filemod/internal/logging"
	"github.com/shpitdev/filemod/internal/prompt"
	"github.com/shpitdev/filemod/internal/version"
	"github.com/shpitdev/filemod/pkg/pipeline/io/local"
	"github.com/shpitdev/filemod/pkg/pipeline/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	root := newRootCmd(in, out, errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	// Errors that are not exitErrors come from cobra flag and argument parsing.
	code := 2
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	// File failures have already been reported on stdout.
	var fe *local.FileError
	if !errors.As(err, &fe) {
		_, _ = fmt.Fprintf(errOut, "filemod: %s\n", err)
	}
	return code
}

type flagValues struct {
	config       string
	suffix       string
	workers      int
	rateLimitRPS float64
	failFast     bool
	show         bool
	logLevel     string
	logFormat    string
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var fv flagValues
	root := &cobra.Command{
		Use:   "filemod [FILE...]",
		Short: "Trim, number and uppercase the lines of text files",
		Long: `filemod reads a text file, drops blank lines, numbers and uppercases the rest,
and writes the result next to the input as <name>_modified<ext>.

With no arguments it asks for a filename interactively.`,
		Example: `  filemod
  filemod notes.txt
  filemod --workers 8 --fail-fast logs/*.txt`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), fv)
			if err != nil {
				return &exitError{code: 2, err: err}
			}
			return runFiles(cmd.Context(), cfg, args, in, out, errOut)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	f := root.Flags()
	f.StringVar(&fv.config, "config", "", "YAML config file (env: "+config.EnvConfigFile+")")
	f.StringVar(&fv.suffix, "suffix", "", "Suffix inserted before the output extension (env: "+config.EnvSuffix+", default \"_modified\")")
	f.IntVar(&fv.workers, "workers", 0, "Concurrent files when several are given (env: "+config.EnvWorkers+", default 4)")
	f.Float64Var(&fv.rateLimitRPS, "rate-limit-rps", 0, "Files started per second, 0 disables (env: "+config.EnvRateLimit+")")
	f.BoolVar(&fv.failFast, "fail-fast", false, "Stop at the first failing file (env: "+config.EnvFailFast+")")
	f.BoolVar(&fv.show, "show", false, "Print original and modified content after success (env: "+config.EnvShow+")")
	f.StringVar(&fv.logFormat, "log-format", "", "Diagnostic log format: text|json (env: "+config.EnvLogFormat+")")
	f.StringVar(&fv.logLevel, "log-level", "", "Diagnostic log level on stderr: debug|info|warn|error (env: "+config.EnvLogLevel+")")

	root.AddCommand(newVersionCmd(out))
	return root
}

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the filemod version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			_, _ = fmt.Fprintln(out, version.Current)
		},
	}
}

// loadConfig layers explicitly set flags over the file/env configuration.
func loadConfig(flags *pflag.FlagSet, fv flagValues) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: fv.config, DotEnv: ".env"})
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	if flags.Changed("suffix") {
		cfg.Suffix = fv.suffix
	}
	if flags.Changed("workers") {
		cfg.Workers = fv.workers
	}
	if flags.Changed("rate-limit-rps") {
		cfg.RateLimitRPS = fv.rateLimitRPS
	}
	if flags.Changed("fail-fast") {
		cfg.FailFast = fv.failFast
	}
	if flags.Changed("show") {
		cfg.Show = fv.show
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = fv.logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

func runFiles(ctx context.Context, cfg config.Config, inputs []string, in io.Reader, out, errOut io.Writer) error {
	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Output: errOut,
		JSON:   cfg.LogFormat == "json",
	})
	a := app.New(app.Options{
		Files:  local.NewFiles(nil),
		Out:    out,
		Logger: logger,
		Suffix: cfg.Suffix,
	})

	switch len(inputs) {
	case 0:
		if err := a.Interactive(ctx, newPrompter(in, out), cfg.Show); err != nil {
			return &exitError{code: 1, err: err}
		}
		return nil
	case 1:
		res, err := a.Run(ctx, a.Prepare(inputs[0]))
		if err != nil {
			return &exitError{code: 1, err: err}
		}
		a.Summary(res, cfg.Show)
		return nil
	}

	policy := worker.FailurePolicyPartialOutput
	if cfg.FailFast {
		policy = worker.FailurePolicyFailFast
	}
	results, err := a.RunBatch(ctx, inputs, worker.Options{
		Workers:       cfg.Workers,
		RateLimitRPS:  cfg.RateLimitRPS,
		Timeout:       cfg.Timeout,
		FailurePolicy: policy,
	})
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	var failed error
	for _, r := range results {
		if r.Err != nil {
			failed = errors.Join(failed, r.Err)
			continue
		}
		a.Summary(r.Output, cfg.Show)
	}
	if failed != nil {
		return &exitError{code: 1, err: failed}
	}
	return nil
}

func newPrompter(in io.Reader, out io.Writer) prompt.Prompter {
	inFile, inOK := in.(*os.File)
	outFile, outOK := out.(*os.File)
	if inOK && outOK {
		return prompt.New(inFile, outFile)
	}
	return prompt.NewLine(in, out)
}
