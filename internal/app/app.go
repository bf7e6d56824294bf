package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shpitdev/filemod/internal/logging"
	"github.com/shpitdev/filemod/internal/prompt"
	"github.com/shpitdev/filemod/pkg/pipeline/io/local"
	"github.com/shpitdev/filemod/pkg/pipeline/worker"
	"github.com/shpitdev/filemod/pkg/transform"
)

const (
	bannerTitle = "FILE HANDLING AND EXCEPTION HANDLING PROGRAM"
	readFailed  = "Failed to read the file. Please check the filename and try again."
)

// Job is one input file and the path its transformed content is written to.
type Job struct {
	Input  string
	Output string
}

// Result describes one successful run.
type Result struct {
	Job
	Original string
	Modified string
}

// App runs read -> transform -> write jobs and reports progress to Out.
type App struct {
	Files  local.Files
	Out    io.Writer
	Logger logging.Logger
	Suffix string

	mu sync.Mutex
}

type Options struct {
	Files  local.Files
	Out    io.Writer
	Logger logging.Logger
	Suffix string
}

func New(opts Options) *App {
	a := &App{
		Files:  opts.Files,
		Out:    opts.Out,
		Logger: opts.Logger,
		Suffix: opts.Suffix,
	}
	if a.Files.FS == nil {
		a.Files = local.NewFiles(nil)
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Logger == nil {
		a.Logger = logging.Discard()
	}
	if a.Suffix == "" {
		a.Suffix = local.DefaultSuffix
	}
	return a
}

// Prepare derives the output path for input.
func (a *App) Prepare(input string) Job {
	return Job{Input: input, Output: local.OutputPath(input, a.Suffix)}
}

// Run reads job.Input, transforms it and writes job.Output. Read and write
// failures are reported to Out and returned as *local.FileError.
func (a *App) Run(ctx context.Context, job Job) (Result, error) {
	log := a.Logger.With("input", job.Input, "output", job.Output)
	start := time.Now()

	raw, err := a.Files.Read(ctx, job.Input)
	if err != nil {
		a.println(failureMessage(local.OpRead, job.Input, err))
		log.Warn("read failed", "kind", local.KindOf(err), "err", err)
		return Result{}, err
	}
	a.printf("Successfully read '%s'.\n", job.Input)

	modified := transform.Content(&raw)

	if err := a.Files.Write(ctx, job.Output, *modified); err != nil {
		a.println(failureMessage(local.OpWrite, job.Output, err))
		log.Warn("write failed", "kind", local.KindOf(err), "err", err)
		return Result{}, err
	}
	a.printf("Successfully wrote to '%s'.\n", job.Output)

	log.Debug("job complete",
		"bytes_in", len(raw),
		"bytes_out", len(*modified),
		"duration", time.Since(start).Round(time.Microsecond),
	)
	return Result{Job: job, Original: raw, Modified: *modified}, nil
}

// RunBatch runs one job per input on the worker pool. Results are in input
// order; per-file failures are recorded in each Result.Err unless opts fails fast.
func (a *App) RunBatch(ctx context.Context, inputs []string, opts worker.Options) ([]worker.Result[Job, Result], error) {
	runID := uuid.NewString()
	log := a.Logger.With("run", runID)
	start := time.Now()

	jobs := make([]Job, 0, len(inputs))
	for _, in := range inputs {
		jobs = append(jobs, a.Prepare(in))
	}
	log.Info("batch start",
		"files", len(jobs),
		"workers", opts.Workers,
		"rate_limit_rps", opts.RateLimitRPS,
		"fail_fast", opts.FailurePolicy == worker.FailurePolicyFailFast,
	)

	completed := 0
	out, err := worker.ProcessAllWithCallback(ctx, jobs, a.Run, func(r worker.Result[Job, Result]) error {
		completed++
		if r.Err != nil {
			log.Info("file failed", "input", r.Input.Input, "kind", local.KindOf(r.Err), "completed", completed, "total", len(jobs))
			return nil
		}
		log.Info("file done", "input", r.Input.Input, "output", r.Input.Output, "completed", completed, "total", len(jobs))
		return nil
	}, opts)
	if err != nil {
		log.Error("batch aborted", "err", err, "duration", time.Since(start).Round(time.Millisecond))
		return nil, err
	}

	failed := 0
	for _, r := range out {
		if r.Err != nil {
			failed++
		}
	}
	log.Info("batch complete",
		"ok", len(out)-failed,
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return out, nil
}

// Interactive runs one prompted session: banner, filename question, run,
// summary and, on request, display of both contents. When showAlways is set
// the contents are displayed without asking.
func (a *App) Interactive(ctx context.Context, p prompt.Prompter, showAlways bool) error {
	a.Banner()

	input, err := p.Filename(ctx)
	if err != nil {
		return err
	}

	res, err := a.Run(ctx, a.Prepare(input))
	if err != nil {
		if isReadFailure(err) {
			a.println(readFailed)
		}
		return err
	}

	show := showAlways
	a.Summary(res, false)
	if !show {
		if show, err = p.Confirm(ctx, prompt.ShowQuestion); err != nil {
			return err
		}
	}
	if show {
		a.Display(res)
	}
	return nil
}

func (a *App) Banner() {
	rule := strings.Repeat("=", 50)
	a.printf("%s\n%s\n%s\n", rule, bannerTitle, rule)
}

// Summary prints the completion lines for res, followed by both contents when show is set.
func (a *App) Summary(res Result, show bool) {
	a.printf("\nOperation completed successfully!\nOriginal file: %s\nModified file: %s\n", res.Input, res.Output)
	if show {
		a.Display(res)
	}
}

// Display prints the original and modified content of res.
func (a *App) Display(res Result) {
	rule := strings.Repeat("-", 40)
	a.printf("\nOriginal content of '%s':\n%s\n%s\n", res.Input, rule, res.Original)
	a.printf("\nModified content of '%s':\n%s\n%s\n", res.Output, rule, res.Modified)
}

func (a *App) printf(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = fmt.Fprintf(a.Out, format, args...)
}

func (a *App) println(s string) {
	a.printf("%s\n", s)
}

func isReadFailure(err error) bool {
	var fe *local.FileError
	return errors.As(err, &fe) && fe.Op == local.OpRead
}

func failureMessage(op local.Op, path string, err error) string {
	var fe *local.FileError
	if errors.As(err, &fe) {
		return fe.Message()
	}
	return (&local.FileError{Op: op, Path: path, Kind: local.KindUnexpected, Err: err}).Message()
}
