// Package launcher starts the processes a resolved invocation hands off to.
package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Spec describes one process to start.
type Spec struct {
	// Name identifies the environment the process runs in.
	Name string
	// Banner is written ahead of the process output when non-empty.
	Banner string
	Path   string
	Args   []string
	Env    []string
}

// Launcher runs specs and reports the exit status of the invocation.
type Launcher struct {
	logger *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	pacer  pacer
}

// Option configures the Launcher.
type Option func(*Launcher)

// WithOutput redirects the output of launched processes.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithInput sets the stdin handed to a single launched process.
func WithInput(stdin io.Reader) Option {
	return func(l *Launcher) {
		l.stdin = stdin
	}
}

// WithRate limits how fast processes are started. A non-positive rate
// disables pacing.
func WithRate(ratePerSecond float64, burst int) Option {
	return func(l *Launcher) {
		l.pacer = newTokenBucketPacer(ratePerSecond, burst)
	}
}

// New creates a Launcher wired to the process stdio.
func New(logger *zap.Logger, opts ...Option) *Launcher {
	l := &Launcher{
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Run starts every spec. A single spec gets the launcher's stdio and its exit
// code is returned. Several specs run concurrently with their output buffered
// and written in the order given once all have finished; the exit code is 1 when
// any of them failed.
func (l *Launcher) Run(ctx context.Context, specs []Spec) (int, error) {
	switch len(specs) {
	case 0:
		return 0, nil
	case 1:
		return l.runOne(ctx, specs[0])
	}
	return l.runMany(ctx, specs)
}

func (l *Launcher) runOne(ctx context.Context, spec Spec) (int, error) {
	if spec.Banner != "" {
		fmt.Fprintln(l.stdout, spec.Banner)
	}
	if err := l.wait(ctx); err != nil {
		return 1, err
	}

	cmd := l.command(ctx, spec, l.stdout, l.stderr)
	cmd.Stdin = l.stdin

	l.logger.Debug("launching", zap.String("env", spec.Name), zap.String("path", spec.Path), zap.Strings("args", spec.Args))
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("launch %s: %w", spec.Path, err)
	}
	return 0, nil
}

type result struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	err    error
}

func (l *Launcher) runMany(ctx context.Context, specs []Spec) (int, error) {
	results := make([]*result, len(specs))
	var g errgroup.Group

	for i, spec := range specs {
		spec := spec
		if err := l.wait(ctx); err != nil {
			break
		}
		res := &result{}
		results[i] = res
		g.Go(func() error {
			cmd := l.command(ctx, spec, &res.stdout, &res.stderr)
			l.logger.Debug("launching", zap.String("env", spec.Name), zap.String("path", spec.Path), zap.Strings("args", spec.Args))
			res.err = cmd.Run()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return 1, err
	}

	code := 0
	for i, spec := range specs {
		res := results[i]
		if spec.Banner != "" {
			fmt.Fprintln(l.stdout, spec.Banner)
		}
		if res == nil {
			continue
		}
		_, _ = l.stdout.Write(res.stdout.Bytes())
		_, _ = l.stderr.Write(res.stderr.Bytes())
		if res.err != nil {
			code = 1
			l.logger.Error("process failed", zap.String("env", spec.Name), zap.String("path", spec.Path), zap.Error(res.err))
		}
	}
	return code, nil
}

func (l *Launcher) command(ctx context.Context, spec Spec, stdout, stderr io.Writer) *exec.Cmd {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Env = spec.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd
}

func (l *Launcher) wait(ctx context.Context) error {
	if l.pacer == nil {
		return nil
	}
	return l.pacer.Wait(ctx)
}
