package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

const defaultShell = "/bin/sh"

// Runner executes opt-cmd and env-cmd directives and parses their output
// as key=value lines.
type Runner struct {
	logger  *zap.Logger
	shell   string
	environ func() []string
}

// Option configures a Runner.
type Option func(*Runner)

// WithShell overrides the shell used to run commands.
func WithShell(shell string) Option {
	return func(r *Runner) {
		if strings.TrimSpace(shell) != "" {
			r.shell = shell
		}
	}
}

// WithEnviron overrides the base process environment, primarily for tests.
func WithEnviron(environ func() []string) Option {
	return func(r *Runner) {
		r.environ = environ
	}
}

// New constructs a Runner.
func New(logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger:  logger,
		shell:   defaultShell,
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes command through the shell with env overlaid on the base
// environment and returns the variables printed on stdout. A blank command
// returns an empty map without spawning anything. Failures are logged and
// also yield an empty map.
func (r *Runner) Run(ctx context.Context, command string, env map[string]string) map[string]string {
	if strings.TrimSpace(command) == "" {
		return map[string]string{}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	cmd.Env = Overlay(r.environ(), env)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		r.logger.Warn("command failed, ignoring its output",
			zap.String("command", command),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
			zap.Error(err),
		)
		return map[string]string{}
	}

	vars, err := ParseOutput(stdout.String())
	if err != nil {
		r.logger.Warn("command output is not key=value, ignoring it",
			zap.String("command", command),
			zap.Error(err),
		)
		return map[string]string{}
	}

	r.logger.Debug("command injected variables",
		zap.String("command", command),
		zap.Int("count", len(vars)),
	)
	return vars
}

// ParseOutput parses newline separated key=value lines, splitting on the
// first '=' and trimming both sides. Blank lines are skipped.
func ParseOutput(out string) (map[string]string, error) {
	vars := make(map[string]string)
	for i, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("line %d: expected key=value, got %q", i+1, line)
		}
		vars[key] = strings.TrimSpace(value)
	}
	return vars, nil
}

// Overlay returns base ("k=v" entries) with vars added or replaced.
func Overlay(base []string, vars map[string]string) []string {
	merged := make(map[string]string, len(base)+len(vars))
	order := make([]string, 0, len(base)+len(vars))
	for _, entry := range base {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, seen := merged[key]; !seen {
			order = append(order, key)
		}
		merged[key] = value
	}
	for key, value := range vars {
		if _, seen := merged[key]; !seen {
			order = append(order, key)
		}
		merged[key] = value
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, key+"="+merged[key])
	}
	return out
}
