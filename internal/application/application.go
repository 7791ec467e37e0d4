package application

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/eugenenazirov/hubble/internal/config"
	"github.com/eugenenazirov/hubble/internal/environment"
	"github.com/eugenenazirov/hubble/internal/keyring"
	"github.com/eugenenazirov/hubble/internal/launcher"
	"github.com/eugenenazirov/hubble/internal/resolver"
	"github.com/eugenenazirov/hubble/internal/runner"
	"github.com/eugenenazirov/hubble/internal/storage"
)

const (
	programName   = "hubble"
	defaultEnvKey = "default-env"
	commandKey    = "cmd"
)

var headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

// Invocation is one parsed command line.
type Invocation struct {
	// Program is the name hubble was invoked as (argv[0]).
	Program string
	// Env is the chosen environment, empty to fall back to default-env.
	Env string
	// Args are passed through to the launched command.
	Args    []string
	Options string
	Debug   bool
}

// App encapsulates the application dependencies.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *storage.Store
	resolver resolver.Resolver
	runner   *runner.Runner
	launcher *launcher.Launcher

	secrets  keyring.Store
	prompt   PassphrasePrompt
	stdout   io.Writer
	stderr   io.Writer
	stdin    io.Reader
	environ  func() []string
	lookPath func(string) (string, error)
}

// Option configures the App.
type Option func(*App)

// WithOutput redirects everything the App and the launched commands print.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithInput sets the stdin handed to a launched command.
func WithInput(stdin io.Reader) Option {
	return func(a *App) {
		a.stdin = stdin
	}
}

// WithSecrets replaces the configured vault.
func WithSecrets(secrets keyring.Store) Option {
	return func(a *App) {
		a.secrets = secrets
	}
}

// WithPassphrasePrompt sets how the vault passphrase is obtained when the
// settings do not carry one.
func WithPassphrasePrompt(prompt PassphrasePrompt) Option {
	return func(a *App) {
		a.prompt = prompt
	}
}

// WithEnviron overrides the local environment seen by commands.
func WithEnviron(environ func() []string) Option {
	return func(a *App) {
		if environ != nil {
			a.environ = environ
		}
	}
}

// WithLookPath overrides how command names are resolved to executables.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(a *App) {
		if lookPath != nil {
			a.lookPath = lookPath
		}
	}
}

// New initializes the application from the provided configuration. The rc
// files are read here; the vault is opened on first use.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	store, err := storage.Load(cfg.RCFiles)
	if err != nil {
		return nil, fmt.Errorf("while parsing configs: %w", err)
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		stdin:    os.Stdin,
		environ:  os.Environ,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.secrets == nil {
		a.secrets = &lazyStore{open: func() (keyring.Store, error) {
			return OpenVault(cfg.Vault, a.prompt)
		}}
	}

	a.resolver = resolver.New(store, a.secrets)
	a.runner = runner.New(logger, runner.WithShell(cfg.Shell), runner.WithEnviron(a.environ))
	a.launcher = launcher.New(logger,
		launcher.WithOutput(a.stdout, a.stderr),
		launcher.WithInput(a.stdin),
		launcher.WithRate(cfg.Launch.RPS, cfg.Launch.Burst),
	)

	logger.Debug("config loaded", zap.Strings("sources", store.Sources()))
	return a, nil
}

// Store returns the parsed rc files.
func (a *App) Store() *storage.Store {
	return a.store
}

// Run resolves the invocation and launches its command once per resolved
// environment. It returns the exit code for the process.
func (a *App) Run(ctx context.Context, inv Invocation) (int, error) {
	choice := a.chooseEnv(inv.Env)
	if choice == "" {
		a.ListEnvironments()
		return 1, nil
	}

	envs, err := a.resolver.Resolve(choice, invocationOptions(choice, inv))
	if err != nil {
		return 1, err
	}

	specs := make([]launcher.Spec, 0, len(envs))
	for _, env := range envs {
		spec, err := a.prepare(ctx, inv, env, len(envs) != 1)
		if err != nil {
			return 1, err
		}
		specs = append(specs, spec)
	}

	return a.launcher.Run(ctx, specs)
}

// ListEnvironments prints the environments configured in the rc files.
func (a *App) ListEnvironments() {
	fmt.Fprintf(a.stdout, "Environments Configured: %s\n", strings.Join(a.store.Sections(), ","))
	fmt.Fprintln(a.stdout, "See --help for usage")
}

// ValidateVariable fails unless variable is defined for env in the rc files.
func (a *App) ValidateVariable(env, variable string) error {
	if _, err := a.store.Get(env, variable); err != nil {
		return fmt.Errorf("%w (read from %s)", err, strings.Join(a.store.Sources(), ", "))
	}
	return nil
}

func (a *App) chooseEnv(requested string) string {
	if requested != "" {
		return requested
	}
	if a.cfg.DefaultEnv != "" {
		return a.cfg.DefaultEnv
	}
	value, _ := a.store.DefaultValue(defaultEnvKey)
	return strings.TrimSpace(value)
}

func invocationOptions(choice string, inv Invocation) map[string]string {
	opts := map[string]string{
		"env":               choice,
		resolver.OptionsKey: inv.Options,
	}
	if inv.Debug {
		opts["debug"] = "true"
	}
	return opts
}

// prepare runs the env's directives and builds its launch spec.
func (a *App) prepare(ctx context.Context, inv Invocation, env *environment.Env, fanOut bool) (launcher.Spec, error) {
	name := env.Name()

	if strings.TrimSpace(inv.Options) != "" {
		command, ok := firstValue(env, resolver.OptCmdKeys)
		if !ok {
			return launcher.Spec{}, fmt.Errorf("%w: provided --options, but 'opt-cmd' is not defined in '%s' section",
				ErrMissingOptCmd, name)
		}
		env.Add(a.runner.Run(ctx, command, env.ToMap()), name)
	}
	if command, ok := firstValue(env, resolver.EnvCmdKeys); ok {
		env.Add(a.runner.Run(ctx, command, env.ToMap()), name)
	}

	path, err := a.command(inv.Program, env)
	if err != nil {
		return launcher.Spec{}, err
	}

	var banner []string
	if fanOut || inv.Debug {
		banner = append(banner, fmt.Sprintf("-- [%s] --", headerStyle.Render(name)))
	}
	if inv.Debug {
		banner = append(banner, "Cmd: "+path, env.String(), "")
		a.logger.Debug("resolved environment", zap.String("env", name), zap.Strings("vars", env.Keys()))
	}

	var base []string
	if a.cfg.IncludeLocalEnv {
		base = a.environ()
	}

	return launcher.Spec{
		Name:   name,
		Banner: strings.Join(banner, "\n"),
		Path:   path,
		Args:   inv.Args,
		Env:    runner.Overlay(base, env.ToMap()),
	}, nil
}

// command picks the executable: the [hubble-commands] entry for the name
// hubble was invoked as, else the env's cmd.
func (a *App) command(program string, env *environment.Env) (string, error) {
	if base := filepath.Base(program); program != "" && !strings.HasSuffix(base, programName) {
		if command, ok := a.store.Command(base); ok {
			return a.resolvePath(command)
		}
	}

	command := strings.TrimSpace(env.Value(commandKey))
	if command == "" {
		return "", fmt.Errorf("%w: please specify a 'cmd' somewhere in your config", ErrNoCommand)
	}
	return a.resolvePath(command)
}

func (a *App) resolvePath(command string) (string, error) {
	path, err := a.lookPath(command)
	if err != nil {
		return "", fmt.Errorf("%w: '%s' (%v); add it to your PATH or map the invocation name to an executable under [%s]",
			ErrCommandNotFound, command, err, storage.CommandsSection)
	}
	return path, nil
}

func firstValue(env *environment.Env, keys []string) (string, bool) {
	for _, key := range keys {
		if env.Has(key) {
			return env.Value(key), true
		}
	}
	return "", false
}
