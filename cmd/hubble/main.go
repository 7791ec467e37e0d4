package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/hubble/internal/application"
	"github.com/eugenenazirov/hubble/internal/config"
	"github.com/eugenenazirov/hubble/internal/keyring"
	"github.com/eugenenazirov/hubble/internal/logging"
)

const description = `An environment manager for command line tools.

Use ~/.hubblerc for user wide environments then place a .hubblerc in a local
directory to override ~/.hubblerc. Every argument after <env> is passed to the
command.`

var signalNotify = signal.Notify

func main() {
	ctx, cancel := withSignals(context.Background())
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	kingpinApp := kingpin.New("hubble", description)
	kingpinApp.Interspersed(false)
	kingpinApp.UsageWriter(stdout)
	kingpinApp.ErrorWriter(stderr)

	// --help reports its exit code here instead of exiting.
	exitCode := -1
	kingpinApp.Terminate(func(code int) {
		if exitCode < 0 {
			exitCode = code
		}
	})

	options := kingpinApp.Flag("options", "Optional argument passed to the 'opt-cmd'").Short('o').String()
	debug := kingpinApp.Flag("debug", "Print each resolved environment before running the command").Short('d').Bool()
	fileFormat := kingpinApp.Flag("file-format", "Show an example ~/.hubblerc").Bool()
	rcFiles := kingpinApp.Flag("config", "rc file to read instead of the configured ones (repeatable)").Strings()
	settingsFile := kingpinApp.Flag("settings", "Path to YAML settings file").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	env := kingpinApp.Arg("env", "The section in ~/.hubblerc to use").String()
	args := kingpinApp.Arg("args", "Arguments passed to the command").Strings()

	_, err := kingpinApp.Parse(argv[1:])
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		fmt.Fprintf(stderr, "-- %s\n", err)
		return 1
	}

	if *fileFormat {
		fmt.Fprint(stdout, application.ExampleConfig)
		return 0
	}

	overrides := &config.CLIOverrides{
		SettingsFile: *settingsFile,
		RCFiles:      *rcFiles,
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(stderr, "-- failed to load settings: %s\n", err)
		return 1
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "-- failed to initialize logger: %s\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger,
		application.WithOutput(stdout, stderr),
		application.WithPassphrasePrompt(func() (string, error) {
			return keyring.PromptPassphrase("Vault passphrase: ")
		}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "-- %s\n", err)
		return 1
	}

	code, err := app.Run(ctx, application.Invocation{
		Program: argv[0],
		Env:     *env,
		Args:    *args,
		Options: *options,
		Debug:   *debug,
	})
	if err != nil {
		logger.Debug("invocation failed", zap.Error(err))
		fmt.Fprintf(stderr, "-- %s\n", err)
		return 1
	}
	return code
}

// withSignals returns a context cancelled on SIGINT or SIGTERM, which stops
// any launched command.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
