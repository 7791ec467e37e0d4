package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/hubble/internal/application"
	"github.com/eugenenazirov/hubble/internal/config"
	"github.com/eugenenazirov/hubble/internal/keyring"
	"github.com/eugenenazirov/hubble/internal/logging"
)

const description = `hubble-keyring is a companion to hubble that stores and retrieves
sensitive keys and passwords in the encrypted hubble vault.

Set the OS_PASSWORD for the [chicago] section of .hubblerc
    hubble-keyring --set chicago OS_PASSWORD

Set the value for USE_KEYRING['my-global-password']
    hubble-keyring --set my-global-password`

var promptSecret = keyring.PromptPassphrase

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	kingpinApp := kingpin.New("hubble-keyring", description)
	kingpinApp.UsageWriter(stdout)
	kingpinApp.ErrorWriter(stderr)

	// --help reports its exit code here instead of exiting.
	exitCode := -1
	kingpinApp.Terminate(func(code int) {
		if exitCode < 0 {
			exitCode = code
		}
	})

	get := kingpinApp.Flag("get", "Retrieve a credential from the vault").Short('g').Bool()
	set := kingpinApp.Flag("set", "Store a credential in the vault").Short('s').Bool()
	rcFiles := kingpinApp.Flag("config", "rc file to validate against (repeatable)").Strings()
	settingsFile := kingpinApp.Flag("settings", "Path to YAML settings file").String()
	env := kingpinApp.Arg("env", "Environment the variable belongs to, or the global name").Required().String()
	variable := kingpinApp.Arg("variable", "Variable name to store").String()

	_, err := kingpinApp.Parse(argv[1:])
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		fmt.Fprintf(stderr, "-- %s\n", err)
		return 1
	}
	if *get == *set {
		fmt.Fprintln(stderr, "-- Please specify --get or --set on the command line")
		return 1
	}

	cfg, err := config.Load(&config.CLIOverrides{SettingsFile: *settingsFile, RCFiles: *rcFiles})
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

	openVault := func() (*keyring.Vault, error) {
		return application.OpenVault(cfg.Vault, func() (string, error) {
			return promptSecret("Vault passphrase: ")
		})
	}

	if *get {
		vault, err := openVault()
		if err != nil {
			fmt.Fprintf(stderr, "-- %s\n", err)
			return 1
		}
		secret, err := vault.GetSecret(*env, *variable)
		if err != nil {
			fmt.Fprintf(stderr, "-- %s\n", err)
			return 1
		}
		fmt.Fprintln(stdout, secret)
		return 0
	}

	if *variable != "" {
		app, err := application.New(cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "-- %s\n", err)
			return 1
		}
		if err := app.ValidateVariable(*env, *variable); err != nil {
			fmt.Fprintf(stderr, "-- %s\n", err)
			return 1
		}
	}

	secret, err := promptSecret("Enter Credential (CTRL-D to abort) > ")
	if err != nil || strings.TrimSpace(secret) == "" {
		logger.Debug("no credential read", zap.Error(err))
		fmt.Fprintln(stderr, "-- No data was altered in your vault.")
		return 1
	}

	vault, err := openVault()
	if err != nil {
		fmt.Fprintf(stderr, "-- %s\n", err)
		return 1
	}
	if err := vault.SetSecret(*env, *variable, secret); err != nil {
		fmt.Fprintf(stderr, "-- Unable to store credentials for %s: %s\n", keyring.EntryName(*env, *variable), err)
		return 1
	}

	fmt.Fprintf(stdout, "-- Successfully stored credentials for %s in %s\n", describe(*env, *variable), vault.Path())
	return 0
}

func describe(env, variable string) string {
	if variable == "" {
		return fmt.Sprintf("global variable '%s'", env)
	}
	return fmt.Sprintf("variable '%s' in environment [%s]", variable, env)
}
