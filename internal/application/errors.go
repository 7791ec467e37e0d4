package application

import "errors"

var (
	// ErrNoCommand is returned when neither [hubble-commands] nor the
	// environment names a command to run.
	ErrNoCommand = errors.New("no command configured")
	// ErrCommandNotFound is returned when the configured command is not an executable on PATH.
	ErrCommandNotFound = errors.New("command not found")
	// ErrMissingOptCmd is returned when --options is given but the environment has no opt-cmd.
	ErrMissingOptCmd = errors.New("opt-cmd not defined")
)
