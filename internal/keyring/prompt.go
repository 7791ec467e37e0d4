package keyring

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// PromptPassphrase reads a line from the terminal on stdin without echoing
// it. label is written to stderr first.
func PromptPassphrase(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: no terminal available for an interactive prompt (set HUBBLE_VAULT_PASSPHRASE)",
			ErrStoreUnavailable)
	}

	fmt.Fprint(os.Stderr, label)
	value, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read from terminal: %w", err)
	}
	return string(value), nil
}
