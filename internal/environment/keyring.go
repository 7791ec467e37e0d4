package environment

import (
	"fmt"
	"strings"

	"github.com/eugenenazirov/hubble/internal/keyring"
)

const keyringDirective = "USE_KEYRING"

// resolveSecret replaces a USE_KEYRING directive with the stored secret.
// Values that are not directives are returned unchanged.
func (e *Env) resolveSecret(key string, p *Pair) (string, error) {
	value := strings.TrimSpace(p.Value)
	if !strings.HasPrefix(value, keyringDirective) {
		return p.Value, nil
	}

	rest := value[len(keyringDirective):]
	var namespace, name string
	switch {
	case rest == "":
		namespace, name = p.Section, key
	case strings.HasPrefix(rest, "["):
		ident, err := parseDirectiveArgument(value, rest)
		if err != nil {
			return "", err
		}
		namespace = ident
	default:
		return p.Value, nil
	}

	if e.secrets == nil {
		return "", fmt.Errorf("%w: variable '%s' uses %s", keyring.ErrStoreUnavailable, key, keyringDirective)
	}
	secret, err := e.secrets.GetSecret(namespace, name)
	if err != nil {
		return "", fmt.Errorf("resolve '%s': %w", key, err)
	}
	return secret, nil
}

// parseDirectiveArgument extracts ident from ['ident'] or ["ident"].
func parseDirectiveArgument(directive, rest string) (string, error) {
	if !strings.HasSuffix(rest, "]") {
		return "", fmt.Errorf("%w: %s is missing a closing bracket", ErrMalformedKeyringDirective, directive)
	}
	arg := strings.TrimSpace(rest[1 : len(rest)-1])
	if len(arg) < 2 {
		return "", fmt.Errorf("%w: %s", ErrMalformedKeyringDirective, directive)
	}

	quote := arg[0]
	if (quote != '\'' && quote != '"') || arg[len(arg)-1] != quote {
		return "", fmt.Errorf("%w: %s needs a matching quoted name", ErrMalformedKeyringDirective, directive)
	}
	ident := arg[1 : len(arg)-1]
	if ident == "" || strings.ContainsAny(ident, `'"`) {
		return "", fmt.Errorf("%w: %s", ErrMalformedKeyringDirective, directive)
	}
	return ident, nil
}
