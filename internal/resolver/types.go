package resolver

import "github.com/eugenenazirov/hubble/internal/environment"

// MetaKey lists the sections a meta section fans out into.
const MetaKey = "meta"

// OptionPrefix namespaces caller supplied options inside an environment.
const OptionPrefix = "opt."

// OptionsKey is the option carrying the --options argument.
const OptionsKey = "options"

var (
	// OptCmdKeys name the command run when --options is given.
	OptCmdKeys = []string{"opt-cmd", "opt_cmd"}
	// EnvCmdKeys name the command whose output is always folded in.
	EnvCmdKeys = []string{"env-cmd", "env_cmd"}
)

// Resolver describes the behaviour required from a resolution driver.
type Resolver interface {
	// Resolve builds one evaluated Env per target of choice, in target
	// declaration order. options are exposed as opt.<name>. Without an
	// "options" entry the opt-cmd directive is dropped before evaluation.
	Resolve(choice string, options map[string]string) ([]*environment.Env, error)
}
