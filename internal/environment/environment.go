// Package environment builds the variable set handed to a launched process.
package environment

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/eugenenazirov/hubble/internal/keyring"
)

// SectionKey is seeded with the name of the environment being resolved.
const SectionKey = "section"

var referencePattern = regexp.MustCompile(`\$\{([^}\s]+)\}`)

// Pair is a variable value plus the section that owns it. Section scopes
// USE_KEYRING lookups. Pairs with Export unset never reach the process.
type Pair struct {
	Value   string
	Section string
	Export  bool
}

// Env maps variable names to pairs.
type Env struct {
	pairs   map[string]*Pair
	secrets keyring.Store
}

// New returns an empty Env. secrets may be nil, in which case any
// USE_KEYRING directive fails with keyring.ErrStoreUnavailable.
func New(secrets keyring.Store) *Env {
	return &Env{
		pairs:   make(map[string]*Pair),
		secrets: secrets,
	}
}

// Set stores a variable. An empty or whitespace value removes it.
func (e *Env) Set(key, value, section string, export bool) {
	if isEmpty(value) {
		delete(e.pairs, key)
		return
	}
	e.pairs[key] = &Pair{Value: value, Section: section, Export: export}
}

// Add folds items into the environment as exported variables owned by section.
func (e *Env) Add(items map[string]string, section string) {
	for key, value := range items {
		e.Set(key, value, section, true)
	}
}

// Get returns a copy of the pair stored under key.
func (e *Env) Get(key string) (Pair, bool) {
	p, ok := e.pairs[key]
	if !ok {
		return Pair{}, false
	}
	return *p, true
}

// Value returns the value of key, or "" when absent.
func (e *Env) Value(key string) string {
	if p, ok := e.pairs[key]; ok {
		return p.Value
	}
	return ""
}

// Has reports whether key is set.
func (e *Env) Has(key string) bool {
	_, ok := e.pairs[key]
	return ok
}

// Len returns the number of variables, exported or not.
func (e *Env) Len() int {
	return len(e.pairs)
}

// Keys returns the variable names in sorted order.
func (e *Env) Keys() []string {
	keys := make([]string, 0, len(e.pairs))
	for k := range e.pairs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Name returns the environment name seeded under SectionKey.
func (e *Env) Name() string {
	return e.Value(SectionKey)
}

// Eval expands ${name} references, then USE_KEYRING directives.
//
// Expansion is a single pass against the values held before the call: a
// substituted value that itself contains ${...} is left as is. Variables
// that expand to an empty value are removed.
func (e *Env) Eval() error {
	snapshot := make(map[string]string, len(e.pairs))
	for k, p := range e.pairs {
		snapshot[k] = p.Value
	}

	for _, key := range e.Keys() {
		expanded, err := expand(e.pairs[key].Value, snapshot)
		if err != nil {
			return err
		}
		e.pairs[key].Value = expanded
	}

	for _, key := range e.Keys() {
		p := e.pairs[key]
		value, err := e.resolveSecret(key, p)
		if err != nil {
			return err
		}
		p.Value = value
	}

	for key, p := range e.pairs {
		if isEmpty(p.Value) {
			delete(e.pairs, key)
		}
	}
	return nil
}

// ToMap returns the exported variables as plain strings.
func (e *Env) ToMap() map[string]string {
	out := make(map[string]string, len(e.pairs))
	for k, p := range e.pairs {
		if p.Export {
			out[k] = p.Value
		}
	}
	return out
}

// ToSlice returns the exported variables as sorted key=value strings.
func (e *Env) ToSlice() []string {
	out := make([]string, 0, len(e.pairs))
	for _, k := range e.Keys() {
		if p := e.pairs[k]; p.Export {
			out = append(out, k+"="+p.Value)
		}
	}
	return out
}

// String renders every variable as "key: value", right aligning the keys.
func (e *Env) String() string {
	keys := e.Keys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%*s: %s", width, k, e.pairs[k].Value)
	}
	return b.String()
}

func expand(value string, vars map[string]string) (string, error) {
	var b strings.Builder
	last := 0
	for _, m := range referencePattern.FindAllStringSubmatchIndex(value, -1) {
		b.WriteString(value[last:m[0]])
		name := value[m[2]:m[3]]
		replacement, ok := vars[name]
		if !ok {
			return "", &UndefinedVariableError{Name: name, Value: b.String() + value[m[0]:]}
		}
		b.WriteString(replacement)
		last = m[1]
	}
	b.WriteString(value[last:])
	return b.String(), nil
}

func isEmpty(value string) bool {
	return strings.TrimSpace(value) == ""
}
