package environment

import (
	"errors"
	"fmt"
)

var (
	// ErrUndefinedVariable is returned when a ${name} reference has no matching variable.
	ErrUndefinedVariable = errors.New("undefined variable")
	// ErrMalformedKeyringDirective is returned when a USE_KEYRING[...] argument is not a quoted literal.
	ErrMalformedKeyringDirective = errors.New("malformed keyring directive")
)

// UndefinedVariableError names the dangling reference and the partially
// expanded value it was found in.
type UndefinedVariableError struct {
	Name  string
	Value string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("no such environment variable '%s' in '%s'", e.Name, e.Value)
}

func (e *UndefinedVariableError) Unwrap() error {
	return ErrUndefinedVariable
}
