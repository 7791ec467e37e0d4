package resolver

import "errors"

var (
	// ErrNoSuchEnvironment is returned when the requested environment, or a
	// target listed by its meta attribute, is not defined in the config.
	ErrNoSuchEnvironment = errors.New("no such environment")
)
