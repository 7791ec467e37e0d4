package storage

import "errors"

var (
	// ErrConfig is returned when the rc sources are missing, unreadable, or
	// structurally invalid (for example an inheritance cycle).
	ErrConfig = errors.New("config error")
	// ErrNoSuchSection is returned when a section is not defined in any source.
	ErrNoSuchSection = errors.New("no such section")
	// ErrNoSuchKey is returned when a key is neither in the section view nor in the defaults.
	ErrNoSuchKey = errors.New("no such key")
)
