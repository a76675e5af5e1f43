package storage

import "errors"

var (
	// ErrNotFound is returned by Load when the key has never been committed.
	ErrNotFound = errors.New("storage: key not found")

	// ErrCorrupt is returned when a persisted image fails its integrity check.
	ErrCorrupt = errors.New("storage: image corrupt")

	// ErrInjected is the error returned by a FaultStore when a fault is armed.
	ErrInjected = errors.New("storage: injected fault")
)
