package transport

import "errors"

// Transport errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed server or client.
	ErrClosed = errors.New("transport: closed")

	// ErrNoHandler is returned when no handler is configured.
	ErrNoHandler = errors.New("transport: no handler configured")

	// ErrAlreadyStarted is returned when Start is called on a running server.
	ErrAlreadyStarted = errors.New("transport: already started")

	// ErrFrameTooLarge is returned for frames longer than MaxFrameSize.
	ErrFrameTooLarge = errors.New("transport: frame too large")

	// ErrEmptyFrame is returned for a zero-length frame.
	ErrEmptyFrame = errors.New("transport: empty frame")
)
