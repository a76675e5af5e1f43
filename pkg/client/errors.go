package client

import (
	"errors"
	"fmt"

	"github.com/backkem/aram/pkg/apdu"
)

// ErrMalformedResponse is returned when a successful response does not
// have the expected layout.
var ErrMalformedResponse = errors.New("client: malformed response")

// StatusError reports a command that completed with a status word other
// than 9000. It matches the status word with errors.Is:
//
//	errors.Is(err, apdu.SWNotFound)
type StatusError struct {
	// Command is the header of the failed command, e.g. "80 CA FF40 Lc=0".
	Command string

	// SW is the returned status word.
	SW apdu.StatusWord
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %s: %04X (%s)", e.Command, uint16(e.SW), e.SW.String())
}

// Unwrap returns the status word.
func (e *StatusError) Unwrap() error {
	return e.SW
}
