package acl

import "errors"

// Pool errors.
var (
	ErrCapacity      = errors.New("acl: value exceeds slot capacity")
	ErrPoolFull      = errors.New("acl: pool full")
	ErrInvalidHandle = errors.New("acl: invalid handle")
	ErrTxnActive     = errors.New("acl: transaction already active")
	ErrInconsistent  = errors.New("acl: pool lists inconsistent")
	ErrCorruptImage  = errors.New("acl: corrupt pool image")
)
