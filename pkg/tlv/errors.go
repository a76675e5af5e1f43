package tlv

import "errors"

var (
	// ErrUnexpectedEOF is returned when a TLV header or value runs past the end of the input.
	ErrUnexpectedEOF = errors.New("tlv: unexpected end of input")

	// ErrTagMismatch is returned when the tag at the checked position is not the expected one.
	ErrTagMismatch = errors.New("tlv: tag mismatch")

	// ErrLengthExceeded is returned when a length is larger than the field allows.
	ErrLengthExceeded = errors.New("tlv: length exceeds maximum")

	// ErrLengthOverflow is returned when a length cannot be represented in the response envelope.
	ErrLengthOverflow = errors.New("tlv: length too large to encode")

	// ErrInvalidLength is returned when a BER length field uses an unsupported form.
	ErrInvalidLength = errors.New("tlv: invalid length field")
)
