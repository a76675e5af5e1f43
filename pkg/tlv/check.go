package tlv

import "fmt"

// Check validates the tag and single-byte length of the TLV starting at
// buf[ofs] and returns the offset just past its value, which is where
// the next sibling starts. Nested structures are validated by calling
// Check at the offset of each child in turn; no parse tree is built.
func Check(buf []byte, ofs int, tag Tag, maxLen int) (int, error) {
	if ofs < 0 || ofs+HeaderSize > len(buf) {
		return 0, fmt.Errorf("%w: %s header at %d", ErrUnexpectedEOF, tag, ofs)
	}
	if got := Tag(buf[ofs]); got != tag {
		return 0, fmt.Errorf("%w: want %s, got %s at %d", ErrTagMismatch, tag, got, ofs)
	}
	n := int(buf[ofs+1])
	if n > maxLen {
		return 0, fmt.Errorf("%w: %s length %d > %d", ErrLengthExceeded, tag, n, maxLen)
	}
	next := ofs + HeaderSize + n
	if next > len(buf) {
		return 0, fmt.Errorf("%w: %s value of %d bytes at %d", ErrUnexpectedEOF, tag, n, ofs)
	}
	return next, nil
}

// Value returns the value of the TLV at buf[ofs]. The TLV must already
// have passed Check.
func Value(buf []byte, ofs int) []byte {
	n := int(buf[ofs+1])
	return buf[ofs+HeaderSize : ofs+HeaderSize+n]
}

// Append appends tag, a single length byte and value to dst.
func Append(dst []byte, tag Tag, value []byte) ([]byte, error) {
	if len(value) > MaxNodeLength {
		return dst, fmt.Errorf("%w: %s length %d", ErrLengthExceeded, tag, len(value))
	}
	dst = append(dst, byte(tag), byte(len(value)))
	return append(dst, value...), nil
}
