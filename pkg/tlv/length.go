package tlv

import "fmt"

// MaxEnvelopeLength is the smallest payload length the GET DATA response
// envelope refuses to encode.
const MaxEnvelopeLength = 0x7FFF

// MaxNodeLength is the largest value length of a single-byte length node.
const MaxNodeLength = 0xFF

// LengthSize returns the size of the BER length field for a payload of
// n bytes: one byte below 0x80, 81 xx below 0x100, 82 xx xx below
// MaxEnvelopeLength.
func LengthSize(n int) (int, error) {
	switch {
	case n < 0:
		return 0, ErrInvalidLength
	case n < 0x80:
		return 1, nil
	case n < 0x100:
		return 2, nil
	case n < MaxEnvelopeLength:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrLengthOverflow, n)
	}
}

// PutLength writes the BER length field for n at the start of dst and
// returns its size. dst must hold at least LengthSize(n) bytes.
func PutLength(dst []byte, n int) (int, error) {
	size, err := LengthSize(n)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		dst[0] = byte(n)
	case 2:
		dst[0] = 0x81
		dst[1] = byte(n)
	default:
		dst[0] = 0x82
		dst[1] = byte(n >> 8)
		dst[2] = byte(n)
	}
	return size, nil
}

// AppendLength appends the BER length field for n to dst.
func AppendLength(dst []byte, n int) ([]byte, error) {
	var buf [3]byte
	size, err := PutLength(buf[:], n)
	if err != nil {
		return dst, err
	}
	return append(dst, buf[:size]...), nil
}

// ReadLength decodes a BER length field at buf[ofs]. It returns the
// length and the offset of the first value byte.
func ReadLength(buf []byte, ofs int) (n, next int, err error) {
	if ofs < 0 || ofs >= len(buf) {
		return 0, 0, ErrUnexpectedEOF
	}
	first := buf[ofs]
	switch {
	case first < 0x80:
		return int(first), ofs + 1, nil
	case first == 0x81:
		if ofs+2 > len(buf) {
			return 0, 0, ErrUnexpectedEOF
		}
		return int(buf[ofs+1]), ofs + 2, nil
	case first == 0x82:
		if ofs+3 > len(buf) {
			return 0, 0, ErrUnexpectedEOF
		}
		return int(buf[ofs+1])<<8 | int(buf[ofs+2]), ofs + 3, nil
	default:
		return 0, 0, fmt.Errorf("%w: %02X", ErrInvalidLength, first)
	}
}
