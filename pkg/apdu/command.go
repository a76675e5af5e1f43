package apdu

import (
	"errors"
	"fmt"
)

// Offsets of the command header fields.
const (
	OffsetCLA   = 0
	OffsetINS   = 1
	OffsetP1    = 2
	OffsetP2    = 3
	OffsetLC    = 4
	OffsetCData = 5
)

// Short APDU limits.
const (
	HeaderSize   = 4
	MaxShortData = 255
	MaxShortLe   = 256
)

var (
	// ErrTooShort is returned when a command is shorter than its 4-byte header.
	ErrTooShort = errors.New("apdu: command shorter than header")

	// ErrDataTooLong is returned when encoding a command whose data exceeds 255 bytes.
	ErrDataTooLong = errors.New("apdu: data exceeds short APDU limit")

	// ErrResponseTooShort is returned when a response has no status word.
	ErrResponseTooShort = errors.New("apdu: response shorter than status word")
)

// Command is a short command APDU.
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte

	// Le is the expected response length (1-256). Zero means no Le field.
	Le int
}

// Parse decodes a short command APDU (cases 1 to 4).
//
// When the command carries a body, the number of data bytes actually
// received must equal Lc, optionally followed by a single Le byte.
// Any other layout is reported as SWWrongLength. The returned Data
// aliases raw.
func Parse(raw []byte) (Command, error) {
	if len(raw) < HeaderSize {
		return Command{}, ErrTooShort
	}

	cmd := Command{
		CLA: raw[OffsetCLA],
		INS: raw[OffsetINS],
		P1:  raw[OffsetP1],
		P2:  raw[OffsetP2],
	}

	switch {
	case len(raw) == HeaderSize:
		return cmd, nil
	case len(raw) == HeaderSize+1:
		cmd.Le = decodeLe(raw[OffsetLC])
		return cmd, nil
	}

	lc := int(raw[OffsetLC])
	received := len(raw) - OffsetCData
	switch {
	case lc == 0:
		// Extended length is not supported.
		return Command{}, SWWrongLength
	case received == lc:
		cmd.Data = raw[OffsetCData:]
	case received == lc+1:
		cmd.Data = raw[OffsetCData : OffsetCData+lc]
		cmd.Le = decodeLe(raw[len(raw)-1])
	default:
		return Command{}, SWWrongLength
	}
	return cmd, nil
}

func decodeLe(b byte) int {
	if b == 0 {
		return MaxShortLe
	}
	return int(b)
}

// Bytes encodes the command.
func (c Command) Bytes() ([]byte, error) {
	if len(c.Data) > MaxShortData {
		return nil, ErrDataTooLong
	}

	out := make([]byte, 0, HeaderSize+2+len(c.Data))
	out = append(out, c.CLA, c.INS, c.P1, c.P2)
	if len(c.Data) > 0 {
		out = append(out, byte(len(c.Data)))
		out = append(out, c.Data...)
	}
	if c.Le > 0 {
		out = append(out, byte(c.Le)) // 256 encodes as 00
	}
	return out, nil
}

// String returns the header in hex, e.g. "80 CA FF40 Lc=0".
func (c Command) String() string {
	return fmt.Sprintf("%02X %02X %02X%02X Lc=%d", c.CLA, c.INS, c.P1, c.P2, len(c.Data))
}

// Response is a response APDU.
type Response struct {
	Data []byte
	SW   StatusWord
}

// Bytes encodes the response as data followed by SW1 SW2.
func (r Response) Bytes() []byte {
	out := make([]byte, len(r.Data)+2)
	copy(out, r.Data)
	out[len(r.Data)] = r.SW.SW1()
	out[len(r.Data)+1] = r.SW.SW2()
	return out
}

// ParseResponse splits a raw response into data and status word.
// The returned Data aliases raw.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, ErrResponseTooShort
	}
	n := len(raw) - 2
	return Response{
		Data: raw[:n],
		SW:   StatusWord(uint16(raw[n])<<8 | uint16(raw[n+1])),
	}, nil
}
