package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// LengthPrefixSize is the size of the frame length prefix.
	LengthPrefixSize = 4

	// MaxFrameSize bounds the APDU carried by one frame.
	MaxFrameSize = 1024
)

// StreamWriter writes length-prefixed frames.
type StreamWriter struct {
	w io.Writer
}

// NewStreamWriter creates a frame writer on w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Write writes frame with its length prefix in a single call to the
// underlying writer.
func (sw *StreamWriter) Write(frame []byte) error {
	if len(frame) == 0 {
		return ErrEmptyFrame
	}
	if len(frame) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(frame))
	}

	buf := make([]byte, LengthPrefixSize+len(frame))
	binary.LittleEndian.PutUint32(buf, uint32(len(frame)))
	copy(buf[LengthPrefixSize:], frame)
	_, err := sw.w.Write(buf)
	return err
}

// StreamReader reads length-prefixed frames.
type StreamReader struct {
	r *bufio.Reader
}

// NewStreamReader creates a frame reader on r. Reads are buffered, so a
// packet-oriented connection delivering a whole frame per read works as
// well as a byte stream.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: bufio.NewReader(r)}
}

// Read returns the next frame without its length prefix. A clean end
// of stream before a frame starts returns io.EOF.
func (sr *StreamReader) Read() ([]byte, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(sr.r, prefix[:]); err != nil {
		return nil, err
	}

	n := binary.LittleEndian.Uint32(prefix[:])
	switch {
	case n == 0:
		return nil, ErrEmptyFrame
	case n > MaxFrameSize:
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(sr.r, frame); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return frame, nil
}
