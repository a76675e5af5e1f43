package crypto

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestSeededRandom_Deterministic(t *testing.T) {
	a := NewSeededRandom([]byte("seed"))
	b := NewSeededRandom([]byte("seed"))

	x, err := ReadRandom(a, 40)
	if err != nil {
		t.Fatalf("ReadRandom() error = %v", err)
	}
	y, err := ReadRandom(b, 40)
	if err != nil {
		t.Fatalf("ReadRandom() error = %v", err)
	}
	if !bytes.Equal(x, y) {
		t.Errorf("same seed produced %X and %X", x, y)
	}

	// Split reads continue the same stream.
	c := NewSeededRandom([]byte("seed"))
	first, _ := ReadRandom(c, 15)
	rest, _ := ReadRandom(c, 25)
	if !bytes.Equal(append(first, rest...), x) {
		t.Error("split reads diverge from a single read")
	}

	next, _ := ReadRandom(a, 40)
	if bytes.Equal(next, x) {
		t.Error("stream repeated itself")
	}
}

func TestSeededRandom_SeedsDiffer(t *testing.T) {
	x, _ := ReadRandom(NewSeededRandom([]byte{1}), 16)
	y, _ := ReadRandom(NewSeededRandom([]byte{2}), 16)
	if bytes.Equal(x, y) {
		t.Errorf("different seeds produced the same output %X", x)
	}
}

func TestSystemRandom(t *testing.T) {
	x, err := ReadRandom(SystemRandom(), 8)
	if err != nil {
		t.Fatalf("ReadRandom() error = %v", err)
	}
	if len(x) != 8 {
		t.Errorf("len = %d, want 8", len(x))
	}
}

type shortReader struct{ n int }

func (r *shortReader) Read(p []byte) (int, error) {
	if r.n == 0 {
		return 0, io.EOF
	}
	n := min(len(p), r.n)
	r.n -= n
	return n, nil
}

func TestReadRandom_Short(t *testing.T) {
	if _, err := ReadRandom(&shortReader{n: 3}, 8); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadRandom() error = %v, want %v", err, io.ErrUnexpectedEOF)
	}
}
