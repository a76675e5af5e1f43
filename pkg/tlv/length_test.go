package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestLengthForms(t *testing.T) {
	tests := []struct {
		n       int
		want    []byte
		wantErr error
	}{
		{n: 0, want: []byte{0x00}},
		{n: 0x7F, want: []byte{0x7F}},
		{n: 0x80, want: []byte{0x81, 0x80}},
		{n: 0xFF, want: []byte{0x81, 0xFF}},
		{n: 0x100, want: []byte{0x82, 0x01, 0x00}},
		{n: 0x7FFE, want: []byte{0x82, 0x7F, 0xFE}},
		{n: 0x7FFF, wantErr: ErrLengthOverflow},
		{n: 0x10000, wantErr: ErrLengthOverflow},
		{n: -1, wantErr: ErrInvalidLength},
	}
	for _, tt := range tests {
		got, err := AppendLength(nil, tt.n)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AppendLength(%#x) error = %v, want %v", tt.n, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("AppendLength(%#x) error = %v", tt.n, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("AppendLength(%#x) = %X, want %X", tt.n, got, tt.want)
		}
		size, _ := LengthSize(tt.n)
		if size != len(tt.want) {
			t.Errorf("LengthSize(%#x) = %d, want %d", tt.n, size, len(tt.want))
		}

		n, next, err := ReadLength(got, 0)
		if err != nil || n != tt.n || next != len(got) {
			t.Errorf("ReadLength(%X) = %d, %d, %v", got, n, next, err)
		}
	}
}

func TestReadLength_Errors(t *testing.T) {
	tests := []struct {
		buf     []byte
		wantErr error
	}{
		{nil, ErrUnexpectedEOF},
		{[]byte{0x81}, ErrUnexpectedEOF},
		{[]byte{0x82, 0x01}, ErrUnexpectedEOF},
		{[]byte{0x83, 0x00, 0x00, 0x01}, ErrInvalidLength},
		{[]byte{0x80}, ErrInvalidLength},
	}
	for _, tt := range tests {
		if _, _, err := ReadLength(tt.buf, 0); !errors.Is(err, tt.wantErr) {
			t.Errorf("ReadLength(%X) error = %v, want %v", tt.buf, err, tt.wantErr)
		}
	}
}
