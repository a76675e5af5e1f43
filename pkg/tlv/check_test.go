package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		ofs     int
		tag     Tag
		maxLen  int
		want    int
		wantErr error
	}{
		{name: "ok", buf: []byte{0x4F, 0x02, 0x01, 0x02}, tag: TagAidRefDo, maxLen: 16, want: 4},
		{name: "ok at offset", buf: []byte{0x00, 0xC1, 0x00}, ofs: 1, tag: TagHashRefDo, maxLen: 20, want: 3},
		{name: "tag mismatch", buf: []byte{0xC1, 0x00}, tag: TagAidRefDo, maxLen: 16, wantErr: ErrTagMismatch},
		{name: "length over max", buf: append([]byte{0x4F, 0x11}, make([]byte, 17)...), tag: TagAidRefDo, maxLen: 16, wantErr: ErrLengthExceeded},
		{name: "length byte is unsigned", buf: []byte{0xE2, 0xCE}, tag: TagRefArDo, maxLen: 100, wantErr: ErrLengthExceeded},
		{name: "missing header", buf: []byte{0x4F}, tag: TagAidRefDo, maxLen: 16, wantErr: ErrUnexpectedEOF},
		{name: "value truncated", buf: []byte{0x4F, 0x03, 0x01}, tag: TagAidRefDo, maxLen: 16, wantErr: ErrUnexpectedEOF},
		{name: "offset past end", buf: []byte{0x4F, 0x00}, ofs: 2, tag: TagAidRefDo, maxLen: 16, wantErr: ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Check(tt.buf, tt.ofs, tt.tag, tt.maxLen)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Check() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Check() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCheck_Sequential(t *testing.T) {
	next, err := Check(ruleAEncoded, 4, TagAidRefDo, 16)
	if err != nil {
		t.Fatal(err)
	}
	next, err = Check(ruleAEncoded, next, TagHashRefDo, 20)
	if err != nil {
		t.Fatal(err)
	}
	end, err := Check(ruleAEncoded, next, TagArDo, 162)
	if err != nil {
		t.Fatal(err)
	}
	if end != len(ruleAEncoded) {
		t.Errorf("end = %d, want %d", end, len(ruleAEncoded))
	}
	if !bytes.Equal(Value(ruleAEncoded, next), ruleA.Rule) {
		t.Errorf("Value() = %X, want %X", Value(ruleAEncoded, next), ruleA.Rule)
	}
}

func TestAppend(t *testing.T) {
	got, err := Append([]byte{0xF1}, TagAidRefDo, []byte{0xA0, 0x01})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0xF1, 0x4F, 0x02, 0xA0, 0x01}) {
		t.Errorf("Append() = %X", got)
	}
	if _, err := Append(nil, TagArDo, make([]byte, 256)); !errors.Is(err, ErrLengthExceeded) {
		t.Errorf("Append() error = %v, want %v", err, ErrLengthExceeded)
	}
}
