package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestRefArDo_Marshal(t *testing.T) {
	got, err := ruleA.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, ruleAEncoded) {
		t.Errorf("Marshal() = %X, want %X", got, ruleAEncoded)
	}

	refDo, err := ruleA.MarshalRefDo()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(refDo, ruleAEncoded[2:13]) {
		t.Errorf("MarshalRefDo() = %X, want %X", refDo, ruleAEncoded[2:13])
	}
}

func TestRefArDo_MarshalTooLong(t *testing.T) {
	r := RefArDo{AID: make([]byte, 16), Hash: make([]byte, 20), Rule: make([]byte, 250)}
	if _, err := r.Marshal(); !errors.Is(err, ErrLengthExceeded) {
		t.Errorf("Marshal() error = %v, want %v", err, ErrLengthExceeded)
	}
}

func TestParseRefArDos(t *testing.T) {
	ruleB := RefArDo{AID: []byte{0x01, 0x02}, Hash: []byte{0x09}, Rule: []byte{0x01}}
	encB, err := ruleB.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	stream := append(append([]byte{}, encB...), ruleAEncoded...)

	got, err := ParseRefArDos(stream)
	if err != nil {
		t.Fatalf("ParseRefArDos() error = %v", err)
	}
	if len(got) != 2 || !got[0].Equal(ruleB) || !got[1].Equal(ruleA) {
		t.Errorf("ParseRefArDos() = %v", got)
	}

	empty, err := ParseRefArDos(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("ParseRefArDos(nil) = %v, %v", empty, err)
	}
}

func TestParseRefArDo_Malformed(t *testing.T) {
	bad := append([]byte{}, ruleAEncoded...)
	bad[3] = 0x08 // REF-DO shorter than its children
	if _, _, err := ParseRefArDo(bad, 0); err == nil {
		t.Error("ParseRefArDo() accepted inconsistent REF-DO length")
	}

	if _, _, err := ParseRefArDo(ruleAEncoded[:10], 0); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("ParseRefArDo(truncated) error = %v, want %v", err, ErrUnexpectedEOF)
	}
}
