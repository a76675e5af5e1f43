package tlv

import (
	"bytes"
	"fmt"
)

// RefArDo is a decoded REF-AR-DO: the (AID, hash) reference and the
// access rule it maps to.
type RefArDo struct {
	AID  []byte
	Hash []byte
	Rule []byte
}

// AIDRef implements Record.
func (r RefArDo) AIDRef() []byte { return r.AID }

// HashRef implements Record.
func (r RefArDo) HashRef() []byte { return r.Hash }

// AccessRule implements Record.
func (r RefArDo) AccessRule() []byte { return r.Rule }

// Equal reports whether two records carry the same bytes.
func (r RefArDo) Equal(o RefArDo) bool {
	return bytes.Equal(r.AID, o.AID) && bytes.Equal(r.Hash, o.Hash) && bytes.Equal(r.Rule, o.Rule)
}

// String returns the record in hex.
func (r RefArDo) String() string {
	return fmt.Sprintf("aid=%X hash=%X rule=%X", r.AID, r.Hash, r.Rule)
}

func (r RefArDo) validate() error {
	if len(r.AID) > MaxNodeLength || len(r.Hash) > MaxNodeLength || len(r.Rule) > MaxNodeLength {
		return ErrLengthExceeded
	}
	if EncodeRefDo(Scan, 0, r).Len-HeaderSize > MaxNodeLength {
		return fmt.Errorf("%w: %s", ErrLengthExceeded, TagRefDo)
	}
	if EncodeRefArDo(Scan, 0, r).Len-HeaderSize > MaxNodeLength {
		return fmt.Errorf("%w: %s", ErrLengthExceeded, TagRefArDo)
	}
	return nil
}

// Marshal encodes the record as a REF-AR-DO.
func (r RefArDo) Marshal() ([]byte, error) {
	return marshal(r, EncodeRefArDo)
}

// MarshalRefDo encodes only the REF-DO (AID and hash) of the record.
func (r RefArDo) MarshalRefDo() ([]byte, error) {
	return marshal(r, EncodeRefDo)
}

func marshal(r RefArDo, encode EncodeFunc) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, encode(Scan, 0, r).Len)
	encode(NewWindow(0, buf), 0, r)
	return buf, nil
}

// ParseRefArDo decodes the REF-AR-DO at buf[ofs] and returns it with the
// offset of the next data object. Values alias buf.
func ParseRefArDo(buf []byte, ofs int) (RefArDo, int, error) {
	end, err := Check(buf, ofs, TagRefArDo, MaxNodeLength)
	if err != nil {
		return RefArDo{}, 0, err
	}
	refDo := ofs + HeaderSize
	arDo, err := Check(buf, refDo, TagRefDo, MaxNodeLength)
	if err != nil {
		return RefArDo{}, 0, err
	}
	aidRefDo := refDo + HeaderSize
	hashRefDo, err := Check(buf, aidRefDo, TagAidRefDo, MaxNodeLength)
	if err != nil {
		return RefArDo{}, 0, err
	}
	refDoEnd, err := Check(buf, hashRefDo, TagHashRefDo, MaxNodeLength)
	if err != nil {
		return RefArDo{}, 0, err
	}
	if refDoEnd != arDo {
		return RefArDo{}, 0, fmt.Errorf("%w: %s content ends at %d, want %d", ErrInvalidLength, TagRefDo, refDoEnd, arDo)
	}
	arDoEnd, err := Check(buf, arDo, TagArDo, MaxNodeLength)
	if err != nil {
		return RefArDo{}, 0, err
	}
	if arDoEnd != end {
		return RefArDo{}, 0, fmt.Errorf("%w: %s content ends at %d, want %d", ErrInvalidLength, TagRefArDo, arDoEnd, end)
	}

	return RefArDo{
		AID:  Value(buf, aidRefDo),
		Hash: Value(buf, hashRefDo),
		Rule: Value(buf, arDo),
	}, end, nil
}

// ParseRefArDos decodes a concatenation of REF-AR-DOs, such as the
// payload of a GET DATA [All] response.
func ParseRefArDos(buf []byte) ([]RefArDo, error) {
	var out []RefArDo
	for ofs := 0; ofs < len(buf); {
		r, next, err := ParseRefArDo(buf, ofs)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		ofs = next
	}
	return out, nil
}
