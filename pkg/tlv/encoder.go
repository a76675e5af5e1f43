package tlv

// Record is the content of one access rule as seen by the encoders.
type Record interface {
	AIDRef() []byte
	HashRef() []byte
	AccessRule() []byte
}

// EncodeFunc is the signature shared by all node encoders: encode the
// node for r starting at logical position pos, materializing only the
// bytes inside w.
type EncodeFunc func(w Window, pos int, r Record) Extent

var (
	refDoChildren   = []EncodeFunc{EncodeAidRefDo, EncodeHashRefDo}
	refArDoChildren = []EncodeFunc{EncodeRefDo, EncodeArDo}
)

// header emits a tag byte and a single length byte.
func header(w Window, pos int, tag Tag, length int) Extent {
	n := w.putByte(pos, byte(tag))
	n += w.putByte(pos+1, byte(length))
	return Extent{Len: HeaderSize, Written: n}
}

func leaf(w Window, pos int, tag Tag, value []byte) Extent {
	ext := header(w, pos, tag, len(value))
	return ext.Add(Extent{Len: len(value), Written: w.put(pos+HeaderSize, value)})
}

// constructed encodes the children first to learn the body length, then
// emits its own header in front of them.
func constructed(w Window, pos int, tag Tag, r Record, children []EncodeFunc) Extent {
	var body Extent
	for _, child := range children {
		body = body.Add(child(w, pos+HeaderSize+body.Len, r))
	}
	return header(w, pos, tag, body.Len).Add(body)
}

// EncodeAidRefDo encodes 4F <len> <AID>.
func EncodeAidRefDo(w Window, pos int, r Record) Extent {
	return leaf(w, pos, TagAidRefDo, r.AIDRef())
}

// EncodeHashRefDo encodes C1 <len> <hash>.
func EncodeHashRefDo(w Window, pos int, r Record) Extent {
	return leaf(w, pos, TagHashRefDo, r.HashRef())
}

// EncodeArDo encodes E3 <len> <rule>.
func EncodeArDo(w Window, pos int, r Record) Extent {
	return leaf(w, pos, TagArDo, r.AccessRule())
}

// EncodeRefDo encodes E1 <len> AID-REF-DO HASH-REF-DO.
func EncodeRefDo(w Window, pos int, r Record) Extent {
	return constructed(w, pos, TagRefDo, r, refDoChildren)
}

// EncodeRefArDo encodes E2 <len> REF-DO AR-DO.
func EncodeRefArDo(w Window, pos int, r Record) Extent {
	return constructed(w, pos, TagRefArDo, r, refArDoChildren)
}
