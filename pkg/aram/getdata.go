package aram

import (
	"fmt"

	"github.com/backkem/aram/pkg/acl"
	"github.com/backkem/aram/pkg/apdu"
	"github.com/backkem/aram/pkg/tlv"
)

// listing is the continuation state of a chunked GET DATA [All].
//
// The response stream is the envelope header (header bytes) followed by
// the payload (length bytes). Chunk k covers stream positions
// [k*chunk, (k+1)*chunk), which is payload window
// [k*chunk-header, (k+1)*chunk-header).
type listing struct {
	active bool
	header int
	length int
	next   int // index of the next chunk to serve
	count  int
}

func (l *listing) reset() {
	*l = listing{}
}

func (a *Applet) getData(p1p2 uint16, data []byte) ([]byte, error) {
	switch p1p2 {
	case GetAll:
		return a.getAll()
	case GetNext:
		return a.getNext()
	case GetSpecific:
		return a.getSpecific(data)
	case GetRefreshTag:
		return a.getRefreshTag(), nil
	default:
		return nil, apdu.SWIncorrectP1P2
	}
}

// encodeRules encodes the concatenated REF-AR-DOs of the active list,
// materializing the part inside w.
func (a *Applet) encodeRules(w tlv.Window) tlv.Extent {
	var ext tlv.Extent
	for h := a.pool.First(); h != acl.NoEntry; h = a.pool.Next(h) {
		ext = ext.Add(tlv.EncodeRefArDo(w, ext.Len, a.pool.Entry(h)))
	}
	return ext
}

// appendEnvelope appends the two-byte tag and BER length of a GET DATA
// response.
func appendEnvelope(dst []byte, tag uint16, length int) ([]byte, error) {
	dst = append(dst, byte(tag>>8), byte(tag))
	return tlv.AppendLength(dst, length)
}

func (a *Applet) getAll() ([]byte, error) {
	a.listing.reset()

	length := a.encodeRules(tlv.Scan).Len
	resp, err := appendEnvelope(make([]byte, 0, a.chunk), GetAll, length)
	if err != nil {
		return nil, invalidData(err)
	}
	if length == 0 {
		return resp, nil
	}

	header := len(resp)
	stream := header + length
	first := min(a.chunk, stream)
	resp = resp[:first]
	a.encodeRules(tlv.NewWindow(0, resp[header:]))

	if stream > a.chunk {
		a.listing = listing{
			active: true,
			header: header,
			length: length,
			next:   1,
			count:  (stream + a.chunk - 1) / a.chunk,
		}
		if a.log != nil {
			a.log.Debugf("listing %d rules: %d bytes in %d chunks", a.pool.Len(), length, a.listing.count)
		}
	}
	return resp, nil
}

func (a *Applet) getNext() ([]byte, error) {
	l := &a.listing
	if !l.active || l.next >= l.count {
		return nil, apdu.SWNotFound
	}

	pos := l.next * a.chunk
	resp := make([]byte, min(a.chunk, l.header+l.length-pos))
	ext := a.encodeRules(tlv.NewWindow(pos-l.header, resp))
	if ext.Len != l.length || ext.Written != len(resp) {
		l.reset()
		return nil, fmt.Errorf("aram: rule set changed during listing (%d bytes, listed %d)", ext.Len, l.length)
	}

	l.next++
	if l.next == l.count {
		l.reset()
	}
	return resp, nil
}

// getSpecific answers FF 50 <len> REF-AR-DO for the rule matching the
// REF-DO in data. The REF-DO may be preceded by its own length byte.
func (a *Applet) getSpecific(data []byte) ([]byte, error) {
	ofs := 0
	if len(data) > 0 && tlv.Tag(data[0]) != tlv.TagRefDo {
		if int(data[0]) != len(data)-1 {
			return nil, invalidData(fmt.Errorf("%w: REF-DO prefix %d for %d bytes", tlv.ErrInvalidLength, data[0], len(data)-1))
		}
		ofs = 1
	}

	aid, hash, _, err := parseRefDo(data, ofs)
	if err != nil {
		return nil, invalidData(err)
	}
	h := a.pool.SearchByAIDHash(aid, hash)
	if h == acl.NoEntry {
		return nil, fmt.Errorf("%w: no rule for aid=%X hash=%X", apdu.SWNotFound, aid, hash)
	}

	entry := a.pool.Entry(h)
	length := tlv.EncodeRefArDo(tlv.Scan, 0, entry).Len
	resp, err := appendEnvelope(nil, GetSpecific, length)
	if err != nil {
		return nil, invalidData(err)
	}
	header := len(resp)
	if header+length > a.chunk {
		return nil, fmt.Errorf("%w: rule needs %d bytes, chunk is %d", apdu.SWWrongLength, header+length, a.chunk)
	}
	resp = append(resp, make([]byte, length)...)
	tlv.EncodeRefArDo(tlv.NewWindow(0, resp[header:]), 0, entry)
	return resp, nil
}

// getRefreshTag answers DF 20 08 <tag>.
func (a *Applet) getRefreshTag() []byte {
	resp := make([]byte, 0, 3+RefreshTagSize)
	resp = append(resp, byte(GetRefreshTag>>8), byte(GetRefreshTag&0xFF), RefreshTagSize)
	return append(resp, a.refreshTag[:]...)
}
