package tlv

// Window selects the byte range [Start, End) of a logical output stream
// that an encoding pass materializes into Buf. Buf[0] holds the byte at
// logical position Start.
type Window struct {
	Start int
	End   int
	Buf   []byte
}

// Scan is the empty window. Encoding against it only computes lengths.
var Scan = Window{}

// NewWindow returns the window [start, start+len(buf)) backed by buf.
func NewWindow(start int, buf []byte) Window {
	return Window{Start: start, End: start + len(buf), Buf: buf}
}

// Contains reports whether logical position pos lies inside the window.
func (w Window) Contains(pos int) bool {
	return pos >= w.Start && pos < w.End
}

// Size returns the number of positions covered by the window.
func (w Window) Size() int {
	if w.End <= w.Start {
		return 0
	}
	return w.End - w.Start
}

// putByte writes b at logical position pos if pos is inside the window.
// It returns the number of bytes written (0 or 1).
func (w Window) putByte(pos int, b byte) int {
	if !w.Contains(pos) {
		return 0
	}
	w.Buf[pos-w.Start] = b
	return 1
}

// put writes the part of data that, placed at logical position pos,
// falls inside the window. It returns the number of bytes written.
func (w Window) put(pos int, data []byte) int {
	lo := max(pos, w.Start)
	hi := min(pos+len(data), w.End)
	if lo >= hi {
		return 0
	}
	return copy(w.Buf[lo-w.Start:hi-w.Start], data[lo-pos:hi-pos])
}

// Extent describes the result of one encoding pass over a node.
type Extent struct {
	// Len is the full logical length of the node, independent of the window.
	Len int

	// Written is the number of the node's bytes that fell inside the window.
	Written int
}

// Add returns the extent of two adjacent nodes.
func (e Extent) Add(o Extent) Extent {
	return Extent{Len: e.Len + o.Len, Written: e.Written + o.Written}
}
