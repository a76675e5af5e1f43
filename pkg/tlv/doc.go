// Package tlv implements the BER-TLV data objects of the GlobalPlatform
// Secure Element Access Control protocol.
//
// Only the nested structures used by the access rule store are
// supported:
//
//	REF-AR-DO (E2)
//	├── REF-DO (E1)
//	│   ├── AID-REF-DO  (4F) AID bytes
//	│   └── HASH-REF-DO (C1) certificate hash bytes
//	└── AR-DO (E3) access rule bytes
//
// Every node is one tag byte, one length byte and the value. Leaf
// values are bounded by the rule store's slot capacities, so no node
// ever needs a multi-byte length. Multi-byte BER length forms appear
// only in the GET DATA response envelope (see LengthSize).
//
// # Windowed encoding
//
// The encoders never build the serialized stream in memory. Each one
// takes a Window, the byte range [Start, End) of the logical stream the
// caller wants materialized, and the logical position at which the node
// starts. Bytes whose position falls inside the window are copied into
// the window's buffer at position-Start; all other bytes are skipped but
// still counted. The returned Extent carries the node's full logical
// length, so a pass with the empty Scan window computes the total
// length of a rule set without touching any buffer.
//
// Constructed nodes encode their children first, then write their own
// tag and length bytes, each only if that byte's position lies inside
// the window.
package tlv
