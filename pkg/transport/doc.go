// Package transport carries command and response APDUs between an
// off-card client and a rule store.
//
// Each APDU travels as one frame: a 4-byte little-endian length prefix
// followed by the APDU bytes. A Server accepts connections and hands
// every received command to its Handler; the Handler's return value is
// sent back as the response frame. Commands are processed one at a
// time across all connections, so a Handler never runs concurrently
// with itself.
//
// Pipe provides a connected pair of in-memory connections for tests.
package transport
