// Package client is the off-card side of the rule store: it builds the
// SELECT, GET DATA and STORE DATA commands an access control enforcer
// or an administration tool sends, and decodes the responses.
//
// A Client talks to any Transmitter: a transport.Client connected to a
// daemon, or an aram.Applet in the same process.
package client
