// Package apdu implements the ISO/IEC 7816-4 short command and response
// envelopes exchanged with the rule store.
//
// A command APDU is a 4-byte header (CLA, INS, P1, P2) followed by an
// optional body: Lc, Lc bytes of data, and an optional Le. A response
// APDU is optional data followed by the 2-byte status word.
//
// Status words implement the error interface so protocol failures can
// be returned through ordinary Go error paths and converted back into a
// response trailer at the top of the dispatcher:
//
//	if err := handle(cmd); err != nil {
//	    var sw apdu.StatusWord
//	    if errors.As(err, &sw) {
//	        return apdu.Response{SW: sw}
//	    }
//	}
package apdu
