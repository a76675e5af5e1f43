// Package aram implements the Access Rule Application Master (ARA-M) of
// the GlobalPlatform Secure Element Access Control standard: the
// on-card applet through which an off-card access control enforcer
// stores, queries and deletes access rules.
//
// An Applet processes one command APDU at a time and returns the
// response APDU. Supported commands:
//
//	SELECT      00 A4 04 00  ARA-M AID
//	GET DATA    80 CA FF 40  all rules (first chunk)
//	GET DATA    80 CA FF 60  next chunk of the rule listing
//	GET DATA    80 CA FF 50  rule for one REF-DO
//	GET DATA    80 CA DF 20  refresh tag
//	STORE DATA  80 E2 90 00  F0 store / F1 delete / F2 update refresh tag
//
// # Chunked listings
//
// GET DATA [All] answers with the envelope FF 40 <BER length> followed
// by the concatenated REF-AR-DOs of every rule, most recent first. The
// response stream is cut into chunks of Config.ChunkSize bytes; the
// first chunk is returned by GET DATA [All] and each following one by a
// GET DATA [Next]. The stream is never held in memory: every chunk is
// produced by re-encoding the rule set through a window covering that
// chunk.
//
// Any successful rule mutation, and SELECT, ends the current listing.
// A GET DATA [Next] without a listing, or past its last chunk, fails
// with 6A88.
package aram
