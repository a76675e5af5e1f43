// Package acl implements the access rule pool of the ARA-M rule store.
//
// The pool is an arena of fixed-capacity slots. Each slot holds one
// rule entry: an AID (up to 16 bytes), a certificate hash (up to 20
// bytes) and an opaque access rule (up to 162 bytes). Slots are
// addressed by integer Handles and linked into exactly one of two
// singly-linked lists:
//
//   - the active list, headed by First, in most-recently-added order
//   - the free list of recycled slots, reused before new slots are made
//
// Slots are never released. A deleted entry has its lengths cleared and
// is pushed onto the free list; the next allocation pops it back onto
// the head of the active list.
//
// # Transactions
//
// Every mutation runs inside Pool.Txn. The pool snapshots its state
// before calling the transaction function and writes the resulting
// image to its storage.Store in a single Batch when the function
// returns. If the function fails, panics, or the commit fails, the
// snapshot is restored, so a multi-entry delete is either fully applied
// or not applied at all, both in memory and on disk.
//
// The pool is not safe for concurrent use. The applet that owns it
// processes one command at a time.
package acl
