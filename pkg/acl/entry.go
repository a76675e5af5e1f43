package acl

import "fmt"

// Slot capacities.
const (
	SizeAID  = 16
	SizeHash = 20
	SizeRule = 2 + 20*8
)

// Handle identifies a slot in the pool.
type Handle int

// NoEntry is the handle returned when there is no entry: the end of a
// list or a failed search.
const NoEntry Handle = -1

// slot is one rule entry. Only the first *Len bytes of each array are
// meaningful.
type slot struct {
	aid     [SizeAID]byte
	hash    [SizeHash]byte
	rule    [SizeRule]byte
	aidLen  uint8
	hashLen uint8
	ruleLen uint8
	next    Handle
}

func (s *slot) clear() {
	s.aidLen = 0
	s.hashLen = 0
	s.ruleLen = 0
}

func (s *slot) aidBytes() []byte  { return s.aid[:s.aidLen] }
func (s *slot) hashBytes() []byte { return s.hash[:s.hashLen] }
func (s *slot) ruleBytes() []byte { return s.rule[:s.ruleLen] }

// Entry is a read-only view of an active entry. It implements
// tlv.Record. The returned slices alias pool memory and are only valid
// until the next mutation.
type Entry struct {
	p *Pool
	h Handle
}

// Handle returns the handle of the viewed slot.
func (e Entry) Handle() Handle { return e.h }

// AIDRef returns the AID.
func (e Entry) AIDRef() []byte { return e.p.slots[e.h].aidBytes() }

// HashRef returns the certificate hash.
func (e Entry) HashRef() []byte { return e.p.slots[e.h].hashBytes() }

// AccessRule returns the access rule.
func (e Entry) AccessRule() []byte { return e.p.slots[e.h].ruleBytes() }

func (e Entry) String() string {
	return fmt.Sprintf("#%d aid=%X hash=%X rule=%X", e.h, e.AIDRef(), e.HashRef(), e.AccessRule())
}
