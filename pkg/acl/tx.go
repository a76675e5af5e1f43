package acl

import (
	"fmt"

	"github.com/backkem/aram/pkg/storage"
)

// Tx is the mutation handle passed to a Pool.Txn function. It must not
// be used after the function returns.
type Tx struct {
	p    *Pool
	puts storage.Batch
}

// Txn runs fn as one atomic unit. When fn returns nil the resulting pool
// image, together with any values staged with Tx.Put, is committed to
// the store in a single batch. If fn returns an error or panics, or the
// commit fails, the pool is restored to its state before Txn was
// called. Txn may not be nested.
func (p *Pool) Txn(fn func(tx *Tx) error) error {
	if p.tx != nil {
		return ErrTxnActive
	}

	saved := p.state.clone()
	tx := &Tx{p: p}
	p.tx = tx

	committed := false
	defer func() {
		p.tx = nil
		tx.p = nil
		if !committed {
			p.state = saved
		}
	}()

	if err := fn(tx); err != nil {
		if p.log != nil {
			p.log.Debugf("transaction rolled back: %v", err)
		}
		return err
	}

	batch, err := p.batch()
	if err != nil {
		return err
	}
	for k, v := range tx.puts {
		batch[k] = v
	}
	if err := p.store.Commit(batch); err != nil {
		if p.log != nil {
			p.log.Warnf("commit failed, transaction rolled back: %v", err)
		}
		return fmt.Errorf("acl: commit: %w", err)
	}
	committed = true
	return nil
}

// batch encodes the current pool image.
func (p *Pool) batch() (storage.Batch, error) {
	data, err := encodeImage(p.state)
	if err != nil {
		return nil, err
	}
	return storage.Batch{KeyPool: data}, nil
}

func (tx *Tx) pool() *Pool {
	if tx.p == nil {
		panic("acl: Tx used outside its transaction")
	}
	return tx.p
}

// Put stages a value to be committed with the pool image.
func (tx *Tx) Put(key string, value []byte) {
	tx.pool()
	if tx.puts == nil {
		tx.puts = make(storage.Batch)
	}
	tx.puts[key] = value
}

// Allocate returns an empty entry at the head of the active list,
// recycling a free slot if there is one.
func (tx *Tx) Allocate() (Handle, error) {
	p := tx.pool()
	if p.maxEntries > 0 && p.active >= p.maxEntries {
		return NoEntry, ErrPoolFull
	}

	var h Handle
	if p.deleted != NoEntry {
		h = p.deleted
		p.deleted = p.slots[h].next
	} else {
		p.slots = append(p.slots, slot{})
		h = Handle(len(p.slots) - 1)
	}
	s := &p.slots[h]
	s.clear()
	s.next = p.first
	p.first = h
	p.active++

	if p.log != nil {
		p.log.Tracef("allocated slot %d (%d active)", h, p.active)
	}
	return h, nil
}

func (tx *Tx) slot(h Handle) (*slot, error) {
	p := tx.pool()
	if h < 0 || int(h) >= len(p.slots) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return &p.slots[h], nil
}

// SetAID replaces the AID of the entry at h.
func (tx *Tx) SetAID(h Handle, aid []byte) error {
	s, err := tx.slot(h)
	if err != nil {
		return err
	}
	if len(aid) > SizeAID {
		return fmt.Errorf("%w: AID is %d bytes, max %d", ErrCapacity, len(aid), SizeAID)
	}
	s.aidLen = uint8(copy(s.aid[:], aid))
	return nil
}

// SetHash replaces the certificate hash of the entry at h.
func (tx *Tx) SetHash(h Handle, hash []byte) error {
	s, err := tx.slot(h)
	if err != nil {
		return err
	}
	if len(hash) > SizeHash {
		return fmt.Errorf("%w: hash is %d bytes, max %d", ErrCapacity, len(hash), SizeHash)
	}
	s.hashLen = uint8(copy(s.hash[:], hash))
	return nil
}

// SetRule replaces the access rule of the entry at h.
func (tx *Tx) SetRule(h Handle, rule []byte) error {
	s, err := tx.slot(h)
	if err != nil {
		return err
	}
	if len(rule) > SizeRule {
		return fmt.Errorf("%w: rule is %d bytes, max %d", ErrCapacity, len(rule), SizeRule)
	}
	s.ruleLen = uint8(copy(s.rule[:], rule))
	return nil
}

// DeleteAll removes every active entry and returns how many were removed.
func (tx *Tx) DeleteAll() int {
	return tx.deleteMatching(matchAll)
}

// DeleteByAID removes every entry with the given AID.
func (tx *Tx) DeleteByAID(aid []byte) int {
	return tx.deleteMatching(matchAID(aid))
}

// DeleteByAIDHash removes every entry with the given AID and hash.
func (tx *Tx) DeleteByAIDHash(aid, hash []byte) int {
	return tx.deleteMatching(matchAIDHash(aid, hash))
}

// DeleteByAIDHashRule removes every entry with the given AID, hash and
// rule.
func (tx *Tx) DeleteByAIDHashRule(aid, hash, rule []byte) int {
	return tx.deleteMatching(matchAIDHashRule(aid, hash, rule))
}

// deleteMatching searches from the head until nothing matches, so
// duplicate entries are all removed.
func (tx *Tx) deleteMatching(match matcher) int {
	p := tx.pool()
	n := 0
	for {
		prev, h := p.search(match)
		if h == NoEntry {
			break
		}
		p.unlink(prev, h)
		p.recycle(h)
		n++
	}
	if n > 0 && p.log != nil {
		p.log.Tracef("removed %d entries (%d active, %d free)", n, p.active, p.FreeLen())
	}
	return n
}

// unlink removes h from the active list given its predecessor.
func (p *Pool) unlink(prev, h Handle) {
	if prev == NoEntry {
		p.first = p.slots[h].next
	} else {
		p.slots[prev].next = p.slots[h].next
	}
	p.active--
}

// recycle clears h and pushes it onto the free list.
func (p *Pool) recycle(h Handle) {
	s := &p.slots[h]
	s.clear()
	s.next = p.deleted
	p.deleted = h
}
