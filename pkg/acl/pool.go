package acl

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pion/logging"

	"github.com/backkem/aram/pkg/storage"
)

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Store persists the pool image. If nil, a volatile
	// storage.MemoryStore is used.
	Store storage.Store

	// MaxEntries bounds the number of active entries. Zero means
	// unbounded.
	MaxEntries int

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// state is everything a transaction may change.
type state struct {
	slots   []slot
	first   Handle
	deleted Handle
	active  int
}

func (s state) clone() state {
	c := s
	c.slots = make([]slot, len(s.slots))
	copy(c.slots, s.slots)
	return c
}

// Pool is the access rule entry pool.
type Pool struct {
	state

	store      storage.Store
	maxEntries int
	log        logging.LeveledLogger

	tx *Tx
}

// Open creates a pool and loads its image from config.Store. A store
// without an image yields an empty pool.
func Open(config PoolConfig) (*Pool, error) {
	p := &Pool{
		state:      state{first: NoEntry, deleted: NoEntry},
		store:      config.Store,
		maxEntries: config.MaxEntries,
	}
	if p.store == nil {
		p.store = storage.NewMemoryStore()
	}
	if config.LoggerFactory != nil {
		p.log = config.LoggerFactory.NewLogger("acl")
	}

	data, err := p.store.Load(KeyPool)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return p, nil
	case err != nil:
		return nil, fmt.Errorf("acl: loading pool: %w", err)
	}

	s, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	p.state = s
	if err := p.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	if p.log != nil {
		p.log.Infof("loaded pool: %d active, %d free", p.Len(), p.FreeLen())
	}
	return p, nil
}

// First returns the head of the active list, or NoEntry.
func (p *Pool) First() Handle {
	return p.first
}

// Next returns the entry after h in the active list, or NoEntry.
func (p *Pool) Next(h Handle) Handle {
	return p.slots[h].next
}

// Entry returns a view of the entry at h.
func (p *Pool) Entry(h Handle) Entry {
	return Entry{p: p, h: h}
}

// Len returns the number of active entries.
func (p *Pool) Len() int {
	return p.active
}

// FreeLen returns the number of recycled slots awaiting reuse.
func (p *Pool) FreeLen() int {
	return len(p.slots) - p.active
}

// Cap returns the number of slots ever allocated.
func (p *Pool) Cap() int {
	return len(p.slots)
}

// SearchByAID returns the first active entry with the given AID.
func (p *Pool) SearchByAID(aid []byte) Handle {
	_, h := p.search(matchAID(aid))
	return h
}

// SearchByAIDHash returns the first active entry with the given AID and
// hash.
func (p *Pool) SearchByAIDHash(aid, hash []byte) Handle {
	_, h := p.search(matchAIDHash(aid, hash))
	return h
}

// SearchByAIDHashRule returns the first active entry with the given
// AID, hash and rule.
func (p *Pool) SearchByAIDHashRule(aid, hash, rule []byte) Handle {
	_, h := p.search(matchAIDHashRule(aid, hash, rule))
	return h
}

type matcher func(s *slot) bool

func matchAll(*slot) bool { return true }

func matchAID(aid []byte) matcher {
	return func(s *slot) bool {
		return bytes.Equal(s.aidBytes(), aid)
	}
}

func matchAIDHash(aid, hash []byte) matcher {
	return func(s *slot) bool {
		return bytes.Equal(s.aidBytes(), aid) && bytes.Equal(s.hashBytes(), hash)
	}
}

func matchAIDHashRule(aid, hash, rule []byte) matcher {
	return func(s *slot) bool {
		return bytes.Equal(s.aidBytes(), aid) &&
			bytes.Equal(s.hashBytes(), hash) &&
			bytes.Equal(s.ruleBytes(), rule)
	}
}

// search scans the active list from the head and returns the first
// match and its predecessor.
func (p *Pool) search(match matcher) (prev, h Handle) {
	prev = NoEntry
	for h = p.first; h != NoEntry; prev, h = h, p.slots[h].next {
		if match(&p.slots[h]) {
			return prev, h
		}
	}
	return NoEntry, NoEntry
}

// Verify checks that every slot is on exactly one of the active and free
// lists, that neither list has a cycle, and that recycled slots are
// empty.
func (p *Pool) Verify() error {
	const (
		unseen = iota
		onActive
		onFree
	)
	seen := make([]int, len(p.slots))

	walk := func(head Handle, mark int, name string) (int, error) {
		n := 0
		for h := head; h != NoEntry; h = p.slots[h].next {
			if h < 0 || int(h) >= len(p.slots) {
				return 0, fmt.Errorf("%w: %s list reaches handle %d of %d", ErrInconsistent, name, h, len(p.slots))
			}
			if seen[h] != unseen {
				return 0, fmt.Errorf("%w: slot %d reached twice from %s list", ErrInconsistent, h, name)
			}
			seen[h] = mark
			n++
		}
		return n, nil
	}

	active, err := walk(p.first, onActive, "active")
	if err != nil {
		return err
	}
	if _, err := walk(p.deleted, onFree, "free"); err != nil {
		return err
	}
	if active != p.active {
		return fmt.Errorf("%w: active list has %d entries, count is %d", ErrInconsistent, active, p.active)
	}
	for h, mark := range seen {
		switch mark {
		case unseen:
			return fmt.Errorf("%w: slot %d on no list", ErrInconsistent, h)
		case onFree:
			s := &p.slots[h]
			if s.aidLen != 0 || s.hashLen != 0 || s.ruleLen != 0 {
				return fmt.Errorf("%w: free slot %d not cleared", ErrInconsistent, h)
			}
		}
	}
	return nil
}

// Add stores a new entry in one transaction.
func (p *Pool) Add(aid, hash, rule []byte) (Handle, error) {
	h := NoEntry
	err := p.Txn(func(tx *Tx) error {
		var err error
		if h, err = tx.Allocate(); err != nil {
			return err
		}
		if err := tx.SetAID(h, aid); err != nil {
			return err
		}
		if err := tx.SetHash(h, hash); err != nil {
			return err
		}
		return tx.SetRule(h, rule)
	})
	if err != nil {
		return NoEntry, err
	}
	return h, nil
}

// DeleteAll removes every entry in one transaction.
func (p *Pool) DeleteAll() (int, error) {
	return p.deleteTxn(matchAll)
}

// DeleteByAID removes every entry with the given AID in one transaction.
func (p *Pool) DeleteByAID(aid []byte) (int, error) {
	return p.deleteTxn(matchAID(aid))
}

// DeleteByAIDHash removes every entry with the given AID and hash in one
// transaction.
func (p *Pool) DeleteByAIDHash(aid, hash []byte) (int, error) {
	return p.deleteTxn(matchAIDHash(aid, hash))
}

// DeleteByAIDHashRule removes every entry with the given AID, hash and
// rule in one transaction.
func (p *Pool) DeleteByAIDHashRule(aid, hash, rule []byte) (int, error) {
	return p.deleteTxn(matchAIDHashRule(aid, hash, rule))
}

func (p *Pool) deleteTxn(match matcher) (int, error) {
	var n int
	err := p.Txn(func(tx *Tx) error {
		n = tx.deleteMatching(match)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
