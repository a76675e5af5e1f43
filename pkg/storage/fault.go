package storage

import "sync"

// FaultStore wraps a Store and fails commits on demand. It is used to
// exercise rollback paths.
type FaultStore struct {
	Store

	mu        sync.Mutex
	failAfter int // commits left before failing; -1 = never
}

// NewFaultStore wraps inner with no fault armed.
func NewFaultStore(inner Store) *FaultStore {
	return &FaultStore{Store: inner, failAfter: -1}
}

// FailAfter arms the store so that the commit following n successful
// commits fails with ErrInjected. FailAfter(0) fails the next commit.
func (f *FaultStore) FailAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAfter = n
}

// Disarm clears any armed fault.
func (f *FaultStore) Disarm() {
	f.FailAfter(-1)
}

// Commit implements Store.
func (f *FaultStore) Commit(batch Batch) error {
	f.mu.Lock()
	switch {
	case f.failAfter == 0:
		f.failAfter = -1
		f.mu.Unlock()
		return ErrInjected
	case f.failAfter > 0:
		f.failAfter--
	}
	f.mu.Unlock()

	return f.Store.Commit(batch)
}
