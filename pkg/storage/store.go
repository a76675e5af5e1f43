package storage

// Store is the persistence collaborator of the rule store.
//
// All methods must be safe for concurrent use.
type Store interface {
	// Load returns a copy of the value stored under key, or ErrNotFound.
	Load(key string) ([]byte, error)

	// Commit applies every write in batch atomically. A nil value
	// deletes the key. On error the store is unchanged.
	Commit(batch Batch) error
}

// Batch is a set of writes committed together.
type Batch map[string][]byte

// apply returns a copy of values with the batch applied.
func (b Batch) apply(values map[string][]byte) map[string][]byte {
	next := make(map[string][]byte, len(values)+len(b))
	for k, v := range values {
		next[k] = v
	}
	for k, v := range b {
		if v == nil {
			delete(next, k)
			continue
		}
		next[k] = clone(v)
	}
	return next
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
