// Package storage provides the persistent store behind the rule store.
//
// The store is a flat key/value space. Its only write primitive is
// Commit, which applies a Batch of writes all-or-nothing: after a crash
// or power loss the store holds either every write of the batch or none
// of them. Callers that must update several values atomically collect
// them into one batch, which is how the access rule pool implements its
// transactions.
//
// Two back ends are provided: MemoryStore for tests and volatile
// deployments, and FileStore, which keeps the whole image in one file
// protected by a BLAKE3 digest and replaces it with an atomic rename.
package storage
