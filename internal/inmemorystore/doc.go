// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// The store uses sync.Map because the scheduler writes many independent
// keys from parallel goroutines while later layers read keys written by
// earlier ones. The key space is known up front (every node of the graph)
// and each key is written a small, fixed number of times, which is the
// access pattern sync.Map is built for.
//
// For results that must outlive the process a different implementation of
// nodestore.Store is needed; the scheduler only depends on the interface.
package inmemorystore
