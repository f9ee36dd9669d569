package depgraph

import "sync"

// set is an unordered collection of keys.
type set[K comparable] map[K]struct{}

// Graph is a directed acyclic graph of keyed nodes, each carrying a payload.
// An edge from a to b means "a depends on b". All operations on the graph
// are concurrency-safe.
//
// Edges may point at keys that are not (or no longer) nodes. Such dangling
// edges are legal; TopologicalSort reports the affected nodes as detached.
type Graph[K comparable, P any] struct {
	// mutex guards every map below.
	mutex sync.RWMutex
	// payload holds the data of every node. A key is a node iff it is here.
	payload map[K]P
	// outgoing holds, for every node, the keys it depends on.
	outgoing map[K]set[K]
	// incoming holds, for any key, the nodes that depend on it. The key
	// itself need not be a node.
	incoming map[K]set[K]
	// seq records insertion order so that results are reproducible without
	// requiring K to be ordered.
	seq     map[K]uint64
	nextSeq uint64
}
