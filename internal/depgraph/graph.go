// Package depgraph provides a generic dependency graph with cycle-safe
// insertion, removal, reachability trimming and layered topological
// ordering.
package depgraph

import (
	"fmt"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New[K comparable, P any]() *Graph[K, P] {
	return &Graph[K, P]{
		payload:  make(map[K]P),
		outgoing: make(map[K]set[K]),
		incoming: make(map[K]set[K]),
		seq:      make(map[K]uint64),
	}
}

// AddNode inserts key with its payload and the keys it depends on. Targets
// need not exist yet. The call fails with ErrDuplicateKey if key is already a
// node and with ErrCycleDetected if the new edges would close a cycle; in both
// cases the graph is left untouched.
func (g *Graph[K, P]) AddNode(key K, payload P, outgoing []K) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.payload[key]; ok {
		return &Error{Op: "add node", Key: key, Err: ErrDuplicateKey}
	}
	if err := g.checkCycle(key, outgoing); err != nil {
		return &Error{Op: "add node", Key: key, Err: err}
	}

	out := make(set[K], len(outgoing))
	for _, target := range outgoing {
		out[target] = struct{}{}
		in, ok := g.incoming[target]
		if !ok {
			in = make(set[K])
			g.incoming[target] = in
		}
		in[key] = struct{}{}
	}
	g.payload[key] = payload
	g.outgoing[key] = out
	g.seq[key] = g.nextSeq
	g.nextSeq++
	return nil
}

// checkCycle reports whether adding key -> outgoing would close a cycle:
// that happens iff some target can already reach a node that depends on key.
// All targets are searched together, so the cost is O(V+E).
func (g *Graph[K, P]) checkCycle(key K, outgoing []K) error {
	dependents := g.incoming[key]
	visited := make(set[K], len(outgoing))
	queue := make([]K, 0, len(outgoing))
	for _, target := range outgoing {
		if target == key {
			return fmt.Errorf("%w: %v depends on itself", ErrCycleDetected, key)
		}
		if _, ok := visited[target]; !ok {
			visited[target] = struct{}{}
			queue = append(queue, target)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, ok := dependents[current]; ok {
			return fmt.Errorf("%w: %v already depends on %v", ErrCycleDetected, current, key)
		}
		for next := range g.outgoing[current] {
			if _, ok := visited[next]; !ok {
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return nil
}

// RemoveNode deletes key and its outgoing edges. Nodes that depend on key
// keep their edges to it, which then dangle.
func (g *Graph[K, P]) RemoveNode(key K) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.payload[key]; !ok {
		return &Error{Op: "remove node", Key: key, Err: ErrUnknownNode}
	}
	g.removeLocked(key)
	return nil
}

func (g *Graph[K, P]) removeLocked(key K) {
	for target := range g.outgoing[key] {
		in := g.incoming[target]
		delete(in, key)
		if len(in) == 0 {
			delete(g.incoming, target)
		}
	}
	delete(g.payload, key)
	delete(g.outgoing, key)
	delete(g.seq, key)
}

// Trim removes every node that cannot be reached from roots by following
// outgoing edges. A nil roots slice is rejected with ErrInvalidArgument and
// a root that is not a node with ErrUnknownNode. An empty, non-nil slice
// removes every node.
func (g *Graph[K, P]) Trim(roots []K) error {
	if roots == nil {
		return &Error{Op: "trim", Err: fmt.Errorf("%w: nil root set", ErrInvalidArgument)}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	for _, root := range roots {
		if _, ok := g.payload[root]; !ok {
			return &Error{Op: "trim", Key: root, Err: ErrUnknownNode}
		}
	}

	reachable := make(set[K], len(roots))
	stack := append([]K(nil), roots...)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := reachable[current]; ok {
			continue
		}
		reachable[current] = struct{}{}
		for next := range g.outgoing[current] {
			if _, ok := g.payload[next]; ok {
				stack = append(stack, next)
			}
		}
	}

	for key := range g.payload {
		if _, ok := reachable[key]; !ok {
			g.removeLocked(key)
		}
	}
	return nil
}

// Clone returns a graph with its own copy of every index. Payloads are
// shared, so they must not be mutated after insertion.
func (g *Graph[K, P]) Clone() *Graph[K, P] {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	c := &Graph[K, P]{
		payload:  make(map[K]P, len(g.payload)),
		outgoing: make(map[K]set[K], len(g.outgoing)),
		incoming: make(map[K]set[K], len(g.incoming)),
		seq:      make(map[K]uint64, len(g.seq)),
		nextSeq:  g.nextSeq,
	}
	for k, p := range g.payload {
		c.payload[k] = p
	}
	for k, s := range g.outgoing {
		c.outgoing[k] = copySet(s)
	}
	for k, s := range g.incoming {
		c.incoming[k] = copySet(s)
	}
	for k, n := range g.seq {
		c.seq[k] = n
	}
	return c
}

func copySet[K comparable](s set[K]) set[K] {
	c := make(set[K], len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// Contains reports whether key is a node.
func (g *Graph[K, P]) Contains(key K) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	_, ok := g.payload[key]
	return ok
}

// Payload returns the payload of key and whether key is a node.
func (g *Graph[K, P]) Payload(key K) (P, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	p, ok := g.payload[key]
	return p, ok
}

// Len returns the number of nodes.
func (g *Graph[K, P]) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return len(g.payload)
}

// Keys returns every node in insertion order.
func (g *Graph[K, P]) Keys() []K {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	keys := make([]K, 0, len(g.payload))
	for k := range g.payload {
		keys = append(keys, k)
	}
	g.sortKeys(keys)
	return keys
}

// GetOutgoing returns the keys that key depends on, including dangling
// ones. It is empty when key is not a node.
func (g *Graph[K, P]) GetOutgoing(key K) []K {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return g.sortedSet(g.outgoing[key])
}

// GetIncoming returns the nodes that depend on key. It is empty when key is
// not a node, even if some node has a dangling edge to it.
func (g *Graph[K, P]) GetIncoming(key K) []K {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if _, ok := g.payload[key]; !ok {
		return []K{}
	}
	return g.sortedSet(g.incoming[key])
}

func (g *Graph[K, P]) sortedSet(s set[K]) []K {
	keys := make([]K, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	g.sortKeys(keys)
	return keys
}

// sortKeys orders keys by insertion. Keys that are not nodes sort last, in
// no particular order.
func (g *Graph[K, P]) sortKeys(keys []K) {
	sort.SliceStable(keys, func(i, j int) bool {
		si, okI := g.seq[keys[i]]
		sj, okJ := g.seq[keys[j]]
		if okI != okJ {
			return okI
		}
		return si < sj
	})
}
