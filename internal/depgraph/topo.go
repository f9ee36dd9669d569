package depgraph

// TopologicalSort groups the nodes into layers, leaf first. Layer 0 holds
// the nodes without dependencies and every node in a later layer depends only
// on nodes in strictly earlier layers. Nodes inside a layer are independent
// of each other and are listed in insertion order.
//
// Nodes that can never be placed are returned as detached: those with an
// edge to a key that is not a node, and those that depend on a detached node
// directly or transitively.
func (g *Graph[K, P]) TopologicalSort() (layers [][]K, detached []K) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	placed := make(set[K], len(g.payload))
	lost := make(set[K])

	var current []K
	for key, out := range g.outgoing {
		if len(out) == 0 {
			current = append(current, key)
			continue
		}
		for target := range out {
			if _, ok := g.payload[target]; !ok {
				lost[key] = struct{}{}
				break
			}
		}
	}

	unsatisfied := make(set[K])
	for len(current) > 0 {
		g.sortKeys(current)
		layers = append(layers, current)
		for _, key := range current {
			placed[key] = struct{}{}
		}

		candidates := unsatisfied
		for _, key := range current {
			for dependent := range g.incoming[key] {
				if _, ok := g.payload[dependent]; !ok {
					continue
				}
				if _, ok := lost[dependent]; ok {
					continue
				}
				if _, ok := placed[dependent]; ok {
					continue
				}
				candidates[dependent] = struct{}{}
			}
		}

		var next []K
		unsatisfied = make(set[K])
		for candidate := range candidates {
			if g.satisfied(candidate, placed) {
				next = append(next, candidate)
			} else {
				unsatisfied[candidate] = struct{}{}
			}
		}
		current = next
	}

	// Anything never placed is blocked by a lost node somewhere below it,
	// whether or not it was ever a candidate.
	for key := range g.payload {
		if _, ok := placed[key]; !ok {
			lost[key] = struct{}{}
		}
	}
	detached = g.sortedSet(lost)
	if layers == nil {
		layers = [][]K{}
	}
	return layers, detached
}

func (g *Graph[K, P]) satisfied(key K, placed set[K]) bool {
	for target := range g.outgoing[key] {
		if _, ok := placed[target]; !ok {
			return false
		}
	}
	return true
}
