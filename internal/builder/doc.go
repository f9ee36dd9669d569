/*
Package builder constructs the formula graph. It is the bridge between the
format-agnostic entity model (defined in the 'config' package) and the
scheduler.

The primary artifact produced by this package is a validated *scheduler.Graph.

The graph construction is a multi-phase process:

 1. Node Collection: The builder iterates through the model's entities and
    creates one pending node per output, keyed "entity.output" (or "entity"
    for an entity with a single value).

 2. Dependency Linking: Each node's outgoing edges come from its explicit
    `depends_on` list when present, and are otherwise inferred from the keys
    its formula reads. Explicit lists are checked against the formula: a
    formula may not read a key its list omits, and every listed key must name
    an output of the model.

 3. Insertion: Nodes are inserted into the generic 'depgraph' container in
    model order. Insertion rejects duplicate keys and any edge set that would
    close a cycle.

Every violation from every phase is collected and returned in one joined
error, so a user fixes a broken entity set in one pass. Formula references to
keys that no entity defines are not an error here: such nodes are detached at
evaluation time and reported per node.
*/
package builder
