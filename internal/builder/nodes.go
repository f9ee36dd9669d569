package builder

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/formulagrid/internal/config"
	"github.com/vk/formulagrid/internal/depgraph"
	"github.com/vk/formulagrid/internal/expr"
)

// pendingNode is one entity output on its way into the graph.
type pendingNode struct {
	key       string
	formula   expr.Node
	dependsOn []string
	outgoing  []string
	declRange hcl.Range
}

// wrap prefixes err with the node's key and source location.
func (n *pendingNode) wrap(err error) error {
	if n.declRange.Filename == "" {
		return fmt.Errorf("%s: %w", n.key, err)
	}
	return fmt.Errorf("%s: %s: %w", n.declRange.String(), n.key, err)
}

// collectNodes performs the first pass, creating a node for every output of
// every entity in model order. An entity name declared more than once is a
// violation whatever the shape of either declaration; the repeat contributes
// no nodes.
func collectNodes(model *config.Model) ([]*pendingNode, []error) {
	var nodes []*pendingNode
	var errs []error
	seen := make(map[string]*config.Entity, len(model.Entities))
	for _, e := range model.Entities {
		if first, dup := seen[e.Name]; dup {
			n := &pendingNode{key: e.Name, declRange: e.DeclRange}
			errs = append(errs, n.wrap(duplicateEntity(e.Name, first)))
			continue
		}
		seen[e.Name] = e

		for _, o := range e.Outputs {
			declRange := o.DeclRange
			if declRange.Filename == "" {
				declRange = e.DeclRange
			}
			nodes = append(nodes, &pendingNode{
				key:       e.Key(o),
				formula:   o.Formula,
				dependsOn: o.DependsOn,
				declRange: declRange,
			})
		}
	}
	return nodes, errs
}

func duplicateEntity(name string, first *config.Entity) error {
	if first.DeclRange.Filename == "" {
		return fmt.Errorf("duplicate entity %q: %w", name, depgraph.ErrDuplicateKey)
	}
	return fmt.Errorf("duplicate entity %q, first declared at %s: %w", name, first.DeclRange.String(), depgraph.ErrDuplicateKey)
}
