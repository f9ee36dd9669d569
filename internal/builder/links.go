package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/formulagrid/internal/ctxlog"
	"github.com/vk/formulagrid/internal/expr"
	"github.com/vk/formulagrid/internal/scheduler"
)

// linkNodes performs the second pass, setting each node's outgoing edges.
// It returns every violation found.
func linkNodes(ctx context.Context, nodes []*pendingNode) []error {
	logger := ctxlog.FromContext(ctx)
	known := make(map[string]struct{}, len(nodes))
	entities := make(map[string][]string)
	for _, n := range nodes {
		known[n.key] = struct{}{}
		if entity, output, ok := strings.Cut(n.key, "."); ok {
			entities[entity] = append(entities[entity], entity+"."+output)
		}
	}

	var errs []error
	for _, n := range nodes {
		nodeLogger := logger.With("node_id", n.key)
		if n.formula == nil {
			errs = append(errs, n.wrap(errors.New("missing formula")))
			continue
		}

		if n.dependsOn == nil {
			n.outgoing = expr.References(n.formula)
			nodeLogger.Debug("Inferred dependencies from formula.", "count", len(n.outgoing))
			for _, dep := range n.outgoing {
				if _, ok := known[dep]; !ok {
					nodeLogger.Warn("Formula references a key no entity defines; the node will be detached.", "reference", dep)
				}
			}
		} else {
			n.outgoing = n.dependsOn
			nodeLogger.Debug("Using explicit dependencies.", "count", len(n.outgoing))
			for _, dep := range n.dependsOn {
				if _, ok := known[dep]; !ok {
					errs = append(errs, n.wrap(unknownDependency(dep, entities)))
				}
			}
			if err := scheduler.CheckNode(n.key, n.formula, n.outgoing); err != nil {
				errs = append(errs, n.wrap(err))
			}
		}
	}
	return errs
}

// unknownDependency explains a depends_on entry that names no output. When
// it names an entity with several outputs, the outputs are listed.
func unknownDependency(dep string, entities map[string][]string) error {
	if outputs, ok := entities[dep]; ok {
		return fmt.Errorf("depends on %q, which has several outputs; name one of: %s", dep, strings.Join(outputs, ", "))
	}
	return fmt.Errorf("depends on non-existent key %q", dep)
}
