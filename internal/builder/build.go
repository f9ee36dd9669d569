package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/formulagrid/internal/config"
	"github.com/vk/formulagrid/internal/ctxlog"
	"github.com/vk/formulagrid/internal/depgraph"
	"github.com/vk/formulagrid/internal/expr"
	"github.com/vk/formulagrid/internal/scheduler"
)

// Build constructs a complete, validated formula graph from a config model.
func Build(ctx context.Context, model *config.Model) (*scheduler.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")

	// First pass: one pending node per entity output.
	nodes, errs := collectNodes(model)
	logger.Debug("Build: Node collection complete.", "node_count", len(nodes), "errors", len(errs))

	// Second pass: resolve outgoing edges.
	errs = append(errs, linkNodes(ctx, nodes)...)
	logger.Debug("Build: Node linking complete.", "errors", len(errs))

	// Third pass: insertion, which rejects duplicates and cycles.
	g := depgraph.New[string, expr.Node]()
	for _, n := range nodes {
		if n.formula == nil {
			continue
		}
		if err := g.AddNode(n.key, n.formula, n.outgoing); err != nil {
			errs = append(errs, n.wrap(err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.Error("Build: Graph construction failed.", "errors", len(errs))
		return nil, fmt.Errorf("error building formula graph: %w", err)
	}
	logger.Info("Build: Graph construction successful.", "nodes", g.Len())
	return g, nil
}
