package hcl_adapter

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/formulagrid/internal/ctxlog"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional fields with zero-width
// placeholder expressions, so a nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// decodeDependsOn reads an optional depends_on list. It returns nil when the
// attribute is absent and a non-nil slice, possibly empty, when present.
func decodeDependsOn(ctx context.Context, expr hcl.Expression) ([]string, hcl.Diagnostics) {
	if !isExprDefined(ctx, expr, "depends_on") {
		return nil, nil
	}
	var deps []string
	if diags := gohcl.DecodeExpression(expr, nil, &deps); diags.HasErrors() {
		return nil, diags
	}
	if deps == nil {
		deps = []string{}
	}
	return deps, nil
}
