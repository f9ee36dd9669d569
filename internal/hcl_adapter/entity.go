// This file translates decoded `entity` blocks into the format-agnostic
// config model.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/formulagrid/internal/config"
	"github.com/vk/formulagrid/internal/ctxlog"
)

// translateEntity decodes one entity block. It returns nil when the block
// has errors.
func (l *Loader) translateEntity(ctx context.Context, block *hcl.Block) (*config.Entity, hcl.Diagnostics) {
	name := block.Labels[0]
	logger := ctxlog.FromContext(ctx).With("entity", name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL entity to internal config model.")

	var diags hcl.Diagnostics
	if !hclsyntax.ValidIdentifier(name) {
		diags = diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid entity name",
			Detail:   fmt.Sprintf("%q is not a valid identifier; formulas could not reference it.", name),
			Subject:  block.LabelRanges[0].Ptr(),
		})
	}

	var body entityBody
	diags = diags.Extend(gohcl.DecodeBody(block.Body, nil, &body))
	if diags.HasErrors() {
		return nil, diags
	}

	entity := &config.Entity{
		Name:        name,
		Description: body.Description,
		DeclRange:   block.DefRange,
	}
	deps, depDiags := decodeDependsOn(ctx, body.DependsOn)
	diags = diags.Extend(depDiags)

	hasFormula := isExprDefined(ctx, body.Value, "value") || isExprDefined(ctx, body.Steps, "steps")
	switch {
	case hasFormula && len(body.Outputs) > 0:
		diags = diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Conflicting entity definition",
			Detail:   "An entity defines either a value (or steps) or output blocks, not both.",
			Subject:  block.DefRange.Ptr(),
		})

	case len(body.Outputs) > 0:
		seen := make(map[string]struct{}, len(body.Outputs))
		for _, ob := range body.Outputs {
			if _, dup := seen[ob.Name]; dup {
				diags = diags.Append(&hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Duplicate output",
					Detail:   fmt.Sprintf("Entity %q already defines an output named %q.", name, ob.Name),
					Subject:  block.DefRange.Ptr(),
				})
				continue
			}
			seen[ob.Name] = struct{}{}
			if !hclsyntax.ValidIdentifier(ob.Name) {
				diags = diags.Append(&hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid output name",
					Detail:   fmt.Sprintf("%q is not a valid identifier.", ob.Name),
					Subject:  block.DefRange.Ptr(),
				})
				continue
			}

			out, outDiags := translateFormula(ctx, ob.Name, ob.Value, ob.Steps, block.DefRange)
			diags = diags.Extend(outDiags)
			if out == nil {
				continue
			}
			outDeps, depDiags := decodeDependsOn(ctx, ob.DependsOn)
			diags = diags.Extend(depDiags)
			// An output without its own depends_on inherits the entity's.
			if outDeps == nil {
				outDeps = deps
			}
			out.DependsOn = outDeps
			entity.Outputs = append(entity.Outputs, out)
		}

	default:
		out, outDiags := translateFormula(ctx, "", body.Value, body.Steps, block.DefRange)
		diags = diags.Extend(outDiags)
		if out != nil {
			out.DependsOn = deps
			entity.Outputs = append(entity.Outputs, out)
		}
	}

	if diags.HasErrors() {
		return nil, diags
	}
	return entity, diags
}

// translateFormula builds one output from exactly one of a value or a steps
// expression. declRange is reported when neither is given.
func translateFormula(ctx context.Context, name string, valueExpr, stepsExpr hcl.Expression, declRange hcl.Range) (*config.Output, hcl.Diagnostics) {
	hasValue := isExprDefined(ctx, valueExpr, "value")
	hasSteps := isExprDefined(ctx, stepsExpr, "steps")

	label := "The entity"
	if name != "" {
		label = fmt.Sprintf("Output %q", name)
	}

	var formula hcl.Expression
	switch {
	case hasValue && hasSteps:
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Conflicting formula",
			Detail:   label + " sets both value and steps; only one is allowed.",
			Subject:  stepsExpr.Range().Ptr(),
		}}
	case hasValue:
		formula = valueExpr
	case hasSteps:
		formula = stepsExpr
	default:
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing formula",
			Detail:   label + " must set either value or steps.",
			Subject:  declRange.Ptr(),
		}}
	}

	out := &config.Output{Name: name, DeclRange: formula.Range()}
	var diags hcl.Diagnostics
	if hasSteps {
		out.Formula, diags = TranslateSteps(formula)
	} else {
		out.Formula, diags = Translate(formula)
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return out, diags
}
