package hcl_adapter

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/formulagrid/internal/expr"
	"github.com/vk/formulagrid/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// Function names with a dedicated node instead of a catalogue entry.
const (
	funcPow           = "POW"
	funcGetOutputFrom = "GET_OUTPUT_FROM"
)

var binaryOps = map[*hclsyntax.Operation]expr.Op{
	hclsyntax.OpAdd:                expr.OpAdd,
	hclsyntax.OpSubtract:           expr.OpSubtract,
	hclsyntax.OpMultiply:           expr.OpMultiply,
	hclsyntax.OpDivide:             expr.OpDivide,
	hclsyntax.OpModulo:             expr.OpModulo,
	hclsyntax.OpLessThan:           expr.OpLess,
	hclsyntax.OpGreaterThan:        expr.OpGreater,
	hclsyntax.OpLessThanOrEqual:    expr.OpLessOrEqual,
	hclsyntax.OpGreaterThanOrEqual: expr.OpGreaterOrEqual,
	hclsyntax.OpEqual:              expr.OpEqual,
	hclsyntax.OpNotEqual:           expr.OpNotEqual,
	hclsyntax.OpLogicalAnd:         expr.OpAnd,
	hclsyntax.OpLogicalOr:          expr.OpOr,
}

// ParseFormula parses formula source text with the HCL expression grammar
// and translates it into a formula tree. start locates the text inside its
// file so diagnostics point at the right place.
func ParseFormula(src, filename string, start hcl.Pos) (expr.Node, hcl.Diagnostics) {
	parsed, diags := hclsyntax.ParseExpression([]byte(src), filename, start)
	if diags.HasErrors() {
		return nil, diags
	}
	return Translate(parsed)
}

// Translate converts a parsed HCL expression into a formula tree.
func Translate(e hcl.Expression) (expr.Node, hcl.Diagnostics) {
	t := &translator{}
	n := t.node(e)
	if t.diags.HasErrors() {
		return nil, t.diags
	}
	return n, t.diags
}

// TranslateSteps converts a non-empty tuple of expressions into a Block.
func TranslateSteps(e hcl.Expression) (expr.Node, hcl.Diagnostics) {
	tuple, ok := e.(*hclsyntax.TupleConsExpr)
	if !ok || len(tuple.Exprs) == 0 {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid steps",
			Detail:   "The steps attribute must be a non-empty list of expressions.",
			Subject:  e.Range().Ptr(),
		}}
	}
	t := &translator{}
	block := &expr.Block{}
	for _, step := range tuple.Exprs {
		block.Steps = append(block.Steps, t.node(step))
	}
	if t.diags.HasErrors() {
		return nil, t.diags
	}
	return block, t.diags
}

type translator struct {
	diags hcl.Diagnostics
}

func (t *translator) errorf(rng hcl.Range, summary, format string, args ...any) {
	t.diags = append(t.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf(format, args...),
		Subject:  rng.Ptr(),
	})
}

func (t *translator) node(e hcl.Expression) expr.Node {
	switch e := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		v, err := value.FromCty(e.Val)
		if err != nil {
			t.errorf(e.Range(), "Invalid literal", "%s.", err)
			return nil
		}
		return &expr.Literal{Value: v}

	case *hclsyntax.TemplateExpr:
		s, ok := staticString(e)
		if !ok {
			t.errorf(e.Range(), "Unsupported template", "String interpolation is not supported in formulas.")
			return nil
		}
		return &expr.Literal{Value: value.TextVal(s)}

	case *hclsyntax.TemplateWrapExpr:
		return t.node(e.Wrapped)

	case *hclsyntax.ParenthesesExpr:
		return t.node(e.Expression)

	case *hclsyntax.ScopeTraversalExpr:
		name, ok := traversalName(e.Traversal)
		if !ok {
			t.errorf(e.Range(), "Unsupported reference", "Only dotted names such as entity.output can be referenced.")
			return nil
		}
		return &expr.Ident{Name: name}

	case *hclsyntax.BinaryOpExpr:
		op, ok := binaryOps[e.Op]
		if !ok {
			t.errorf(e.Range(), "Unsupported operator", "This operator cannot be used in formulas.")
			return nil
		}
		return &expr.Binary{Op: op, Left: t.node(e.LHS), Right: t.node(e.RHS)}

	case *hclsyntax.UnaryOpExpr:
		switch e.Op {
		case hclsyntax.OpNegate:
			return &expr.Unary{Op: expr.Neg, Operand: t.node(e.Val)}
		case hclsyntax.OpLogicalNot:
			return &expr.Unary{Op: expr.Not, Operand: t.node(e.Val)}
		}
		t.errorf(e.Range(), "Unsupported operator", "This operator cannot be used in formulas.")
		return nil

	case *hclsyntax.ConditionalExpr:
		return t.conditional(e)

	case *hclsyntax.FunctionCallExpr:
		return t.call(e)

	default:
		t.errorf(e.Range(), "Unsupported expression", "Formulas support literals, names, operators, conditionals and function calls; got %T.", e)
		return nil
	}
}

// conditional flattens chained `c1 ? a : c2 ? b : d` into a single If with
// one branch per condition.
func (t *translator) conditional(e *hclsyntax.ConditionalExpr) expr.Node {
	n := &expr.If{}
	var rest hclsyntax.Expression = e
	for {
		c, ok := rest.(*hclsyntax.ConditionalExpr)
		if !ok {
			break
		}
		n.Branches = append(n.Branches, expr.Branch{
			Cond: t.node(c.Condition),
			Then: t.node(c.TrueResult),
		})
		rest = c.FalseResult
	}
	n.Else = t.node(rest)
	return n
}

func (t *translator) call(e *hclsyntax.FunctionCallExpr) expr.Node {
	if e.ExpandFinal {
		t.errorf(e.Range(), "Unsupported argument expansion", "Function arguments cannot be expanded with \"...\".")
		return nil
	}

	switch e.Name {
	case funcPow:
		if len(e.Args) != 2 {
			t.errorf(e.Range(), "Invalid function call", "%s takes exactly 2 arguments, got %d.", funcPow, len(e.Args))
			return nil
		}
		return &expr.Binary{Op: expr.OpPower, Left: t.node(e.Args[0]), Right: t.node(e.Args[1])}

	case funcGetOutputFrom:
		return t.outputRef(e)
	}

	if !expr.IsFunction(e.Name) {
		t.errorf(e.NameRange, "Unknown function", "There is no function named %q. Available functions: %s.",
			e.Name, strings.Join(append(expr.Functions(), funcPow, funcGetOutputFrom), ", "))
		return nil
	}
	n := &expr.Call{Name: e.Name}
	for _, arg := range e.Args {
		n.Args = append(n.Args, t.node(arg))
	}
	return n
}

// outputRef translates GET_OUTPUT_FROM(entity, "output"). The entity may be
// given as a bare name or a string.
func (t *translator) outputRef(e *hclsyntax.FunctionCallExpr) expr.Node {
	if len(e.Args) != 2 {
		t.errorf(e.Range(), "Invalid function call", "%s takes an entity and an output name, got %d arguments.", funcGetOutputFrom, len(e.Args))
		return nil
	}
	var entity string
	switch arg := e.Args[0].(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(arg.Traversal) == 1 {
			entity = arg.Traversal.RootName()
		}
	case *hclsyntax.TemplateExpr:
		entity, _ = staticString(arg)
	}
	if entity == "" {
		t.errorf(e.Args[0].Range(), "Invalid entity name", "The first argument of %s must be an entity name.", funcGetOutputFrom)
		return nil
	}
	tmpl, ok := e.Args[1].(*hclsyntax.TemplateExpr)
	var output string
	if ok {
		output, ok = staticString(tmpl)
	}
	if !ok || output == "" {
		t.errorf(e.Args[1].Range(), "Invalid output name", "The second argument of %s must be a non-empty string literal.", funcGetOutputFrom)
		return nil
	}
	return &expr.OutputRef{Entity: entity, Output: output}
}

// staticString returns the text of a template made only of literal parts.
func staticString(e *hclsyntax.TemplateExpr) (string, bool) {
	var sb strings.Builder
	for _, part := range e.Parts {
		lit, ok := part.(*hclsyntax.LiteralValueExpr)
		if !ok || lit.Val.IsNull() || lit.Val.Type() != cty.String {
			return "", false
		}
		sb.WriteString(lit.Val.AsString())
	}
	return sb.String(), true
}

// traversalName joins a root name and its attribute steps with dots.
func traversalName(tr hcl.Traversal) (string, bool) {
	parts := []string{tr.RootName()}
	for _, step := range tr[1:] {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok {
			return "", false
		}
		parts = append(parts, attr.Name)
	}
	return strings.Join(parts, "."), true
}
