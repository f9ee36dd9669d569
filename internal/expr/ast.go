// Package expr holds the formula syntax tree and its evaluator.
//
// A formula is a tree of Node values. The set of node types is closed: every
// type implementing Node lives in this package, and Evaluate switches over
// all of them. Trees are immutable once built and may be shared freely
// between goroutines and between cloned graphs.
package expr

import (
	"fmt"
	"strings"

	"github.com/vk/formulagrid/internal/value"
)

// Node is one expression in a formula tree.
type Node interface {
	fmt.Stringer
	node()
}

// Op is a binary operator.
type Op int

const (
	OpAdd Op = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpPower

	OpLess
	OpGreater
	OpLessOrEqual
	OpGreaterOrEqual
	OpEqual
	OpNotEqual

	OpAnd
	OpOr
)

var opSymbols = [...]string{
	OpAdd:            "+",
	OpSubtract:       "-",
	OpMultiply:       "*",
	OpDivide:         "/",
	OpModulo:         "%",
	OpPower:          "^",
	OpLess:           "<",
	OpGreater:        ">",
	OpLessOrEqual:    "<=",
	OpGreaterOrEqual: ">=",
	OpEqual:          "==",
	OpNotEqual:       "!=",
	OpAnd:            "&&",
	OpOr:             "||",
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opSymbols) {
		return fmt.Sprintf("Op(%d)", int(o))
	}
	return opSymbols[o]
}

// IsArithmetic reports whether o takes two numbers and yields a number.
func (o Op) IsArithmetic() bool { return o >= OpAdd && o <= OpPower }

// IsComparison reports whether o compares two values of the same kind.
func (o Op) IsComparison() bool { return o >= OpLess && o <= OpNotEqual }

// IsLogical reports whether o combines two booleans.
func (o Op) IsLogical() bool { return o == OpAnd || o == OpOr }

// UnaryOp is a prefix operator.
type UnaryOp int

const (
	// Neg is arithmetic negation.
	Neg UnaryOp = iota
	// Not is boolean negation.
	Not
)

func (o UnaryOp) String() string {
	switch o {
	case Neg:
		return "-"
	case Not:
		return "!"
	default:
		return fmt.Sprintf("UnaryOp(%d)", int(o))
	}
}

// Literal is a constant value.
type Literal struct {
	Value value.Value
}

// Ident reads a name from the evaluation environment.
type Ident struct {
	Name string
}

// Binary applies Op to two operands.
type Binary struct {
	Op    Op
	Left  Node
	Right Node
}

// Unary applies a prefix operator to one operand.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

// Call invokes a function from the built-in catalogue by name.
type Call struct {
	Name string
	Args []Node
}

// Branch is one guarded arm of an If.
type Branch struct {
	Cond Node
	Then Node
}

// If evaluates the first branch whose condition is true. Else is optional.
type If struct {
	Branches []Branch
	Else     Node
}

// Block evaluates its steps in order and yields the last one.
type Block struct {
	Steps []Node
}

// OutputRef reads a named output of another entity.
type OutputRef struct {
	Entity string
	Output string
}

// Key returns the environment name an OutputRef resolves to.
func (r *OutputRef) Key() string {
	return OutputKey(r.Entity, r.Output)
}

// OutputKey joins an entity name and an output name into a graph key.
// An empty output names the entity's single value.
func OutputKey(entity, output string) string {
	if output == "" {
		return entity
	}
	return entity + "." + output
}

func (*Literal) node()   {}
func (*Ident) node()     {}
func (*Binary) node()    {}
func (*Unary) node()     {}
func (*Call) node()      {}
func (*If) node()        {}
func (*Block) node()     {}
func (*OutputRef) node() {}

func (n *Literal) String() string {
	if s, ok := n.Value.AsText(); ok {
		return fmt.Sprintf("%q", s)
	}
	return n.Value.String()
}

func (n *Ident) String() string { return n.Name }

func (n *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left, n.Op, n.Right)
}

func (n *Unary) String() string {
	return fmt.Sprintf("%s%s", n.Op, n.Operand)
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))
}

func (n *If) String() string {
	var b strings.Builder
	for i, br := range n.Branches {
		if i > 0 {
			b.WriteString(" else ")
		}
		fmt.Fprintf(&b, "if %s { %s }", br.Cond, br.Then)
	}
	if n.Else != nil {
		fmt.Fprintf(&b, " else { %s }", n.Else)
	}
	return b.String()
}

func (n *Block) String() string {
	steps := make([]string, len(n.Steps))
	for i, s := range n.Steps {
		steps[i] = s.String()
	}
	return "{ " + strings.Join(steps, "; ") + " }"
}

func (n *OutputRef) String() string {
	return fmt.Sprintf("GET_OUTPUT_FROM(%s, %q)", n.Entity, n.Output)
}
