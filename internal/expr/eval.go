package expr

import (
	"errors"
	"math"

	"github.com/vk/formulagrid/internal/value"
)

// Env binds names to already-resolved values for one evaluation.
type Env map[string]value.Value

// Evaluate computes the value of n against env. It has no side effects and
// never panics on well-formed trees; every failure is returned as an *Error.
func Evaluate(n Node, env Env) (value.Value, error) {
	switch n := n.(type) {
	case *Literal:
		if !n.Value.IsValid() {
			return value.Value{}, Errorf(ArgumentError, "literal holds no value")
		}
		return n.Value, nil

	case *Ident:
		v, ok := env[n.Name]
		if !ok {
			return value.Value{}, Errorf(UnboundIdentifier, "%q is not bound", n.Name)
		}
		return v, nil

	case *OutputRef:
		v, ok := env[n.Key()]
		if !ok {
			return value.Value{}, Errorf(UnresolvedDependency, "output %q of entity %q is not available", n.Output, n.Entity)
		}
		return v, nil

	case *Unary:
		return evalUnary(n, env)

	case *Binary:
		if n.Op.IsLogical() {
			return evalLogical(n, env)
		}
		left, err := Evaluate(n.Left, env)
		if err != nil {
			return value.Value{}, err
		}
		right, err := Evaluate(n.Right, env)
		if err != nil {
			return value.Value{}, err
		}
		if n.Op.IsComparison() {
			return compare(n.Op, left, right)
		}
		return arithmetic(n.Op, left, right)

	case *Call:
		return call(n, env)

	case *If:
		for _, br := range n.Branches {
			cond, err := Evaluate(br.Cond, env)
			if err != nil {
				return value.Value{}, err
			}
			ok, isBool := cond.AsBool()
			if !isBool {
				return value.Value{}, Errorf(TypeMismatch, "condition %s is %s, not boolean", br.Cond, cond.Kind())
			}
			if ok {
				return Evaluate(br.Then, env)
			}
		}
		if n.Else == nil {
			return value.Value{}, Errorf(NoMatchingBranch, "no condition of %s is true and there is no else", n)
		}
		return Evaluate(n.Else, env)

	case *Block:
		if len(n.Steps) == 0 {
			return value.Value{}, Errorf(ArgumentError, "empty block")
		}
		var last value.Value
		for _, step := range n.Steps {
			v, err := Evaluate(step, env)
			if err != nil {
				return value.Value{}, err
			}
			last = v
		}
		return last, nil

	case nil:
		return value.Value{}, Errorf(ArgumentError, "missing expression")

	default:
		return value.Value{}, Errorf(ArgumentError, "unsupported node %T", n)
	}
}

func evalUnary(n *Unary, env Env) (value.Value, error) {
	v, err := Evaluate(n.Operand, env)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case Neg:
		f, ok := v.AsNumber()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "cannot negate %s", v.Kind())
		}
		return value.NumberVal(-f), nil
	case Not:
		b, ok := v.AsBool()
		if !ok {
			return value.Value{}, Errorf(TypeMismatch, "cannot apply ! to %s", v.Kind())
		}
		return value.BoolVal(!b), nil
	default:
		return value.Value{}, Errorf(ArgumentError, "unsupported unary operator %s", n.Op)
	}
}

// evalLogical short-circuits: the right operand is only evaluated when the
// left one does not decide the result.
func evalLogical(n *Binary, env Env) (value.Value, error) {
	left, err := boolOperand(n.Op, n.Left, env)
	if err != nil {
		return value.Value{}, err
	}
	if (n.Op == OpAnd && !left) || (n.Op == OpOr && left) {
		return value.BoolVal(left), nil
	}
	right, err := boolOperand(n.Op, n.Right, env)
	if err != nil {
		return value.Value{}, err
	}
	return value.BoolVal(right), nil
}

func boolOperand(op Op, n Node, env Env) (bool, error) {
	v, err := Evaluate(n, env)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, Errorf(TypeMismatch, "operator %s needs boolean operands, got %s", op, v.Kind())
	}
	return b, nil
}

func arithmetic(op Op, left, right value.Value) (value.Value, error) {
	a, okA := left.AsNumber()
	b, okB := right.AsNumber()
	if !okA || !okB {
		return value.Value{}, Errorf(TypeMismatch, "operator %s needs numbers, got %s and %s", op, left.Kind(), right.Kind())
	}
	var r float64
	switch op {
	case OpAdd:
		r = a + b
	case OpSubtract:
		r = a - b
	case OpMultiply:
		r = a * b
	case OpDivide:
		if b == 0 {
			return value.Value{}, Errorf(DivisionByZero, "%s / 0", value.FormatNumber(a))
		}
		r = a / b
	case OpModulo:
		if b == 0 {
			return value.Value{}, Errorf(DivisionByZero, "%s %% 0", value.FormatNumber(a))
		}
		r = math.Mod(a, b)
	case OpPower:
		return power(a, b)
	default:
		return value.Value{}, Errorf(ArgumentError, "unsupported operator %s", op)
	}
	// Inf - Inf, 0 * Inf and Inf % 2 have no numeric value.
	if math.IsNaN(r) {
		return value.Value{}, Errorf(RangeError, "%s %s %s is not a number", value.FormatNumber(a), op, value.FormatNumber(b))
	}
	return value.NumberVal(r), nil
}

// power saturates to ±Inf on overflow. A real-valued result that does not
// exist, such as (-8)^(1/3), is a RangeError.
func power(base, exp float64) (value.Value, error) {
	r := math.Pow(base, exp)
	if math.IsNaN(r) && !math.IsNaN(base) && !math.IsNaN(exp) {
		return value.Value{}, Errorf(RangeError, "%s ^ %s has no real value", value.FormatNumber(base), value.FormatNumber(exp))
	}
	return value.NumberVal(r), nil
}

func compare(op Op, left, right value.Value) (value.Value, error) {
	if left.Kind() != right.Kind() {
		return value.Value{}, Errorf(TypeMismatch, "cannot compare %s with %s", left.Kind(), right.Kind())
	}
	switch op {
	case OpEqual:
		return value.BoolVal(value.Equal(left, right)), nil
	case OpNotEqual:
		return value.BoolVal(!value.Equal(left, right)), nil
	}

	c, err := value.Compare(left, right)
	if err != nil {
		if errors.Is(err, value.ErrUnordered) {
			return value.Value{}, &Error{Kind: TypeMismatch, Message: "operator " + op.String() + " is not defined for " + left.Kind().String(), Cause: err}
		}
		return value.Value{}, &Error{Kind: TypeMismatch, Cause: err}
	}
	switch op {
	case OpLess:
		return value.BoolVal(c < 0), nil
	case OpGreater:
		return value.BoolVal(c > 0), nil
	case OpLessOrEqual:
		return value.BoolVal(c <= 0), nil
	case OpGreaterOrEqual:
		return value.BoolVal(c >= 0), nil
	default:
		return value.Value{}, Errorf(ArgumentError, "unsupported operator %s", op)
	}
}
