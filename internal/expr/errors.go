package expr

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an evaluation failure.
type ErrorKind int

const (
	TypeMismatch ErrorKind = iota + 1
	DivisionByZero
	ArgumentError
	UnknownFunction
	UnboundIdentifier
	DateOverflow
	RangeError
	UnresolvedDependency
	NoMatchingBranch
)

func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case DivisionByZero:
		return "DivisionByZero"
	case ArgumentError:
		return "ArgumentError"
	case UnknownFunction:
		return "UnknownFunction"
	case UnboundIdentifier:
		return "UnboundIdentifier"
	case DateOverflow:
		return "DateOverflow"
	case RangeError:
		return "RangeError"
	case UnresolvedDependency:
		return "UnresolvedDependency"
	case NoMatchingBranch:
		return "NoMatchingBranch"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrTypeMismatch         = &Error{Kind: TypeMismatch}
	ErrDivisionByZero       = &Error{Kind: DivisionByZero}
	ErrArgument             = &Error{Kind: ArgumentError}
	ErrUnknownFunction      = &Error{Kind: UnknownFunction}
	ErrUnboundIdentifier    = &Error{Kind: UnboundIdentifier}
	ErrDateOverflow         = &Error{Kind: DateOverflow}
	ErrRange                = &Error{Kind: RangeError}
	ErrUnresolvedDependency = &Error{Kind: UnresolvedDependency}
	ErrNoMatchingBranch     = &Error{Kind: NoMatchingBranch}
)

// Error is a failure scoped to the evaluation of one formula.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Cause == nil:
		return e.Kind.String()
	case e.Cause == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
