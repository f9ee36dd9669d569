package depgraph

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when adding a key that is already a node.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrCycleDetected is returned when adding a node would close a cycle.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrUnknownNode is returned when an operation names a key that is not a node.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidArgument is returned for missing arguments, such as a nil root set.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error describes a rejected graph operation. The graph is never modified
// by an operation that returns an error.
type Error struct {
	Op  string
	Key any
	Err error
}

func (e *Error) Error() string {
	if e.Key == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %v: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
