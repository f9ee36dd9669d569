package scheduler

import (
	"errors"
	"fmt"

	"github.com/vk/formulagrid/internal/depgraph"
	"github.com/vk/formulagrid/internal/expr"
)

// Graph is a formula graph: node keys are entity output keys and payloads
// are formula trees.
type Graph = depgraph.Graph[string, expr.Node]

// ErrUndeclaredReference is returned when a formula reads a key that is not
// one of its node's outgoing edges.
var ErrUndeclaredReference = errors.New("undeclared reference")

// ReferenceError names a formula reference that is missing from the node's
// dependencies.
type ReferenceError struct {
	Key string
	Ref string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s reads %q, which is not among its dependencies", e.Key, e.Ref)
}

func (e *ReferenceError) Unwrap() error { return ErrUndeclaredReference }

// CheckNode verifies that every key the formula n reads is listed in
// outgoing. Extra entries in outgoing are allowed; they only constrain
// ordering.
func CheckNode(key string, n expr.Node, outgoing []string) error {
	declared := make(map[string]struct{}, len(outgoing))
	for _, dep := range outgoing {
		declared[dep] = struct{}{}
	}
	var errs []error
	for _, ref := range expr.References(n) {
		if _, ok := declared[ref]; !ok {
			errs = append(errs, &ReferenceError{Key: key, Ref: ref})
		}
	}
	return errors.Join(errs...)
}

// Validate runs CheckNode over every node of g and joins all violations.
func Validate(g *Graph) error {
	var errs []error
	for _, key := range g.Keys() {
		n, _ := g.Payload(key)
		if err := CheckNode(key, n, g.GetOutgoing(key)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
