// Package nodestore defines the interface for recording the outcome of each
// formula node during one evaluation run.
//
// # Why Node Store Exists
//
// The store separates **mutable run state** (status, value, error) from the
// **immutable graph** (keys, formulas, edges) held by depgraph.Graph. The
// graph is built once and may be cloned or trimmed; the store is created
// fresh for every run and only ever written by the scheduler.
//
// # Lifecycle and Usage
//
// The node store is:
//  1. **Created** once per run
//  2. **Written** by the scheduler as nodes move through their states
//  3. **Read** by the scheduler to assemble the environment of later layers
//  4. **Read** by the host once the run is over to render results
//
// # State Transitions
//
// Nodes follow this lifecycle:
//
//	Pending → Running → Succeeded (with value) OR Failed (with error)
//
// Detached nodes go straight from Pending to Failed.
package nodestore

import (
	"context"

	"github.com/vk/formulagrid/internal/value"
)

// Status is the state of one node within a run.
type Status int

const (
	// StatusPending means the node has not been scheduled yet.
	StatusPending Status = iota
	// StatusRunning means the node's formula is being evaluated.
	StatusRunning
	// StatusSucceeded means the node produced a value.
	StatusSucceeded
	// StatusFailed means the node recorded an error.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Store records status, value and error per node key.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent writes to different keys and
// for reads concurrent with those writes: every node of a layer is evaluated
// on its own goroutine and writes only its own key.
type Store interface {
	// SetStatus updates the status of a node.
	SetStatus(ctx context.Context, key string, status Status) error

	// GetStatus returns StatusPending for keys that were never set.
	GetStatus(ctx context.Context, key string) (Status, error)

	// SetValue records the value a node produced.
	SetValue(ctx context.Context, key string, v value.Value) error

	// GetValue returns the recorded value and whether one was recorded.
	GetValue(ctx context.Context, key string) (value.Value, bool, error)

	// SetError records why a node failed.
	SetError(ctx context.Context, key string, nodeErr error) error

	// GetError returns nil if no error was recorded for key.
	GetError(ctx context.Context, key string) (error, error)
}
