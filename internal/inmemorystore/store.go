package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/formulagrid/internal/nodestore"
	"github.com/vk/formulagrid/internal/value"
)

// Store is an in-memory implementation of nodestore.Store.
//
// The store maintains three independent sync.Maps keyed by node key:
//   - states: nodestore.Status
//   - values: value.Value for succeeded nodes
//   - errors: error for failed nodes
type Store struct {
	states sync.Map
	values sync.Map
	errors sync.Map
}

var _ nodestore.Store = (*Store)(nil)

// New creates a new, empty in-memory node state store.
func New() *Store {
	return &Store{}
}

// SetStatus updates the status of a node.
func (s *Store) SetStatus(ctx context.Context, key string, status nodestore.Status) error {
	s.states.Store(key, status)
	return nil
}

// GetStatus returns the status of a node, or StatusPending if none was set.
func (s *Store) GetStatus(ctx context.Context, key string) (nodestore.Status, error) {
	status, ok := s.states.Load(key)
	if !ok {
		return nodestore.StatusPending, nil
	}
	return status.(nodestore.Status), nil
}

// SetValue records the value a node produced.
func (s *Store) SetValue(ctx context.Context, key string, v value.Value) error {
	s.values.Store(key, v)
	return nil
}

// GetValue returns the recorded value of a node.
func (s *Store) GetValue(ctx context.Context, key string) (value.Value, bool, error) {
	v, ok := s.values.Load(key)
	if !ok {
		return value.Value{}, false, nil
	}
	return v.(value.Value), true, nil
}

// SetError records the failure of a node.
func (s *Store) SetError(ctx context.Context, key string, nodeErr error) error {
	s.errors.Store(key, nodeErr)
	return nil
}

// GetError returns the recorded failure of a node.
func (s *Store) GetError(ctx context.Context, key string) (error, error) {
	err, ok := s.errors.Load(key)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}
