package config

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/formulagrid/internal/expr"
)

// Model is the unified, format-agnostic representation of every loaded
// entity.
type Model struct {
	Entities []*Entity
}

// Entity is one named thing whose values are computed by formulas.
type Entity struct {
	Name        string
	Description string
	// Outputs holds at least one output. An entity written with a single
	// value has exactly one Output whose Name is empty.
	Outputs []*Output
	// DeclRange locates the entity definition for diagnostics.
	DeclRange hcl.Range
}

// Output is one formula of an entity and becomes one graph node.
type Output struct {
	Name    string
	Formula expr.Node
	// DependsOn lists the keys the formula may read. When nil the keys are
	// inferred from the formula.
	DependsOn []string
	DeclRange hcl.Range
}

// Key returns the graph key of output o of entity e.
func (e *Entity) Key(o *Output) string {
	return expr.OutputKey(e.Name, o.Name)
}

// Merge appends the entities of other to m.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Entities = append(m.Entities, other.Entities...)
}

// Entity returns the first entity called name.
func (m *Model) Entity(name string) (*Entity, bool) {
	for _, e := range m.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Keys returns every output key of the model, sorted.
func (m *Model) Keys() []string {
	var keys []string
	for _, e := range m.Entities {
		for _, o := range e.Outputs {
			keys = append(keys, e.Key(o))
		}
	}
	sort.Strings(keys)
	return keys
}

// String is used in log lines.
func (m *Model) String() string {
	outputs := 0
	for _, e := range m.Entities {
		outputs += len(e.Outputs)
	}
	return fmt.Sprintf("%d entities, %d outputs", len(m.Entities), outputs)
}
