package depgraph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDiamond builds 1->{2,3,4}, 2->{4}, 3->{2,4}, 4->{} with payload k*k.
func newDiamond(t *testing.T) *Graph[int, int] {
	t.Helper()
	g := New[int, int]()
	require.NoError(t, g.AddNode(1, 1, []int{2, 3, 4}))
	require.NoError(t, g.AddNode(2, 4, []int{4}))
	require.NoError(t, g.AddNode(3, 9, []int{2, 4}))
	require.NoError(t, g.AddNode(4, 16, nil))
	return g
}

// reachesItself reports whether any node can reach itself via outgoing edges.
func reachesItself[K comparable, P any](g *Graph[K, P]) bool {
	for _, start := range g.Keys() {
		seen := map[K]bool{}
		stack := g.GetOutgoing(start)
		for len(stack) > 0 {
			k := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if k == start {
				return true
			}
			if seen[k] {
				continue
			}
			seen[k] = true
			stack = append(stack, g.GetOutgoing(k)...)
		}
	}
	return false
}

func TestNew(t *testing.T) {
	g := New[string, string]()
	require.NotNil(t, g)
	assert.Equal(t, 0, g.Len())
	layers, detached := g.TopologicalSort()
	assert.Empty(t, layers)
	assert.Empty(t, detached)
}

func TestAddNode(t *testing.T) {
	t.Run("records edges in both directions", func(t *testing.T) {
		g := New[string, int]()
		require.NoError(t, g.AddNode("b", 2, nil))
		require.NoError(t, g.AddNode("a", 1, []string{"b"}))

		assert.Equal(t, []string{"b"}, g.GetOutgoing("a"))
		assert.Equal(t, []string{"a"}, g.GetIncoming("b"))
		assert.Empty(t, g.GetOutgoing("b"))
		p, ok := g.Payload("a")
		require.True(t, ok)
		assert.Equal(t, 1, p)
	})

	t.Run("edges may point at keys added later", func(t *testing.T) {
		g := New[string, int]()
		require.NoError(t, g.AddNode("a", 1, []string{"b"}))
		assert.False(t, g.Contains("b"))
		assert.Empty(t, g.GetIncoming("b"), "incoming of a non-node is empty")

		require.NoError(t, g.AddNode("b", 2, nil))
		assert.Equal(t, []string{"a"}, g.GetIncoming("b"))
	})

	t.Run("duplicate key leaves graph unchanged", func(t *testing.T) {
		g := newDiamond(t)

		err := g.AddNode(2, 100, []int{3})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateKey)

		p, _ := g.Payload(2)
		assert.Equal(t, 4, p)
		assert.Equal(t, []int{4}, g.GetOutgoing(2))
		assert.Empty(t, g.GetIncoming(5))

		require.NoError(t, g.AddNode(5, 25, []int{1}))
		assert.Equal(t, 5, g.Len())
		layers, detached := g.TopologicalSort()
		assert.Equal(t, [][]int{{4}, {2}, {3}, {1}, {5}}, layers)
		assert.Empty(t, detached)
	})

	t.Run("self edge is a cycle", func(t *testing.T) {
		g := New[string, int]()
		err := g.AddNode("a", 1, []string{"a"})
		assert.ErrorIs(t, err, ErrCycleDetected)
		assert.False(t, g.Contains("a"))
		assert.Empty(t, g.GetIncoming("a"))
	})

	t.Run("edge closing a cycle is rejected", func(t *testing.T) {
		g := New[string, int]()
		require.NoError(t, g.AddNode("a", 1, []string{"b"}))
		require.NoError(t, g.AddNode("b", 2, []string{"c"}))

		err := g.AddNode("c", 3, []string{"a"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCycleDetected)
		assert.False(t, g.Contains("c"))
		assert.Empty(t, g.GetIncoming("a"), "rejected insert must not leave edges behind")

		require.NoError(t, g.AddNode("c", 3, nil))
		assert.False(t, reachesItself(g))
	})

	t.Run("direct mutual dependency is rejected", func(t *testing.T) {
		g := New[string, int]()
		require.NoError(t, g.AddNode("a", 1, []string{"b"}))
		err := g.AddNode("b", 2, []string{"a"})
		assert.ErrorIs(t, err, ErrCycleDetected)
	})

	t.Run("re-adding a removed node still sees its dependents", func(t *testing.T) {
		g := New[string, int]()
		require.NoError(t, g.AddNode("b", 2, nil))
		require.NoError(t, g.AddNode("a", 1, []string{"b"}))
		require.NoError(t, g.RemoveNode("b"))

		err := g.AddNode("b", 2, []string{"a"})
		assert.ErrorIs(t, err, ErrCycleDetected)
	})
}

func TestAcyclicAfterRandomInsertions(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := New[int, struct{}]()
	for i := 0; i < 400; i++ {
		key := rng.Intn(60)
		var out []int
		for n := rng.Intn(4); n > 0; n-- {
			out = append(out, rng.Intn(60))
		}
		_ = g.AddNode(key, struct{}{}, out)
		if i%25 == 0 && g.Len() > 0 {
			keys := g.Keys()
			require.NoError(t, g.RemoveNode(keys[rng.Intn(len(keys))]))
		}
		require.False(t, reachesItself(g), "cycle after step %d", i)
	}
}

func TestRemoveNode(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		g := New[string, int]()
		assert.ErrorIs(t, g.RemoveNode("a"), ErrUnknownNode)
	})

	t.Run("prunes incoming of targets and leaves dependents dangling", func(t *testing.T) {
		g := newDiamond(t)

		require.NoError(t, g.RemoveNode(2))

		assert.False(t, g.Contains(2))
		assert.Equal(t, []int{1}, g.GetIncoming(3))
		assert.ElementsMatch(t, []int{1, 3}, g.GetIncoming(4))
		assert.ElementsMatch(t, []int{2, 4}, g.GetOutgoing(3), "dependents keep the dangling edge")

		layers, detached := g.TopologicalSort()
		assert.Equal(t, [][]int{{4}}, layers)
		assert.Equal(t, []int{1, 3}, detached)
	})
}

func TestTrim(t *testing.T) {
	t.Run("keeps exactly the reachable set", func(t *testing.T) {
		g := newDiamond(t)
		require.NoError(t, g.AddNode(5, 25, []int{4}))
		require.NoError(t, g.AddNode(6, 36, nil))

		require.NoError(t, g.Trim([]int{3}))

		assert.Equal(t, []int{2, 3, 4}, g.Keys())
		for _, k := range []int{1, 5, 6} {
			assert.False(t, g.Contains(k))
			assert.ErrorIs(t, g.RemoveNode(k), ErrUnknownNode)
		}
		assert.Equal(t, []int{3}, g.GetIncoming(2))
	})

	t.Run("nil roots", func(t *testing.T) {
		g := newDiamond(t)
		err := g.Trim(nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Equal(t, 4, g.Len())
	})

	t.Run("unknown root", func(t *testing.T) {
		g := newDiamond(t)
		err := g.Trim([]int{1, 9})
		assert.ErrorIs(t, err, ErrUnknownNode)
		assert.Equal(t, 4, g.Len())
	})

	t.Run("empty roots removes everything", func(t *testing.T) {
		g := newDiamond(t)
		require.NoError(t, g.Trim([]int{}))
		assert.Equal(t, 0, g.Len())
	})
}

func TestClone(t *testing.T) {
	g := newDiamond(t)
	wantLayers, wantDetached := g.TopologicalSort()

	c := g.Clone()
	require.NoError(t, c.Trim([]int{2}))
	require.NoError(t, c.AddNode(7, 49, []int{99}))

	assert.Equal(t, 4, g.Len())
	layers, detached := g.TopologicalSort()
	assert.Equal(t, wantLayers, layers)
	assert.Equal(t, wantDetached, detached)
	assert.False(t, g.Contains(7))
	assert.Empty(t, g.GetIncoming(99))

	assert.Equal(t, []int{2, 4, 7}, c.Keys())
	p, ok := c.Payload(2)
	require.True(t, ok)
	assert.Equal(t, 4, p)
}

func TestQueriesOnUnknownKeys(t *testing.T) {
	g := newDiamond(t)
	assert.False(t, g.Contains(42))
	assert.NotNil(t, g.GetOutgoing(42))
	assert.Empty(t, g.GetOutgoing(42))
	assert.Empty(t, g.GetIncoming(42))
	_, ok := g.Payload(42)
	assert.False(t, ok)
}
