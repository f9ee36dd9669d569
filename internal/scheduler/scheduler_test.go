package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulagrid/internal/ctxlog"
	"github.com/vk/formulagrid/internal/depgraph"
	"github.com/vk/formulagrid/internal/expr"
	"github.com/vk/formulagrid/internal/metrics"
	"github.com/vk/formulagrid/internal/nodestore"
	"github.com/vk/formulagrid/internal/value"
)

func lit(f float64) expr.Node { return &expr.Literal{Value: value.NumberVal(f)} }

func ref(entity, output string) expr.Node {
	return &expr.OutputRef{Entity: entity, Output: output}
}

func add(t *testing.T, g *Graph, key string, n expr.Node) {
	t.Helper()
	require.NoError(t, g.AddNode(key, n, expr.References(n)))
}

func TestEvaluate_CrossEntityReference(t *testing.T) {
	g := depgraph.New[string, expr.Node]()
	add(t, g, "dough.weight", lit(850))
	add(t, g, "loaf.weight", ref("dough", "weight"))
	add(t, g, "loaf.portions", &expr.Binary{
		Op:    expr.OpDivide,
		Left:  &expr.Ident{Name: "loaf.weight"},
		Right: lit(50),
	})

	report, err := New(Config{}).Evaluate(context.Background(), g)

	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 0, report.Failed)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, [][]string{{"dough.weight"}, {"loaf.weight"}, {"loaf.portions"}}, report.Layers)

	dough := report.Results["dough.weight"]
	loaf := report.Results["loaf.weight"]
	require.True(t, loaf.OK())
	assert.Equal(t, dough.Value, loaf.Value)
	assert.Equal(t, nodestore.StatusSucceeded, loaf.Status)
	assert.Equal(t, value.NumberVal(17), report.Results["loaf.portions"].Value)
}

func TestEvaluate_FailuresCascade(t *testing.T) {
	g := depgraph.New[string, expr.Node]()
	add(t, g, "zero", lit(0))
	add(t, g, "ratio", &expr.Binary{Op: expr.OpDivide, Left: lit(1), Right: &expr.Ident{Name: "zero"}})
	add(t, g, "scaled", &expr.Binary{Op: expr.OpMultiply, Left: &expr.Ident{Name: "ratio"}, Right: lit(2)})
	add(t, g, "final", &expr.Ident{Name: "scaled"})
	add(t, g, "independent", lit(7))

	report, err := New(Config{}).Evaluate(context.Background(), g)

	require.NoError(t, err)
	assert.Equal(t, 3, report.Failed)
	assert.ErrorIs(t, report.Results["ratio"].Err, expr.ErrDivisionByZero)
	assert.ErrorIs(t, report.Results["scaled"].Err, expr.ErrUnresolvedDependency)
	assert.ErrorContains(t, report.Results["scaled"].Err, `dependency "ratio" failed with DivisionByZero`)
	assert.ErrorIs(t, report.Results["final"].Err, expr.ErrUnresolvedDependency)
	assert.True(t, report.Results["independent"].OK())
	assert.Equal(t, nodestore.StatusFailed, report.Results["final"].Status)
}

func TestEvaluate_DetachedNodes(t *testing.T) {
	g := depgraph.New[string, expr.Node]()
	add(t, g, "price", lit(3))
	add(t, g, "total", &expr.Binary{Op: expr.OpMultiply, Left: &expr.Ident{Name: "price"}, Right: &expr.Ident{Name: "quantity"}})
	add(t, g, "with_tax", &expr.Binary{Op: expr.OpMultiply, Left: &expr.Ident{Name: "total"}, Right: lit(1.2)})

	report, err := New(Config{}).Evaluate(context.Background(), g)

	require.NoError(t, err)
	assert.Equal(t, []string{"total", "with_tax"}, report.Detached)
	assert.ErrorIs(t, report.Results["total"].Err, expr.ErrUnresolvedDependency)
	assert.ErrorContains(t, report.Results["total"].Err, `references missing key "quantity"`)
	assert.ErrorContains(t, report.Results["with_tax"].Err, `blocked by unresolved dependency "total"`)
	assert.True(t, report.Results["price"].OK())
}

func TestEvaluate_CrossEntityReferenceToUnresolvedOutput(t *testing.T) {
	testCases := []struct {
		name    string
		weight  expr.Node
		message string
	}{
		{
			name:    "detached output",
			weight:  &expr.Ident{Name: "flour.total"},
			message: `blocked by unresolved dependency "dough.weight"`,
		},
		{
			name:    "failed output",
			weight:  &expr.Binary{Op: expr.OpDivide, Left: lit(850), Right: lit(0)},
			message: `dependency "dough.weight" failed with DivisionByZero`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			g := depgraph.New[string, expr.Node]()
			add(t, g, "dough.weight", tc.weight)
			add(t, g, "loaf.weight", ref("dough", "weight"))
			add(t, g, "loaf.portions", &expr.Binary{
				Op:    expr.OpDivide,
				Left:  ref("loaf", "weight"),
				Right: lit(50),
			})

			// --- Act ---
			report, err := New(Config{}).Evaluate(context.Background(), g)

			// --- Assert ---
			require.NoError(t, err)
			loaf := report.Results["loaf.weight"]
			assert.ErrorIs(t, loaf.Err, expr.ErrUnresolvedDependency)
			assert.ErrorContains(t, loaf.Err, tc.message)
			assert.ErrorIs(t, report.Results["loaf.portions"].Err, expr.ErrUnresolvedDependency)
			assert.Equal(t, nodestore.StatusFailed, loaf.Status)
			assert.Equal(t, 3, report.Failed)
		})
	}
}

func TestEvaluate_AllNodesFailStillReturnsEveryResult(t *testing.T) {
	g := depgraph.New[string, expr.Node]()
	for i := 0; i < 5; i++ {
		add(t, g, fmt.Sprintf("n%d", i), &expr.Ident{Name: fmt.Sprintf("missing%d", i)})
	}

	report, err := New(Config{}).Evaluate(context.Background(), g)

	require.NoError(t, err)
	assert.Empty(t, report.Layers)
	assert.Len(t, report.Results, 5)
	assert.Equal(t, 5, report.Failed)
}

func TestEvaluate_RejectsUndeclaredReferences(t *testing.T) {
	g := depgraph.New[string, expr.Node]()
	require.NoError(t, g.AddNode("a", lit(1), nil))
	require.NoError(t, g.AddNode("b", &expr.Ident{Name: "a"}, nil))

	report, err := New(Config{}).Evaluate(context.Background(), g)

	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrUndeclaredReference)
	var refErr *ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "b", refErr.Key)
	assert.Equal(t, "a", refErr.Ref)
}

func TestEvaluate_WideLayerRunsInParallel(t *testing.T) {
	g := depgraph.New[string, expr.Node]()
	add(t, g, "base", lit(2))
	var keys []string
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("n%03d", i)
		keys = append(keys, key)
		add(t, g, key, &expr.Binary{Op: expr.OpAdd, Left: &expr.Ident{Name: "base"}, Right: lit(float64(i))})
	}
	sum := &expr.Call{Name: "MAX"}
	for _, k := range keys {
		sum.Args = append(sum.Args, &expr.Ident{Name: k})
	}
	add(t, g, "max", sum)

	collector := metrics.New()
	report, err := New(Config{Workers: 8, Metrics: collector}).Evaluate(context.Background(), g)

	require.NoError(t, err)
	require.Len(t, report.Layers, 3)
	assert.Len(t, report.Layers[1], 200)
	assert.Equal(t, value.NumberVal(201), report.Results["max"].Value)

	runs, err := testutil.GatherAndCount(collector.Registry(), "formulagrid_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
	families, err := collector.Registry().Gather()
	require.NoError(t, err)
	evaluated := 0.0
	for _, mf := range families {
		if mf.GetName() != "formulagrid_nodes_evaluated_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			evaluated += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 202.0, evaluated)
}

func TestEvaluate_LogsRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	g := depgraph.New[string, expr.Node]()
	add(t, g, "a", lit(1))

	report, err := New(Config{}).Evaluate(ctx, g)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "run_id="+report.RunID)
	assert.Contains(t, buf.String(), "Evaluation run finished.")
}
