package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/vk/formulagrid/internal/ctxlog"
	"github.com/vk/formulagrid/internal/expr"
	"github.com/vk/formulagrid/internal/inmemorystore"
	"github.com/vk/formulagrid/internal/metrics"
	"github.com/vk/formulagrid/internal/nodestore"
	"github.com/vk/formulagrid/internal/value"
)

// DefaultWorkers is the per-layer parallelism used when Config.Workers is 0.
const DefaultWorkers = 4

// Config tunes a Scheduler. The zero Config is usable.
type Config struct {
	// Workers bounds how many nodes of one layer are evaluated at once.
	Workers int
	// NewStore creates the result store of each run. Defaults to an
	// in-memory store.
	NewStore func() nodestore.Store
	// Metrics receives per-node and per-run observations. May be nil.
	Metrics *metrics.Collector
}

// Scheduler drives the evaluation of formula graphs. It holds no per-run
// state and may be used for several runs, also concurrently.
type Scheduler struct {
	workers  int
	newStore func() nodestore.Store
	metrics  *metrics.Collector
}

// New creates a Scheduler from cfg.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		workers:  cfg.Workers,
		newStore: cfg.NewStore,
		metrics:  cfg.Metrics,
	}
	if s.workers <= 0 {
		s.workers = DefaultWorkers
	}
	if s.newStore == nil {
		s.newStore = func() nodestore.Store { return inmemorystore.New() }
	}
	return s
}

// Evaluate computes every node of g. It fails only when g does not pass
// Validate; evaluation errors are reported per node in the Report.
//
// The context carries the logger. Evaluation is not cancellable: a run is a
// bounded in-memory computation and always completes.
func (s *Scheduler) Evaluate(ctx context.Context, g *Graph) (*Report, error) {
	if err := Validate(g); err != nil {
		return nil, fmt.Errorf("graph failed validation: %w", err)
	}

	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run_id", runID)
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	layers, detached := g.TopologicalSort()
	store := s.newStore()
	logger.Info("Starting evaluation run.", "nodes", g.Len(), "layers", len(layers), "detached", len(detached), "workers", s.workers)

	detachedSet := make(map[string]struct{}, len(detached))
	for _, key := range detached {
		detachedSet[key] = struct{}{}
	}
	for _, key := range detached {
		s.fail(ctx, store, key, detachedError(g, key, detachedSet))
	}

	for i, layer := range layers {
		logger.Debug("Evaluating layer.", "layer", i, "size", len(layer))
		p := pool.New().WithMaxGoroutines(s.workers)
		for _, key := range layer {
			p.Go(func() {
				s.evaluateNode(ctx, g, store, key)
			})
		}
		p.Wait()
	}

	report := &Report{
		RunID:    runID,
		Layers:   layers,
		Detached: detached,
		Results:  make(map[string]Result, g.Len()),
	}
	for _, key := range g.Keys() {
		res, err := readResult(ctx, store, key)
		if err != nil {
			return nil, fmt.Errorf("reading result of %s: %w", key, err)
		}
		report.Results[key] = res
		if res.Err != nil {
			report.Failed++
		}
	}
	report.Duration = time.Since(start)

	s.metrics.RunFinished(report.Duration, len(layers), len(detached))
	logger.Info("Evaluation run finished.", "nodes", len(report.Results), "failed", report.Failed, "duration", report.Duration)
	return report, nil
}

func (s *Scheduler) evaluateNode(ctx context.Context, g *Graph, store nodestore.Store, key string) {
	logger := ctxlog.FromContext(ctx).With("key", key)
	if err := store.SetStatus(ctx, key, nodestore.StatusRunning); err != nil {
		logger.Error("Failed to update node status.", "error", err)
	}

	deps := g.GetOutgoing(key)
	env := make(expr.Env, len(deps))
	for _, dep := range deps {
		v, ok, err := store.GetValue(ctx, dep)
		if err != nil {
			s.fail(ctx, store, key, err)
			return
		}
		if !ok {
			s.fail(ctx, store, key, blockedError(ctx, store, dep))
			return
		}
		env[dep] = v
	}

	formula, _ := g.Payload(key)
	v, err := expr.Evaluate(formula, env)
	if err != nil {
		s.fail(ctx, store, key, err)
		return
	}
	logger.Debug("Node evaluated.", "value", v.String())
	if err := store.SetValue(ctx, key, v); err != nil {
		logger.Error("Failed to record node value.", "error", err)
	}
	if err := store.SetStatus(ctx, key, nodestore.StatusSucceeded); err != nil {
		logger.Error("Failed to update node status.", "error", err)
	}
	s.metrics.NodeEvaluated(nodestore.StatusSucceeded.String(), "")
}

func (s *Scheduler) fail(ctx context.Context, store nodestore.Store, key string, nodeErr error) {
	logger := ctxlog.FromContext(ctx).With("key", key)
	logger.Warn("Node failed.", "error", nodeErr)
	if err := store.SetError(ctx, key, nodeErr); err != nil {
		logger.Error("Failed to record node error.", "error", err)
	}
	if err := store.SetStatus(ctx, key, nodestore.StatusFailed); err != nil {
		logger.Error("Failed to update node status.", "error", err)
	}
	kind := expr.KindOf(nodeErr)
	label := ""
	if kind != 0 {
		label = kind.String()
	}
	s.metrics.NodeEvaluated(nodestore.StatusFailed.String(), label)
}

// detachedError explains why key can never be evaluated: either it reads a
// key that is not in the graph, or it depends on another detached node.
func detachedError(g *Graph, key string, detached map[string]struct{}) error {
	var blocker string
	for _, dep := range g.GetOutgoing(key) {
		if !g.Contains(dep) {
			return expr.Errorf(expr.UnresolvedDependency, "references missing key %q", dep)
		}
		if _, ok := detached[dep]; ok && blocker == "" {
			blocker = dep
		}
	}
	return expr.Errorf(expr.UnresolvedDependency, "blocked by unresolved dependency %q", blocker)
}

// blockedError describes a dependency that produced no value.
func blockedError(ctx context.Context, store nodestore.Store, dep string) error {
	depErr, _ := store.GetError(ctx, dep)
	if kind := expr.KindOf(depErr); kind != 0 {
		return expr.Errorf(expr.UnresolvedDependency, "dependency %q failed with %s", dep, kind)
	}
	return expr.Errorf(expr.UnresolvedDependency, "dependency %q has no value", dep)
}

func readResult(ctx context.Context, store nodestore.Store, key string) (Result, error) {
	status, err := store.GetStatus(ctx, key)
	if err != nil {
		return Result{}, err
	}
	res := Result{Key: key, Status: status}
	if status == nodestore.StatusSucceeded {
		v, _, err := store.GetValue(ctx, key)
		if err != nil {
			return Result{}, err
		}
		res.Value = v
		return res, nil
	}
	res.Err, err = store.GetError(ctx, key)
	if err != nil {
		return Result{}, err
	}
	if res.Err == nil {
		res.Err = expr.Errorf(expr.UnresolvedDependency, "node was never evaluated")
	}
	return res, nil
}

// Result is the outcome of one node: a Value or an error, never both.
type Result struct {
	Key    string
	Status nodestore.Status
	Value  value.Value
	Err    error
}

// OK reports whether the node produced a value.
func (r Result) OK() bool { return r.Err == nil }

// Report is the outcome of one Evaluate call.
type Report struct {
	RunID    string
	Layers   [][]string
	Detached []string
	Results  map[string]Result
	Failed   int
	Duration time.Duration
}
