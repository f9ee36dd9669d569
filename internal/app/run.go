package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vk/formulagrid/internal/builder"
	"github.com/vk/formulagrid/internal/scheduler"
)

// ErrNodesFailed is returned by Run when FailOnError is set and at least one
// node failed. The report is still written.
var ErrNodesFailed = errors.New("one or more nodes failed")

// Run executes one load, build, evaluate and render pass and returns the
// run's report.
func (a *App) Run(ctx context.Context) (*scheduler.Report, error) {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.")

	model, err := a.loader.Load(ctx, a.config.EntityPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}

	graph, err := builder.Build(ctx, model)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Formula graph built.", "node_count", graph.Len())

	report, err := a.scheduler.Evaluate(ctx, graph)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	a.mu.Lock()
	a.lastReport = report
	a.mu.Unlock()

	if err := a.writeReport(report); err != nil {
		return report, err
	}
	if a.config.MetricsPath != "" {
		if err := a.metrics.WriteTextfile(a.config.MetricsPath); err != nil {
			return report, fmt.Errorf("failed to write metrics: %w", err)
		}
		a.logger.Debug("Metrics written.", "path", a.config.MetricsPath)
	}

	a.logger.Debug("App.Run method finished.")
	if a.config.FailOnError && report.Failed > 0 {
		return report, fmt.Errorf("%w: %d of %d", ErrNodesFailed, report.Failed, len(report.Results))
	}
	return report, nil
}

func (a *App) writeReport(report *scheduler.Report) error {
	out, err := Render(a.config.OutputFormat, report)
	if err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}
	if a.config.OutputPath == "" {
		_, err = a.outW.Write(out)
		return err
	}
	if err := os.WriteFile(a.config.OutputPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	a.logger.Info("Results written.", "path", a.config.OutputPath)
	return nil
}
