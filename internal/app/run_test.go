package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulagrid/internal/depgraph"
	"github.com/vk/formulagrid/internal/expr"
	"github.com/vk/formulagrid/internal/value"
)

const bakeryHCL = `
entity "dough" {
  description = "Rye dough for one batch"

  output "flour" {
    value = 500
  }
  output "water" {
    value = 350
  }
  output "weight" {
    value = dough.flour + dough.water
  }
}

entity "due" {
  value = ADD_DAYS(DATE(2024, 2, 28), 2)
}

entity "ratio" {
  value = 1 / 0
}

entity "scaled" {
  value = ratio * 2
}
`

const bakeryYAML = `
entities:
  - name: loaf
    value: GET_OUTPUT_FROM(dough, "weight") / 50
  - name: size
    value: 'loaf > 15 ? "large" : "small"'
`

func writeBakery(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	WriteEntityFile(t, dir, "dough.hcl", bakeryHCL)
	WriteEntityFile(t, dir, "nested/loaf.yaml", bakeryYAML)
	return dir
}

func TestRun_EndToEnd(t *testing.T) {
	// --- Arrange ---
	dir := writeBakery(t)
	metricsPath := filepath.Join(t.TempDir(), "formulagrid.prom")
	cfg := DefaultConfig()
	cfg.EntityPaths = []string{dir}
	cfg.OutputFormat = "json"
	cfg.MetricsPath = metricsPath
	a, out, logs := SetupAppTest(t, cfg)

	// --- Act ---
	report, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, value.NumberVal(850), report.Results["dough.weight"].Value)
	assert.Equal(t, value.NumberVal(17), report.Results["loaf"].Value)
	assert.Equal(t, value.TextVal("large"), report.Results["size"].Value)
	assert.ErrorIs(t, report.Results["ratio"].Err, expr.ErrDivisionByZero)
	assert.ErrorIs(t, report.Results["scaled"].Err, expr.ErrUnresolvedDependency)
	assert.Same(t, report, a.LastReport())

	var doc struct {
		Failed  int `json:"failed"`
		Results map[string]struct {
			Status string `json:"status"`
			Value  any    `json:"value"`
			Kind   string `json:"kind"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out.String()), &doc))
	assert.Equal(t, 2, doc.Failed)
	assert.Equal(t, 17.0, doc.Results["loaf"].Value)
	assert.Equal(t, "2024-03-01", doc.Results["due"].Value)
	assert.Equal(t, "DivisionByZero", doc.Results["ratio"].Kind)
	assert.Equal(t, "UnresolvedDependency", doc.Results["scaled"].Kind)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "formulagrid_runs_total 1")

	assert.Contains(t, logs.String(), "Evaluation run finished.")
}

func TestRun_TextOutputToFile(t *testing.T) {
	dir := writeBakery(t)
	outPath := filepath.Join(t.TempDir(), "results.txt")
	cfg := DefaultConfig()
	cfg.EntityPaths = []string{dir}
	cfg.OutputPath = outPath
	a, out, _ := SetupAppTest(t, cfg)

	_, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, out.String())
	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "large")
	assert.Contains(t, string(written), "8 nodes, 2 failed")
}

func TestRun_FailOnError(t *testing.T) {
	dir := writeBakery(t)
	cfg := DefaultConfig()
	cfg.EntityPaths = []string{dir}
	cfg.FailOnError = true
	a, out, _ := SetupAppTest(t, cfg)

	report, err := a.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodesFailed)
	assert.ErrorContains(t, err, "2 of 8")
	require.NotNil(t, report)
	assert.NotEmpty(t, out.String(), "the report is written even when the run fails")
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EntityPaths = []string{filepath.Join(t.TempDir(), "absent")}
		a, _, _ := SetupAppTest(t, cfg)

		_, err := a.Run(context.Background())

		assert.ErrorContains(t, err, "failed to load entities")
	})

	t.Run("cycle", func(t *testing.T) {
		dir := t.TempDir()
		WriteEntityFile(t, dir, "cycle.hcl", `
entity "a" {
  value = b + 1
}
entity "b" {
  value = a + 1
}
`)
		cfg := DefaultConfig()
		cfg.EntityPaths = []string{dir}
		a, out, _ := SetupAppTest(t, cfg)

		report, err := a.Run(context.Background())

		require.Error(t, err)
		assert.Nil(t, report)
		assert.ErrorIs(t, err, depgraph.ErrCycleDetected)
		assert.ErrorContains(t, err, "cycle.hcl")
		assert.Empty(t, out.String())
	})
}
