// Package testutil provides the end-to-end harness shared by the integration
// test suites.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/formulagrid/internal/app"
	"github.com/vk/formulagrid/internal/scheduler"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Report    *scheduler.Report
	Err       error
	App       *app.App
}

// RunIntegrationTest writes files into a fresh directory, points a default
// configuration at it and runs the app once.
func RunIntegrationTest(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithConfig(context.Background(), t, files, app.DefaultConfig())
}

// RunIntegrationTestWithConfig is RunIntegrationTest with a caller-provided
// context and base configuration. EntityPaths is always replaced by the
// temporary directory holding files.
func RunIntegrationTestWithConfig(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()

	// 1. Write every file below a temporary root.
	//    Relative names such as "nested/b.yaml" create subdirectories.
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	// 2. Build the app against that root with debug logging captured.
	cfg.EntityPaths = []string{root}
	cfg.LogLevel = "debug"
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err, "harness config must be valid")

	out := &app.SafeBuffer{}
	logs := &app.SafeBuffer{}
	testApp, err := app.NewApp(out, logs, validated)
	require.NoError(t, err)

	// 3. Run once.
	report, runErr := testApp.Run(ctx)

	if os.Getenv("FORMULAGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}

	return &HarnessResult{
		Output:    out.String(),
		LogOutput: logs.String(),
		Report:    report,
		Err:       runErr,
		App:       testApp,
	}
}
