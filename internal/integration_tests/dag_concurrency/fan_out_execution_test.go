package dag_concurrency

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulagrid/internal/app"
	"github.com/vk/formulagrid/internal/testutil"
	"github.com/vk/formulagrid/internal/value"
)

func fanOutGrid(width int) string {
	var b strings.Builder
	b.WriteString("entity \"base\" {\n  value = 10\n}\n")
	for i := 0; i < width; i++ {
		fmt.Fprintf(&b, "entity \"leaf_%03d\" {\n  value = base * %d\n}\n", i, i)
	}
	return b.String()
}

// Test for: every dependent of one node lands in the same layer, and the
// results do not depend on the worker count.
func TestDagConcurrency_FanOutExecution(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	const width = 100
	files := map[string]string{"fan_out.hcl": fanOutGrid(width)}

	// --- Act ---
	var results [2]*testutil.HarnessResult
	for i, workers := range []int{1, 16} {
		cfg := app.DefaultConfig()
		cfg.Workers = workers
		results[i] = testutil.RunIntegrationTestWithConfig(context.Background(), t, files, cfg)
	}

	// --- Assert ---
	for _, result := range results {
		require.NoError(t, result.Err)
		require.Len(t, result.Report.Layers, 2)
		assert.Len(t, result.Report.Layers[1], width)
		testutil.AssertValue(t, result, "leaf_042", value.NumberVal(420))
	}
	assert.Equal(t, results[0].Report.Layers, results[1].Report.Layers)
	for key, res := range results[0].Report.Results {
		assert.True(t, value.Equal(res.Value, results[1].Report.Results[key].Value), "result of %s differs", key)
	}
}
