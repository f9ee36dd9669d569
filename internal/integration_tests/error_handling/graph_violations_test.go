package error_handling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulagrid/internal/depgraph"
	"github.com/vk/formulagrid/internal/scheduler"
	"github.com/vk/formulagrid/internal/testutil"
)

func TestErrorHandling_CycleAcrossFormats(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"a.hcl": `
			entity "a" {
			  value = b + 1
			}
		`,
		"b.yaml": "entities:\n  - name: b\n    value: a * 2\n",
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, depgraph.ErrCycleDetected)
	assert.Nil(t, result.Report)
}

func TestErrorHandling_DuplicateKeyAcrossFiles(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"one.hcl":  "entity \"price\" {\n  value = 1\n}\n",
		"two.yaml": "entities:\n  - name: price\n    value: 2\n",
	}

	result := testutil.RunIntegrationTest(t, files)

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, depgraph.ErrDuplicateKey)
}

func TestErrorHandling_ExplicitDependenciesMustCoverReferences(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	gridHCL := `
		entity "rate" {
		  value = 0.2
		}
		entity "net" {
		  value = 100
		}
		entity "gross" {
		  depends_on = ["net"]
		  value      = net * (1 + rate)
		}
	`

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": gridHCL})

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, scheduler.ErrUndeclaredReference)
	var refErr *scheduler.ReferenceError
	require.ErrorAs(t, result.Err, &refErr)
	assert.Equal(t, "gross", refErr.Key)
	assert.Equal(t, "rate", refErr.Ref)
}

func TestErrorHandling_DuplicateEntityWithDifferentShapes(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A single-value "dough" and a "dough" with outputs would get different
	// keys; the shared entity name must still be rejected.
	files := map[string]string{
		"dough.hcl": `
			entity "dough" {
			  value = 850
			}
		`,
		"more_dough.yaml": `
entities:
  - name: dough
    outputs:
      - name: weight
        value: 900
`,
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, depgraph.ErrDuplicateKey)
	assert.ErrorContains(t, result.Err, `duplicate entity "dough", first declared at`)
	assert.ErrorContains(t, result.Err, "dough.hcl")
	assert.Nil(t, result.Report)
}
