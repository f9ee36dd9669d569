package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulagrid/internal/expr"
	"github.com/vk/formulagrid/internal/value"
)

// AssertValue checks that key evaluated successfully to want.
func AssertValue(t *testing.T, result *HarnessResult, key string, want value.Value) {
	t.Helper()
	require.NoError(t, result.Err, "the run should succeed")
	res, ok := result.Report.Results[key]
	require.True(t, ok, "no result for %q", key)
	require.NoError(t, res.Err, "node %q failed", key)
	assert.True(t, value.Equal(want, res.Value), "node %q: want %s, got %s", key, want, res.Value)
}

// AssertNodeFailed checks that key failed with an error of the given kind.
func AssertNodeFailed(t *testing.T, result *HarnessResult, key string, kind expr.ErrorKind) {
	t.Helper()
	require.NoError(t, result.Err, "the run should complete")
	res, ok := result.Report.Results[key]
	require.True(t, ok, "no result for %q", key)
	require.Error(t, res.Err, "node %q should have failed", key)
	assert.Equal(t, kind, expr.KindOf(res.Err), "node %q failed with %v", key, res.Err)
}

// LayerOf returns the index of the layer that contains key, or -1.
func LayerOf(result *HarnessResult, key string) int {
	for i, layer := range result.Report.Layers {
		for _, k := range layer {
			if k == key {
				return i
			}
		}
	}
	return -1
}
