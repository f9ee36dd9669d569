package hcl_adapter

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulagrid/internal/expr"
	"github.com/vk/formulagrid/internal/value"
)

func parse(t *testing.T, src string) (expr.Node, hcl.Diagnostics) {
	t.Helper()
	return ParseFormula(src, "formula.hcl", hcl.InitialPos)
}

func TestParseFormula(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"conditional", `a < b ? "X" : "Y"`, `if (a < b) { "X" } else { "Y" }`},
		{"chained conditional flattens", `x > 10 ? "big" : x > 5 ? "medium" : "small"`, `if (x > 10) { "big" } else if (x > 5) { "medium" } else { "small" }`},
		{"dotted reference", `dough.weight / 50`, `(dough.weight / 50)`},
		{"power call", `POW(2, 10)`, `(2 ^ 10)`},
		{"output ref with bare entity", `GET_OUTPUT_FROM(dough, "weight")`, `GET_OUTPUT_FROM(dough, "weight")`},
		{"output ref with quoted entity", `GET_OUTPUT_FROM("dough", "weight")`, `GET_OUTPUT_FROM(dough, "weight")`},
		{"logic and parentheses", `!(a && b) || c`, `(!(a && b) || c)`},
		{"catalogue call", `MAX(1, -b, 3.5)`, `MAX(1, -b, 3.5)`},
		{"string literal", `"hello"`, `"hello"`},
		{"boolean literal", `true`, `true`},
		{"modulo and equality", `10 % 3 == 1`, `((10 % 3) == 1)`},
		{"nested calls", `PADDED_STRING(YEAR(DATE(2024, 1, 31)), 6, "0")`, `PADDED_STRING(YEAR(DATE(2024, 1, 31)), 6, "0")`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, diags := parse(t, tc.src)
			require.False(t, diags.HasErrors(), diags.Error())
			assert.Equal(t, tc.want, n.String())
		})
	}
}

func TestParseFormula_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		summary string
	}{
		{"unknown function", `NOPE(1)`, "Unknown function"},
		{"interpolation", `"a${b}"`, "Unsupported template"},
		{"index traversal", `items[0]`, "Unsupported reference"},
		{"tuple", `[1, 2]`, "Unsupported expression"},
		{"null", `null`, "Invalid literal"},
		{"power arity", `POW(2)`, "Invalid function call"},
		{"output name not a string", `GET_OUTPUT_FROM(dough, weight)`, "Invalid output name"},
		{"entity name not a name", `GET_OUTPUT_FROM(1, "weight")`, "Invalid entity name"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, diags := parse(t, tc.src)
			require.True(t, diags.HasErrors())
			assert.Nil(t, n)
			assert.Equal(t, tc.summary, diags[0].Summary)
			require.NotNil(t, diags[0].Subject)
			assert.Equal(t, "formula.hcl", diags[0].Subject.Filename)
		})
	}

	t.Run("syntax error", func(t *testing.T) {
		_, diags := parse(t, `1 +`)
		assert.True(t, diags.HasErrors())
	})
}

func TestParseFormula_EvaluatesConditional(t *testing.T) {
	n, diags := parse(t, `a < b ? "X" : "Y"`)
	require.False(t, diags.HasErrors())

	got, err := expr.Evaluate(n, expr.Env{"a": value.NumberVal(1), "b": value.NumberVal(2)})
	require.NoError(t, err)
	assert.Equal(t, value.TextVal("X"), got)

	got, err = expr.Evaluate(n, expr.Env{"a": value.NumberVal(2), "b": value.NumberVal(1)})
	require.NoError(t, err)
	assert.Equal(t, value.TextVal("Y"), got)
}

func TestTranslateSteps(t *testing.T) {
	parsed, diags := hclsyntax.ParseExpression([]byte(`[a * 2, a + 1]`), "steps.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors())

	n, diags := TranslateSteps(parsed)
	require.False(t, diags.HasErrors())
	assert.Equal(t, "{ (a * 2); (a + 1) }", n.String())

	empty, diags := hclsyntax.ParseExpression([]byte(`[]`), "steps.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors())
	_, diags = TranslateSteps(empty)
	require.True(t, diags.HasErrors())
	assert.Equal(t, "Invalid steps", diags[0].Summary)
}
