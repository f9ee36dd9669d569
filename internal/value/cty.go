package value

import (
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"
)

// FromCty converts a known, non-null primitive cty.Value into a Value.
// Dates have no cty counterpart; they arrive as strings and stay Text.
func FromCty(v cty.Value) (Value, error) {
	if v.IsNull() {
		return Value{}, fmt.Errorf("null values are not supported")
	}
	if !v.IsKnown() {
		return Value{}, fmt.Errorf("unknown values are not supported")
	}
	switch v.Type() {
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return NumberVal(f), nil
	case cty.String:
		return TextVal(v.AsString()), nil
	case cty.Bool:
		return BoolVal(v.True()), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %s", v.Type().FriendlyName())
	}
}

// ToCty converts v into its cty equivalent. Dates become strings in
// DateLayout. NaN has no cty representation and becomes the string "NaN".
func ToCty(v Value) cty.Value {
	switch v.kind {
	case Number:
		switch {
		case math.IsNaN(v.num):
			return cty.StringVal("NaN")
		case math.IsInf(v.num, 1):
			return cty.PositiveInfinity
		case math.IsInf(v.num, -1):
			return cty.NegativeInfinity
		}
		return cty.NumberFloatVal(v.num)
	case Text:
		return cty.StringVal(v.str)
	case Boolean:
		return cty.BoolVal(v.b)
	case Date:
		return cty.StringVal(v.date.Format(DateLayout))
	default:
		return cty.NullVal(cty.DynamicPseudoType)
	}
}
