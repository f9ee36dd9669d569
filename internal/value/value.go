// Package value defines the closed set of values produced and consumed by
// formula evaluation: Number, Text, Boolean and Date.
//
// There is no implicit coercion between kinds. Operators and functions that
// accept more than one kind say so explicitly.
package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	// Invalid is the zero Kind. It marks the zero Value, which is never the
	// result of a successful evaluation.
	Invalid Kind = iota
	Number
	Text
	Boolean
	Date
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Text:
		return "text"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	default:
		return "invalid"
	}
}

var (
	// ErrKindMismatch is returned when two values of different kinds are compared.
	ErrKindMismatch = errors.New("values have different kinds")
	// ErrUnordered is returned when an ordering is requested for a kind that
	// only supports equality.
	ErrUnordered = errors.New("kind has no ordering")
)

// Value is an immutable tagged union. The zero Value is Invalid.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	date time.Time
}

// NumberVal returns a Number holding f.
func NumberVal(f float64) Value {
	return Value{kind: Number, num: f}
}

// TextVal returns a Text holding s.
func TextVal(s string) Value {
	return Value{kind: Text, str: s}
}

// BoolVal returns a Boolean holding b.
func BoolVal(b bool) Value {
	return Value{kind: Boolean, b: b}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsValid reports whether v holds one of the four variants.
func (v Value) IsValid() bool {
	return v.kind != Invalid
}

// AsNumber returns the number held by v and true, or 0 and false.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == Number
}

// AsText returns the string held by v and true, or "" and false.
func (v Value) AsText() (string, bool) {
	return v.str, v.kind == Text
}

// AsBool returns the boolean held by v and true, or false and false.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == Boolean
}

// AsDate returns the date held by v (midnight UTC) and true, or the zero
// time and false.
func (v Value) AsDate() (time.Time, bool) {
	return v.date, v.kind == Date
}

// String renders v the way it appears in text output. Numbers use the
// shortest representation that round-trips, dates use ISO 8601.
func (v Value) String() string {
	switch v.kind {
	case Number:
		return FormatNumber(v.num)
	case Text:
		return v.str
	case Boolean:
		return strconv.FormatBool(v.b)
	case Date:
		return v.date.Format(DateLayout)
	default:
		return "<invalid>"
	}
}

// GoString is used by %#v and by test failure output.
func (v Value) GoString() string {
	switch v.kind {
	case Text:
		return fmt.Sprintf("Text(%q)", v.str)
	case Invalid:
		return "Invalid()"
	default:
		kind := v.kind.String()
		return fmt.Sprintf("%s%s(%s)", strings.ToUpper(kind[:1]), kind[1:], v.String())
	}
}

// FormatNumber renders f without exponent notation and without trailing
// zeros. Infinities render as "+Inf" and "-Inf".
func FormatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Equal reports whether a and b hold the same variant and the same value.
// Values of different kinds are never equal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Number:
		return a.num == b.num
	case Text:
		return a.str == b.str
	case Boolean:
		return a.b == b.b
	case Date:
		return a.date.Equal(b.date)
	default:
		return true
	}
}

// Compare orders two values of the same kind: numeric order for Number,
// lexicographic byte order for Text and chronological order for Date. It
// returns -1, 0 or +1. Booleans have no order and yield ErrUnordered;
// values of different kinds yield ErrKindMismatch.
func Compare(a, b Value) (int, error) {
	if a.kind != b.kind {
		return 0, fmt.Errorf("%w: %s and %s", ErrKindMismatch, a.kind, b.kind)
	}
	switch a.kind {
	case Number:
		switch {
		case a.num < b.num:
			return -1, nil
		case a.num > b.num:
			return 1, nil
		}
		return 0, nil
	case Text:
		return strings.Compare(a.str, b.str), nil
	case Date:
		return a.date.Compare(b.date), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnordered, a.kind)
	}
}
