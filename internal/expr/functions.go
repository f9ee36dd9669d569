package expr

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vk/formulagrid/internal/value"
)

// maxPrecision bounds the precision argument of ROUND, CEIL and FLOOR.
// Beyond 15 decimal digits a float64 carries no further information.
const maxPrecision = 15

type function struct {
	minArgs int
	maxArgs int // -1 means unbounded
	impl    func(name string, args []value.Value) (value.Value, error)
}

var catalogue = map[string]function{
	"MAX":                  {1, -1, fnExtreme(1)},
	"MIN":                  {1, -1, fnExtreme(-1)},
	"ROUND":                {1, 2, fnRound(math.Round)},
	"CEIL":                 {1, 2, fnRound(math.Ceil)},
	"FLOOR":                {1, 2, fnRound(math.Floor)},
	"EXP":                  {1, 1, fnExp},
	"DAY":                  {1, 1, fnDatePart(func(t time.Time) int { return t.Day() })},
	"MONTH":                {1, 1, fnDatePart(func(t time.Time) int { return int(t.Month()) })},
	"YEAR":                 {1, 1, fnDatePart(func(t time.Time) int { return t.Year() })},
	"DATE":                 {3, 3, fnDate},
	"SUBSTR":               {3, 3, fnSubstr},
	"ADD_DAYS":             {2, 2, fnAddDays},
	"GET_DIFF_DAYS":        {2, 2, fnDateDiff(value.DaysBetween)},
	"DIFFERENCE_IN_MONTHS": {2, 2, fnDateDiff(value.MonthsBetween)},
	"PADDED_STRING":        {3, 3, fnPaddedString},
}

// IsFunction reports whether name is in the built-in catalogue.
func IsFunction(name string) bool {
	_, ok := catalogue[name]
	return ok
}

// Functions lists the catalogue names in sorted order.
func Functions() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func call(n *Call, env Env) (value.Value, error) {
	fn, ok := catalogue[n.Name]
	if !ok {
		return value.Value{}, Errorf(UnknownFunction, "%s", n.Name)
	}
	if len(n.Args) < fn.minArgs || (fn.maxArgs >= 0 && len(n.Args) > fn.maxArgs) {
		return value.Value{}, Errorf(ArgumentError, "%s takes %s, got %d", n.Name, arity(fn), len(n.Args))
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Evaluate(a, env)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	return fn.impl(n.Name, args)
}

func arity(fn function) string {
	switch {
	case fn.maxArgs < 0:
		return fmt.Sprintf("at least %d argument(s)", fn.minArgs)
	case fn.minArgs == fn.maxArgs:
		return fmt.Sprintf("%d argument(s)", fn.minArgs)
	default:
		return fmt.Sprintf("%d or %d arguments", fn.minArgs, fn.maxArgs)
	}
}

func argTypeError(name string, pos int, want value.Kind, got value.Value) error {
	return Errorf(ArgumentError, "%s argument %d must be %s, got %s", name, pos+1, want, got.Kind())
}

func numberArg(name string, args []value.Value, pos int) (float64, error) {
	f, ok := args[pos].AsNumber()
	if !ok {
		return 0, argTypeError(name, pos, value.Number, args[pos])
	}
	return f, nil
}

// intArg accepts a Number with no fractional part that fits in 32 bits.
func intArg(name string, args []value.Value, pos int) (int, error) {
	f, err := numberArg(name, args, pos)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, Errorf(ArgumentError, "%s argument %d must be an integer, got %s", name, pos+1, value.FormatNumber(f))
	}
	return int(f), nil
}

func textArg(name string, args []value.Value, pos int) (string, error) {
	s, ok := args[pos].AsText()
	if !ok {
		return "", argTypeError(name, pos, value.Text, args[pos])
	}
	return s, nil
}

func dateArg(name string, args []value.Value, pos int) (time.Time, error) {
	t, ok := args[pos].AsDate()
	if !ok {
		return time.Time{}, argTypeError(name, pos, value.Date, args[pos])
	}
	return t, nil
}

// fnExtreme returns MAX for sign 1 and MIN for sign -1.
func fnExtreme(sign float64) func(string, []value.Value) (value.Value, error) {
	return func(name string, args []value.Value) (value.Value, error) {
		best, err := numberArg(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		for i := 1; i < len(args); i++ {
			f, err := numberArg(name, args, i)
			if err != nil {
				return value.Value{}, err
			}
			if (f-best)*sign > 0 {
				best = f
			}
		}
		return value.NumberVal(best), nil
	}
}

func fnRound(rounder func(float64) float64) func(string, []value.Value) (value.Value, error) {
	return func(name string, args []value.Value) (value.Value, error) {
		x, err := numberArg(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		precision := 0
		if len(args) == 2 {
			if precision, err = intArg(name, args, 1); err != nil {
				return value.Value{}, err
			}
			if precision > maxPrecision || precision < -maxPrecision {
				return value.Value{}, Errorf(ArgumentError, "%s precision must be between %d and %d", name, -maxPrecision, maxPrecision)
			}
		}
		if precision == 0 || math.IsInf(x, 0) || math.IsNaN(x) {
			return value.NumberVal(rounder(x)), nil
		}
		if precision < 0 {
			scale := math.Pow10(-precision)
			return value.NumberVal(rounder(x/scale) * scale), nil
		}
		scale := math.Pow10(precision)
		return value.NumberVal(rounder(x*scale) / scale), nil
	}
}

func fnExp(name string, args []value.Value) (value.Value, error) {
	x, err := numberArg(name, args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.NumberVal(math.Exp(x)), nil
}

func fnDatePart(part func(time.Time) int) func(string, []value.Value) (value.Value, error) {
	return func(name string, args []value.Value) (value.Value, error) {
		t, err := dateArg(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NumberVal(float64(part(t))), nil
	}
}

func fnDate(name string, args []value.Value) (value.Value, error) {
	var parts [3]int
	for i := range parts {
		p, err := intArg(name, args, i)
		if err != nil {
			return value.Value{}, err
		}
		parts[i] = p
	}
	if parts[1] < 1 || parts[1] > 12 {
		return value.Value{}, Errorf(ArgumentError, "%s month must be between 1 and 12, got %d", name, parts[1])
	}
	d, err := value.DateVal(parts[0], time.Month(parts[1]), parts[2])
	if err != nil {
		return value.Value{}, dateError(err)
	}
	return d, nil
}

func dateError(err error) error {
	if errors.Is(err, value.ErrDateOutOfRange) {
		return &Error{Kind: DateOverflow, Cause: err}
	}
	return &Error{Kind: ArgumentError, Cause: err}
}

func fnSubstr(name string, args []value.Value) (value.Value, error) {
	s, err := textArg(name, args, 0)
	if err != nil {
		return value.Value{}, err
	}
	start, err := intArg(name, args, 1)
	if err != nil {
		return value.Value{}, err
	}
	length, err := intArg(name, args, 2)
	if err != nil {
		return value.Value{}, err
	}
	runes := []rune(s)
	if start < 0 || length < 0 || start+length > len(runes) {
		return value.Value{}, Errorf(ArgumentError, "%s(%q, %d, %d) is out of range for a text of length %d", name, s, start, length, len(runes))
	}
	return value.TextVal(string(runes[start : start+length])), nil
}

func fnAddDays(name string, args []value.Value) (value.Value, error) {
	if _, err := dateArg(name, args, 0); err != nil {
		return value.Value{}, err
	}
	n, err := intArg(name, args, 1)
	if err != nil {
		return value.Value{}, err
	}
	d, err := args[0].AddDays(n)
	if err != nil {
		return value.Value{}, dateError(err)
	}
	return d, nil
}

func fnDateDiff(diff func(a, b time.Time) int) func(string, []value.Value) (value.Value, error) {
	return func(name string, args []value.Value) (value.Value, error) {
		a, err := dateArg(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		b, err := dateArg(name, args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.NumberVal(float64(diff(a, b))), nil
	}
}

// fnPaddedString left-pads the text form of any value to width runes.
func fnPaddedString(name string, args []value.Value) (value.Value, error) {
	width, err := intArg(name, args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if width < 0 {
		return value.Value{}, Errorf(ArgumentError, "%s width must not be negative, got %d", name, width)
	}
	pad, err := textArg(name, args, 2)
	if err != nil {
		return value.Value{}, err
	}
	if utf8.RuneCountInString(pad) != 1 {
		return value.Value{}, Errorf(ArgumentError, "%s pad must be a single character, got %q", name, pad)
	}
	s := args[0].String()
	if n := utf8.RuneCountInString(s); n < width {
		s = strings.Repeat(pad, width-n) + s
	}
	return value.TextVal(s), nil
}
