package eval

import (
	"fmt"
	"math"
	"strings"
)

// strictFunc marks builtins that return NULL as soon as any argument is NULL.
type strictFunc struct{}

func (strictFunc) nullInNullOut() {}

func isStrict(f Function) bool {
	_, ok := f.(interface{ nullInNullOut() })
	return ok
}

func builtinFunctions() []Function {
	return append([]Function{
		// String functions
		&UpperFunc{}, &LowerFunc{}, &ConcatFunc{}, &LengthFunc{},
		&TrimFunc{}, &LTrimFunc{}, &RTrimFunc{}, &SubstringFunc{},
		&ReplaceFunc{}, &OverlayFunc{},

		// Math functions
		&AbsFunc{}, &RoundFunc{}, &FloorFunc{}, &CeilFunc{}, &ModFunc{},

		// Conversion and conditional functions
		&CastFunc{}, &NullIfFunc{}, &CoalesceFunc{},
	}, dateFunctions()...)
}

// String Functions

// UpperFunc converts a string to uppercase
type UpperFunc struct{ strictFunc }

func (f *UpperFunc) Name() string  { return "UPPER" }
func (f *UpperFunc) MinArity() int { return 1 }
func (f *UpperFunc) MaxArity() int { return 1 }
func (f *UpperFunc) Evaluate(args []any) (any, error) {
	str, err := valueToString(args[0])
	if err != nil {
		return nil, fmt.Errorf("UPPER: %w", err)
	}
	return strings.ToUpper(str), nil
}

// LowerFunc converts a string to lowercase
type LowerFunc struct{ strictFunc }

func (f *LowerFunc) Name() string  { return "LOWER" }
func (f *LowerFunc) MinArity() int { return 1 }
func (f *LowerFunc) MaxArity() int { return 1 }
func (f *LowerFunc) Evaluate(args []any) (any, error) {
	str, err := valueToString(args[0])
	if err != nil {
		return nil, fmt.Errorf("LOWER: %w", err)
	}
	return strings.ToLower(str), nil
}

// ConcatFunc concatenates its arguments, skipping NULLs
type ConcatFunc struct{}

func (f *ConcatFunc) Name() string  { return "CONCAT" }
func (f *ConcatFunc) MinArity() int { return 1 }
func (f *ConcatFunc) MaxArity() int { return -1 } // variadic
func (f *ConcatFunc) Evaluate(args []any) (any, error) {
	var builder strings.Builder
	for i, arg := range args {
		if arg == nil {
			continue
		}
		str, err := valueToString(arg)
		if err != nil {
			return nil, fmt.Errorf("CONCAT: argument %d: %w", i+1, err)
		}
		builder.WriteString(str)
	}
	return builder.String(), nil
}

// LengthFunc returns the length of a string in characters
type LengthFunc struct{ strictFunc }

func (f *LengthFunc) Name() string  { return "LENGTH" }
func (f *LengthFunc) MinArity() int { return 1 }
func (f *LengthFunc) MaxArity() int { return 1 }
func (f *LengthFunc) Evaluate(args []any) (any, error) {
	str, err := valueToString(args[0])
	if err != nil {
		return nil, fmt.Errorf("LENGTH: %w", err)
	}
	return int64(len([]rune(str))), nil
}

// TrimFunc implements TRIM([LEADING|TRAILING|BOTH] [chars FROM] s). Its
// arguments are the mode, the string and optionally the characters to strip.
type TrimFunc struct{ strictFunc }

func (f *TrimFunc) Name() string  { return "TRIM" }
func (f *TrimFunc) MinArity() int { return 2 }
func (f *TrimFunc) MaxArity() int { return 3 }
func (f *TrimFunc) Evaluate(args []any) (any, error) {
	mode, err := valueToString(args[0])
	if err != nil {
		return nil, fmt.Errorf("TRIM: mode: %w", err)
	}
	str, err := valueToString(args[1])
	if err != nil {
		return nil, fmt.Errorf("TRIM: %w", err)
	}
	chars := " \t\n\r"
	if len(args) == 3 {
		if chars, err = valueToString(args[2]); err != nil {
			return nil, fmt.Errorf("TRIM: characters: %w", err)
		}
	}

	switch strings.ToUpper(mode) {
	case "LEADING":
		return strings.TrimLeft(str, chars), nil
	case "TRAILING":
		return strings.TrimRight(str, chars), nil
	case "BOTH":
		return strings.Trim(str, chars), nil
	default:
		return nil, fmt.Errorf("TRIM: unknown mode %q", mode)
	}
}

// LTrimFunc trims whitespace from the left side of a string
type LTrimFunc struct{ strictFunc }

func (f *LTrimFunc) Name() string  { return "LTRIM" }
func (f *LTrimFunc) MinArity() int { return 1 }
func (f *LTrimFunc) MaxArity() int { return 1 }
func (f *LTrimFunc) Evaluate(args []any) (any, error) {
	str, err := valueToString(args[0])
	if err != nil {
		return nil, fmt.Errorf("LTRIM: %w", err)
	}
	return strings.TrimLeft(str, " \t\n\r"), nil
}

// RTrimFunc trims whitespace from the right side of a string
type RTrimFunc struct{ strictFunc }

func (f *RTrimFunc) Name() string  { return "RTRIM" }
func (f *RTrimFunc) MinArity() int { return 1 }
func (f *RTrimFunc) MaxArity() int { return 1 }
func (f *RTrimFunc) Evaluate(args []any) (any, error) {
	str, err := valueToString(args[0])
	if err != nil {
		return nil, fmt.Errorf("RTRIM: %w", err)
	}
	return strings.TrimRight(str, " \t\n\r"), nil
}

// SubstringFunc extracts a substring (1-indexed, SQL style)
type SubstringFunc struct{ strictFunc }

func (f *SubstringFunc) Name() string  { return "SUBSTRING" }
func (f *SubstringFunc) MinArity() int { return 2 }
func (f *SubstringFunc) MaxArity() int { return 3 }
func (f *SubstringFunc) Evaluate(args []any) (any, error) {
	str, err := valueToString(args[0])
	if err != nil {
		return nil, fmt.Errorf("SUBSTRING: %w", err)
	}
	runes := []rune(str)

	start, err := valueToInt(args[1])
	if err != nil {
		return nil, fmt.Errorf("SUBSTRING: start: %w", err)
	}
	startIdx := int(start) - 1 // SQL uses 1-based indexing
	if startIdx < 0 {
		startIdx = 0
	}
	if startIdx >= len(runes) {
		return "", nil
	}

	endIdx := len(runes)
	if len(args) == 3 {
		length, err := valueToInt(args[2])
		if err != nil {
			return nil, fmt.Errorf("SUBSTRING: length: %w", err)
		}
		if length < 0 {
			return "", nil
		}
		endIdx = min(startIdx+int(length), len(runes))
	}
	return string(runes[startIdx:endIdx]), nil
}

// ReplaceFunc replaces occurrences of a substring
type ReplaceFunc struct{ strictFunc }

func (f *ReplaceFunc) Name() string  { return "REPLACE" }
func (f *ReplaceFunc) MinArity() int { return 3 }
func (f *ReplaceFunc) MaxArity() int { return 3 }
func (f *ReplaceFunc) Evaluate(args []any) (any, error) {
	str, err := valueToString(args[0])
	if err != nil {
		return nil, fmt.Errorf("REPLACE: %w", err)
	}
	old, err := valueToString(args[1])
	if err != nil {
		return nil, fmt.Errorf("REPLACE: old: %w", err)
	}
	repl, err := valueToString(args[2])
	if err != nil {
		return nil, fmt.Errorf("REPLACE: new: %w", err)
	}
	return strings.ReplaceAll(str, old, repl), nil
}

// OverlayFunc implements OVERLAY(s PLACING r FROM p [FOR n]). Without FOR,
// as many characters as r holds are replaced.
type OverlayFunc struct{ strictFunc }

func (f *OverlayFunc) Name() string  { return "OVERLAY" }
func (f *OverlayFunc) MinArity() int { return 3 }
func (f *OverlayFunc) MaxArity() int { return 4 }
func (f *OverlayFunc) Evaluate(args []any) (any, error) {
	str, err := valueToString(args[0])
	if err != nil {
		return nil, fmt.Errorf("OVERLAY: %w", err)
	}
	repl, err := valueToString(args[1])
	if err != nil {
		return nil, fmt.Errorf("OVERLAY: placing: %w", err)
	}
	pos, err := valueToInt(args[2])
	if err != nil {
		return nil, fmt.Errorf("OVERLAY: from: %w", err)
	}

	runes, with := []rune(str), []rune(repl)
	count := int64(len(with))
	if len(args) == 4 {
		if count, err = valueToInt(args[3]); err != nil {
			return nil, fmt.Errorf("OVERLAY: for: %w", err)
		}
	}

	start := clamp(int(pos)-1, 0, len(runes))
	end := clamp(start+int(count), start, len(runes))
	return string(runes[:start]) + repl + string(runes[end:]), nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Math Functions

// AbsFunc returns the absolute value of a number
type AbsFunc struct{ strictFunc }

func (f *AbsFunc) Name() string  { return "ABS" }
func (f *AbsFunc) MinArity() int { return 1 }
func (f *AbsFunc) MaxArity() int { return 1 }
func (f *AbsFunc) Evaluate(args []any) (any, error) {
	if i, ok := args[0].(int64); ok {
		if i < 0 {
			return -i, nil
		}
		return i, nil
	}
	num, err := valueToNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("ABS: %w", err)
	}
	return math.Abs(num), nil
}

// RoundFunc rounds a number to the specified number of decimal places
type RoundFunc struct{ strictFunc }

func (f *RoundFunc) Name() string  { return "ROUND" }
func (f *RoundFunc) MinArity() int { return 1 }
func (f *RoundFunc) MaxArity() int { return 2 }
func (f *RoundFunc) Evaluate(args []any) (any, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("ROUND: %w", err)
	}

	// Default to 0 decimal places
	decimals := 0.0
	if len(args) == 2 {
		decimals, err = valueToNumber(args[1])
		if err != nil {
			return nil, fmt.Errorf("ROUND: decimals argument: %w", err)
		}
	}

	multiplier := math.Pow(10, decimals)
	return math.Round(num*multiplier) / multiplier, nil
}

// FloorFunc returns the largest integer less than or equal to a number
type FloorFunc struct{ strictFunc }

func (f *FloorFunc) Name() string  { return "FLOOR" }
func (f *FloorFunc) MinArity() int { return 1 }
func (f *FloorFunc) MaxArity() int { return 1 }
func (f *FloorFunc) Evaluate(args []any) (any, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("FLOOR: %w", err)
	}
	return math.Floor(num), nil
}

// CeilFunc returns the smallest integer greater than or equal to a number
type CeilFunc struct{ strictFunc }

func (f *CeilFunc) Name() string  { return "CEIL" }
func (f *CeilFunc) MinArity() int { return 1 }
func (f *CeilFunc) MaxArity() int { return 1 }
func (f *CeilFunc) Evaluate(args []any) (any, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("CEIL: %w", err)
	}
	return math.Ceil(num), nil
}

// ModFunc returns the remainder of division
type ModFunc struct{ strictFunc }

func (f *ModFunc) Name() string  { return "MOD" }
func (f *ModFunc) MinArity() int { return 2 }
func (f *ModFunc) MaxArity() int { return 2 }
func (f *ModFunc) Evaluate(args []any) (any, error) {
	return arithmetic("%", args[0], args[1])
}

// Conversion and conditional functions

// CastFunc converts a value to a SQL type. Its second argument is the type name.
type CastFunc struct{}

func (f *CastFunc) Name() string  { return "CAST" }
func (f *CastFunc) MinArity() int { return 2 }
func (f *CastFunc) MaxArity() int { return 2 }
func (f *CastFunc) Evaluate(args []any) (any, error) {
	typeName, err := valueToString(args[1])
	if err != nil {
		return nil, fmt.Errorf("CAST: type: %w", err)
	}
	v, err := castTo(args[0], typeName)
	if err != nil {
		return nil, fmt.Errorf("CAST: %w", err)
	}
	return v, nil
}

// NullIfFunc returns NULL when both arguments are equal, else the first
type NullIfFunc struct{}

func (f *NullIfFunc) Name() string  { return "NULLIF" }
func (f *NullIfFunc) MinArity() int { return 2 }
func (f *NullIfFunc) MaxArity() int { return 2 }
func (f *NullIfFunc) Evaluate(args []any) (any, error) {
	if args[0] != nil && args[1] != nil {
		if eq, err := equal(args[0], args[1]); err == nil && eq {
			return nil, nil
		}
	}
	return args[0], nil
}

// CoalesceFunc returns the first non-NULL argument. Arguments whose
// evaluation failed arrive as NULL and are skipped.
type CoalesceFunc struct{}

func (f *CoalesceFunc) Name() string  { return "COALESCE" }
func (f *CoalesceFunc) MinArity() int { return 1 }
func (f *CoalesceFunc) MaxArity() int { return -1 }
func (f *CoalesceFunc) Evaluate(args []any) (any, error) {
	for _, arg := range args {
		if arg != nil {
			return arg, nil
		}
	}
	return nil, nil
}
