package eval

import (
	"fmt"
	"strings"
	"time"
)

// dateUnits maps the unit names accepted by the date functions to
// truncation and extraction rules.
var dateUnits = map[string]struct {
	trunc func(t time.Time) time.Time
	part  func(t time.Time) int
}{
	"year": {
		trunc: func(t time.Time) time.Time { return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location()) },
		part:  func(t time.Time) int { return t.Year() },
	},
	"month": {
		trunc: func(t time.Time) time.Time { return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()) },
		part:  func(t time.Time) int { return int(t.Month()) },
	},
	"day": {
		trunc: func(t time.Time) time.Time { return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()) },
		part:  func(t time.Time) int { return t.Day() },
	},
	"hour": {
		trunc: func(t time.Time) time.Time { return t.Truncate(time.Hour) },
		part:  func(t time.Time) int { return t.Hour() },
	},
	"minute": {
		trunc: func(t time.Time) time.Time { return t.Truncate(time.Minute) },
		part:  func(t time.Time) int { return t.Minute() },
	},
	"second": {
		trunc: func(t time.Time) time.Time { return t.Truncate(time.Second) },
		part:  func(t time.Time) int { return t.Second() },
	},
}

func dateUnit(fn string, v any) (string, error) {
	unit, err := valueToString(v)
	if err != nil {
		return "", fmt.Errorf("%s: unit: %w", fn, err)
	}
	unit = strings.ToLower(unit)
	if _, ok := dateUnits[unit]; !ok {
		return "", fmt.Errorf("%s: invalid unit: %s", fn, unit)
	}
	return unit, nil
}

// NowFunc returns the current timestamp
type NowFunc struct{}

func (f *NowFunc) Name() string  { return "NOW" }
func (f *NowFunc) MinArity() int { return 0 }
func (f *NowFunc) MaxArity() int { return 0 }
func (f *NowFunc) Evaluate([]any) (any, error) {
	return time.Now(), nil
}

// DateTruncFunc truncates a timestamp to a unit: DATE_TRUNC('month', d)
type DateTruncFunc struct{ strictFunc }

func (f *DateTruncFunc) Name() string  { return "DATE_TRUNC" }
func (f *DateTruncFunc) MinArity() int { return 2 }
func (f *DateTruncFunc) MaxArity() int { return 2 }
func (f *DateTruncFunc) Evaluate(args []any) (any, error) {
	unit, err := dateUnit("DATE_TRUNC", args[0])
	if err != nil {
		return nil, err
	}
	date, err := parseDate(args[1])
	if err != nil {
		return nil, fmt.Errorf("DATE_TRUNC: %w", err)
	}
	return dateUnits[unit].trunc(date), nil
}

// DatePartFunc extracts a field of a timestamp: DATE_PART('year', d)
type DatePartFunc struct{ strictFunc }

func (f *DatePartFunc) Name() string  { return "DATE_PART" }
func (f *DatePartFunc) MinArity() int { return 2 }
func (f *DatePartFunc) MaxArity() int { return 2 }
func (f *DatePartFunc) Evaluate(args []any) (any, error) {
	unit, err := dateUnit("DATE_PART", args[0])
	if err != nil {
		return nil, err
	}
	date, err := parseDate(args[1])
	if err != nil {
		return nil, fmt.Errorf("DATE_PART: %w", err)
	}
	return int64(dateUnits[unit].part(date)), nil
}

// datePartFunc is a one-argument shorthand for DATE_PART, such as YEAR(d).
type datePartFunc struct {
	strictFunc
	unit string
}

func (f *datePartFunc) Name() string  { return strings.ToUpper(f.unit) }
func (f *datePartFunc) MinArity() int { return 1 }
func (f *datePartFunc) MaxArity() int { return 1 }
func (f *datePartFunc) Evaluate(args []any) (any, error) {
	date, err := parseDate(args[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	return int64(dateUnits[f.unit].part(date)), nil
}

// DateAddFunc shifts a timestamp: DATE_ADD(d, 3, 'day'). A negative amount
// moves backwards.
type DateAddFunc struct {
	strictFunc
	sign int
}

func (f *DateAddFunc) Name() string {
	if f.sign < 0 {
		return "DATE_SUB"
	}
	return "DATE_ADD"
}
func (f *DateAddFunc) MinArity() int { return 3 }
func (f *DateAddFunc) MaxArity() int { return 3 }
func (f *DateAddFunc) Evaluate(args []any) (any, error) {
	date, err := parseDate(args[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	amount, err := valueToInt(args[1])
	if err != nil {
		return nil, fmt.Errorf("%s: amount: %w", f.Name(), err)
	}
	unit, err := dateUnit(f.Name(), args[2])
	if err != nil {
		return nil, err
	}
	if amount > 1<<30 || amount < -(1<<30) {
		return nil, fmt.Errorf("%s: amount out of valid range", f.Name())
	}
	n := int(amount)
	if f.sign < 0 {
		n = -n
	}

	switch unit {
	case "year":
		return date.AddDate(n, 0, 0), nil
	case "month":
		return date.AddDate(0, n, 0), nil
	case "day":
		return date.AddDate(0, 0, n), nil
	case "hour":
		return date.Add(time.Duration(n) * time.Hour), nil
	case "minute":
		return date.Add(time.Duration(n) * time.Minute), nil
	default:
		return date.Add(time.Duration(n) * time.Second), nil
	}
}

// DateDiffFunc returns the whole days from the second date to the first.
type DateDiffFunc struct{ strictFunc }

func (f *DateDiffFunc) Name() string  { return "DATE_DIFF" }
func (f *DateDiffFunc) MinArity() int { return 2 }
func (f *DateDiffFunc) MaxArity() int { return 2 }
func (f *DateDiffFunc) Evaluate(args []any) (any, error) {
	date1, err := parseDate(args[0])
	if err != nil {
		return nil, fmt.Errorf("DATE_DIFF: first date: %w", err)
	}
	date2, err := parseDate(args[1])
	if err != nil {
		return nil, fmt.Errorf("DATE_DIFF: second date: %w", err)
	}
	// Partial days count as zero.
	return int64(date1.Sub(date2).Hours() / 24), nil
}

func dateFunctions() []Function {
	return []Function{
		&NowFunc{}, &DateTruncFunc{}, &DatePartFunc{},
		&DateAddFunc{sign: 1}, &DateAddFunc{sign: -1}, &DateDiffFunc{},
		&datePartFunc{unit: "year"}, &datePartFunc{unit: "month"}, &datePartFunc{unit: "day"},
	}
}
