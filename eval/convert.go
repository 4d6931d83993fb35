package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vegasq/virtsql/stream"
)

// valueToString converts a scalar value to string
func valueToString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), nil
	case float32, float64:
		return fmt.Sprintf("%v", val), nil
	case bool:
		return fmt.Sprintf("%t", val), nil
	case time.Time:
		return val.Format(time.RFC3339), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", v)
	}
}

// valueToNumber converts a value to float64, parsing numeric strings
func valueToNumber(v any) (float64, error) {
	if f, ok := stream.ToFloat64(v); ok {
		return f, nil
	}
	switch val := v.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

// valueToInt converts a value to int64, truncating fractions
func valueToInt(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := valueToNumber(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cannot convert %v to integer", f)
	}
	return int64(f), nil
}

// valueToBool accepts booleans, numbers, and strings whose first letter is
// one of YyTt (true) or NnFf (false).
func valueToBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		if val == "" {
			return false, fmt.Errorf("cannot convert empty string to boolean")
		}
		switch val[0] {
		case 'Y', 'y', 'T', 't', '1':
			return true, nil
		case 'N', 'n', 'F', 'f', '0':
			return false, nil
		}
		return false, fmt.Errorf("cannot convert %q to boolean", val)
	}
	f, err := valueToNumber(v)
	if err != nil {
		return false, fmt.Errorf("cannot convert %T to boolean", v)
	}
	return f != 0, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate parses a date or timestamp from a string or time value
func parseDate(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(val)); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as date", val)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to date", v)
	}
}

// castTo converts value to the SQL type named by typeName.
func castTo(value any, typeName string) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch strings.ToUpper(strings.Join(strings.Fields(typeName), " ")) {
	case "INT", "INTEGER", "SMALLINT", "BIGINT", "TINYINT":
		return valueToInt(value)
	case "VARCHAR", "CHAR", "TEXT", "STRING":
		return valueToString(value)
	case "FLOAT", "REAL", "DOUBLE", "DOUBLE PRECISION", "DECIMAL", "NUMERIC", "NUMBER":
		return valueToNumber(value)
	case "BOOL", "BOOLEAN":
		return valueToBool(value)
	case "DATE":
		t, err := parseDate(value)
		if err != nil {
			return nil, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
	case "DATETIME", "TIMESTAMP":
		return parseDate(value)
	default:
		return nil, fmt.Errorf("unknown type: %s", typeName)
	}
}
