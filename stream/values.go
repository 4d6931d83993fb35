package stream

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Comparator orders two values: negative when a < b, zero when equal,
// positive when a > b.
type Comparator func(a, b any) int

// StringOrder compares two strings for a collation.
type StringOrder func(a, b string) int

// ToFloat64 converts any Go numeric type to float64.
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// integer reports signed integers and unsigned integers that fit in int64.
func integer(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint:
		if uint64(val) <= math.MaxInt64 {
			return int64(val), true
		}
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val), true
		}
	}
	return 0, false
}

// unsigned reports unsigned integers too large for int64.
func unsigned(v any) (uint64, bool) {
	switch val := v.(type) {
	case uint:
		if uint64(val) > math.MaxInt64 {
			return uint64(val), true
		}
	case uint64:
		if val > math.MaxInt64 {
			return val, true
		}
	}
	return 0, false
}

// compareNumbers compares integers exactly and falls back to float64 when
// either side is a float.
func compareNumbers(a, b any) int {
	ai, aInt := integer(a)
	bi, bInt := integer(b)
	if aInt && bInt {
		return cmp.Compare(ai, bi)
	}
	au, aBig := unsigned(a)
	bu, bBig := unsigned(b)
	switch {
	case aBig && bBig:
		return cmp.Compare(au, bu)
	case aBig && bInt:
		return 1
	case aInt && bBig:
		return -1
	}
	an, _ := ToFloat64(a)
	bn, _ := ToFloat64(b)
	return cmp.Compare(an, bn)
}

// typeRank keeps mixed-type orderings total: nulls first, then booleans,
// numbers, strings, times and anything else.
func typeRank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := v.(bool); ok {
		return 1
	}
	if _, ok := ToFloat64(v); ok {
		return 2
	}
	switch v.(type) {
	case string:
		return 3
	case time.Time:
		return 4
	}
	return 5
}

// Compare orders values of the same family the natural way and values of
// different families by family. Nulls sort first.
func Compare(a, b any) int {
	return Collated(strings.Compare)(a, b)
}

// Collated returns a Comparator whose strings are ordered by order.
func Collated(order StringOrder) Comparator {
	return func(a, b any) int {
		ra, rb := typeRank(a), typeRank(b)
		if ra != rb {
			return ra - rb
		}

		switch ra {
		case 0:
			return 0
		case 1:
			ab, bb := a.(bool), b.(bool)
			if ab == bb {
				return 0
			}
			if !ab {
				return -1 // false < true
			}
			return 1
		case 2:
			return compareNumbers(a, b)
		case 3:
			return order(a.(string), b.(string))
		case 4:
			return a.(time.Time).Compare(b.(time.Time))
		}
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

// Key encodes a tuple of values into a string usable as a map key. Integers
// encode exactly, and a float equal to an integer within ±2^53 encodes as
// that integer, so numbers that compare equal share a key regardless of
// their Go type.
func Key(values []any) string {
	var key strings.Builder
	for i, v := range values {
		if i > 0 {
			key.WriteString("\x00|\x00")
		}
		writeKey(&key, v)
	}
	return key.String()
}

func writeKey(key *strings.Builder, v any) {
	if v == nil {
		key.WriteString("n")
		return
	}
	if i, ok := integer(v); ok {
		key.WriteString("i:")
		key.WriteString(strconv.FormatInt(i, 10))
		return
	}
	if u, ok := unsigned(v); ok {
		key.WriteString("i:")
		key.WriteString(strconv.FormatUint(u, 10))
		return
	}
	if f, ok := ToFloat64(v); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			key.WriteString("i:")
			key.WriteString(strconv.FormatInt(int64(f), 10))
			return
		}
		key.WriteString("f:")
		key.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		return
	}
	switch val := v.(type) {
	case string:
		key.WriteString("s:")
		key.WriteString(val)
	case bool:
		key.WriteString("b:")
		key.WriteString(strconv.FormatBool(val))
	case time.Time:
		key.WriteString("t:")
		key.WriteString(val.UTC().Format(time.RFC3339Nano))
	default:
		key.WriteString(fmt.Sprintf("%T:%#v", v, v))
	}
}
