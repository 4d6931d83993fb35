package eval

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vegasq/virtsql/stream"
)

var errDivisionByZero = errors.New("division by zero")

// asInt reports integer-typed values as int64.
func asInt(v any) (int64, bool) {
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

// numeric converts numbers and numeric strings for arithmetic.
func numeric(v any) (any, bool) {
	if i, ok := asInt(v); ok {
		return i, true
	}
	if f, ok := stream.ToFloat64(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return nil, false
}

// arithmetic applies a binary operator. Callers handle NULL operands.
func arithmetic(op string, a, b any) (any, error) {
	if op == "||" {
		as, err := valueToString(a)
		if err != nil {
			return nil, err
		}
		bs, err := valueToString(b)
		if err != nil {
			return nil, err
		}
		return as + bs, nil
	}
	if as, ok := a.(string); ok && op == "+" {
		if bs, ok := b.(string); ok {
			return as + bs, nil
		}
	}

	an, aok := numeric(a)
	bn, bok := numeric(b)
	if !aok || !bok {
		return nil, fmt.Errorf("cannot apply %s to %T and %T", op, a, b)
	}

	ai, aInt := an.(int64)
	bi, bInt := bn.(int64)
	if aInt && bInt && op != "/" {
		switch op {
		case "+":
			return ai + bi, nil
		case "-":
			return ai - bi, nil
		case "*":
			return ai * bi, nil
		case "%":
			if bi == 0 {
				return nil, errDivisionByZero
			}
			return ai % bi, nil
		}
	}

	af, _ := stream.ToFloat64(an)
	bf, _ := stream.ToFloat64(bn)
	switch op {
	case "+":
		return af + bf, nil
	case "-":
		return af - bf, nil
	case "*":
		return af * bf, nil
	case "/":
		if bf == 0 {
			return nil, errDivisionByZero
		}
		return af / bf, nil
	case "%":
		if bf == 0 {
			return nil, errDivisionByZero
		}
		return math.Mod(af, bf), nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

// order compares two non-NULL values of compatible types. Integers compare
// exactly, numbers compare with numeric strings, and times with date strings.
func order(a, b any) (int, error) {
	_, aNum := stream.ToFloat64(a)
	_, bNum := stream.ToFloat64(b)
	switch {
	case aNum && bNum:
		return stream.Compare(a, b), nil
	case aNum || bNum:
		an, aok := numeric(a)
		bn, bok := numeric(b)
		if aok && bok {
			return stream.Compare(an, bn), nil
		}
	}

	switch av := a.(type) {
	case string:
		switch bv := b.(type) {
		case string:
			return strings.Compare(av, bv), nil
		case time.Time:
			at, err := parseDate(av)
			if err != nil {
				return 0, err
			}
			return at.Compare(bv), nil
		}
	case bool:
		if _, ok := b.(bool); ok {
			return stream.Compare(a, b), nil
		}
	case time.Time:
		switch bv := b.(type) {
		case time.Time:
			return av.Compare(bv), nil
		case string:
			bt, err := parseDate(bv)
			if err != nil {
				return 0, err
			}
			return av.Compare(bt), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

// equal compares two non-NULL values for equality.
func equal(a, b any) (bool, error) {
	c, err := order(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

// compareOp evaluates a comparison operator over two non-NULL values.
func compareOp(op string, a, b any) (bool, error) {
	c, err := order(a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case "=", "==":
		return c == 0, nil
	case "!=", "<>":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator %s", op)
}
