package workflow

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cascadeflow/cascade/pkg/state"
)

// Operator compares a condition's subject with its value. Both symbolic
// and named forms are accepted; named aliases normalize to the symbolic
// operator at construction.
type Operator string

const (
	OpEqual          Operator = "=="
	OpStrictEqual    Operator = "==="
	OpNotEqual       Operator = "!="
	OpStrictNotEqual Operator = "!=="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
)

var operatorAliases = map[string]Operator{
	"==":  OpEqual,
	"eq":  OpEqual,
	"===": OpStrictEqual,
	"seq": OpStrictEqual,
	"!=":  OpNotEqual,
	"ne":  OpNotEqual,
	"!==": OpStrictNotEqual,
	"sne": OpStrictNotEqual,
	">":   OpGreater,
	"gt":  OpGreater,
	">=":  OpGreaterOrEqual,
	"gte": OpGreaterOrEqual,
	"<":   OpLess,
	"lt":  OpLess,
	"<=":  OpLessOrEqual,
	"lte": OpLessOrEqual,
}

// ParseOperator resolves a symbolic or named operator alias.
func ParseOperator(name string) (Operator, error) {
	op, ok := operatorAliases[strings.TrimSpace(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, name)
	}

	return op, nil
}

// Ref is a state reference operand. When a condition operand is a Ref,
// it resolves against the borrowed state at evaluation time instead of
// being compared literally.
type Ref string

// Condition is the three-part comparison held by logic steps.
type Condition struct {
	Subject  any
	Operator Operator
	Value    any
}

// NewCondition builds a condition, validating the operator. An unknown
// operator is a configuration error surfaced here, not at evaluation.
func NewCondition(subject any, operator string, value any) (Condition, error) {
	op, err := ParseOperator(operator)
	if err != nil {
		return Condition{}, err
	}

	return Condition{Subject: subject, Operator: op, Value: value}, nil
}

// Evaluate resolves Ref operands against st and applies the operator.
// The comparison itself is pure.
func (c Condition) Evaluate(st *state.State) (bool, error) {
	lhs := resolveOperand(c.Subject, st)
	rhs := resolveOperand(c.Value, st)

	switch c.Operator {
	case OpEqual:
		return looseEqual(lhs, rhs), nil
	case OpNotEqual:
		return !looseEqual(lhs, rhs), nil
	case OpStrictEqual:
		return strictEqual(lhs, rhs), nil
	case OpStrictNotEqual:
		return !strictEqual(lhs, rhs), nil
	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		cmp, err := compare(lhs, rhs)
		if err != nil {
			return false, err
		}

		switch c.Operator {
		case OpGreater:
			return cmp > 0, nil
		case OpGreaterOrEqual:
			return cmp >= 0, nil
		case OpLess:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, c.Operator)
	}
}

func resolveOperand(operand any, st *state.State) any {
	ref, ok := operand.(Ref)
	if !ok {
		return operand
	}

	if st == nil {
		return nil
	}

	return st.Get(string(ref), nil)
}

// looseEqual compares across mismatched types: numbers are compared by
// value regardless of width, numeric strings compare equal to numbers.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)

	if aNum && bNum {
		return fa == fb
	}

	return reflect.DeepEqual(a, b)
}

// strictEqual requires identical dynamic types and equal values.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	return reflect.DeepEqual(a, b)
}

// compare returns -1, 0 or 1. Numbers (and numeric strings) order
// numerically; two plain strings order lexicographically.
func compare(a, b any) (int, error) {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)

	if aNum && bNum {
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		default:
			return 0, nil
		}
	}

	sa, aStr := a.(string)
	sb, bStr := b.(string)

	if aStr && bStr {
		return strings.Compare(sa, sb), nil
	}

	return 0, fmt.Errorf("%w: %T and %T", ErrNotComparable, a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)

		return f, err == nil
	default:
		return 0, false
	}
}
