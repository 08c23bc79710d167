package rules

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/a3tai/mcp-visa-intake/internal/transform"
)

var (
	// ErrFactMissing means a condition referenced a fact that is not present
	ErrFactMissing = errors.New("fact missing")
	// ErrTypeMismatch means the operands cannot be compared with the operator
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrUnknownOperator is returned for an operator outside the supported set
	ErrUnknownOperator = errors.New("unknown operator")
)

// Operator is a leaf comparison
type Operator string

const (
	OpEqual                Operator = "equal"
	OpNotEqual             Operator = "notEqual"
	OpGreaterThan          Operator = "greaterThan"
	OpLessThan             Operator = "lessThan"
	OpGreaterThanInclusive Operator = "greaterThanInclusive"
	OpLessThanInclusive    Operator = "lessThanInclusive"
	OpIn                   Operator = "in"
	OpNotIn                Operator = "notIn"
)

func (o Operator) valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpGreaterThan, OpLessThan,
		OpGreaterThanInclusive, OpLessThanInclusive, OpIn, OpNotIn:
		return true
	}
	return false
}

// Condition is a node in a rule's condition tree. An error means the condition
// could not be decided, and the owning rule does not fire.
type Condition interface {
	Eval(f Facts) (bool, error)
}

// AllOf holds when every child holds
type AllOf []Condition

func (c AllOf) Eval(f Facts) (bool, error) {
	for _, child := range c {
		ok, err := child.Eval(f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// AnyOf holds when at least one child holds. Undecidable children are skipped
// unless no child holds.
type AnyOf []Condition

func (c AnyOf) Eval(f Facts) (bool, error) {
	var firstErr error
	for _, child := range c {
		ok, err := child.Eval(f)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

// Not negates its child
type Not struct {
	Cond Condition
}

func (c Not) Eval(f Facts) (bool, error) {
	ok, err := c.Cond.Eval(f)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Operand is the right-hand side of a leaf: a literal or a reference to another fact
type Operand struct {
	literal any
	fact    string
}

// Value wraps a literal operand
func Value(v any) Operand { return Operand{literal: v} }

// FactRef compares against another fact
func FactRef(name string) Operand { return Operand{fact: name} }

func (o Operand) resolve(f Facts) (any, error) {
	if o.fact == "" {
		return o.literal, nil
	}
	v, ok := f.Get(o.fact)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFactMissing, o.fact)
	}
	return v, nil
}

// Leaf compares a fact with an operand
type Leaf struct {
	Fact     string
	Operator Operator
	Operand  Operand
}

func (c Leaf) Eval(f Facts) (bool, error) {
	left, ok := f.Get(c.Fact)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrFactMissing, c.Fact)
	}
	right, err := c.Operand.resolve(f)
	if err != nil {
		return false, err
	}
	return compare(c.Operator, left, right)
}

func compare(op Operator, left, right any) (bool, error) {
	switch op {
	case OpIn, OpNotIn:
		found, err := contains(right, left)
		if err != nil {
			return false, err
		}
		return found == (op == OpIn), nil
	case OpEqual, OpNotEqual:
		eq, err := equal(left, right)
		if err != nil {
			return false, err
		}
		return eq == (op == OpEqual), nil
	case OpGreaterThan, OpLessThan, OpGreaterThanInclusive, OpLessThanInclusive:
		cmp, err := order(left, right)
		if err != nil {
			return false, err
		}
		switch op {
		case OpGreaterThan:
			return cmp > 0, nil
		case OpLessThan:
			return cmp < 0, nil
		case OpGreaterThanInclusive:
			return cmp >= 0, nil
		default:
			return cmp <= 0, nil
		}
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
}

// equal compares like-typed values. Strings compare case-insensitively.
func equal(left, right any) (bool, error) {
	if lt, ok := left.(time.Time); ok {
		rt, err := asTime(right)
		if err != nil {
			return false, err
		}
		return lt.Equal(rt), nil
	}
	if lf, ok := asFloat(left); ok {
		rf, ok := asFloat(right)
		if !ok {
			return false, fmt.Errorf("%w: %T vs %T", ErrTypeMismatch, left, right)
		}
		return lf == rf, nil
	}
	switch l := left.(type) {
	case string:
		r, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("%w: %T vs %T", ErrTypeMismatch, left, right)
		}
		return strings.EqualFold(l, r), nil
	case bool:
		r, ok := right.(bool)
		if !ok {
			return false, fmt.Errorf("%w: %T vs %T", ErrTypeMismatch, left, right)
		}
		return l == r, nil
	}
	return false, fmt.Errorf("%w: %T", ErrTypeMismatch, left)
}

// order returns -1, 0 or 1. Only times and numbers are ordered.
func order(left, right any) (int, error) {
	if lt, ok := left.(time.Time); ok {
		rt, err := asTime(right)
		if err != nil {
			return 0, err
		}
		return lt.Compare(rt), nil
	}
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return 0, fmt.Errorf("%w: cannot order %T and %T", ErrTypeMismatch, left, right)
	}
	switch {
	case lf < rf:
		return -1, nil
	case lf > rf:
		return 1, nil
	}
	return 0, nil
}

func contains(list, item any) (bool, error) {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false, fmt.Errorf("%w: in requires a list, got %T", ErrTypeMismatch, list)
	}
	for i := 0; i < rv.Len(); i++ {
		eq, err := equal(item, rv.Index(i).Interface())
		if err != nil {
			continue
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

// asTime accepts a time or a date string, so rule files can carry literal dates
func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := transform.ParseDate(t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrTypeMismatch, t)
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("%w: %T is not a date", ErrTypeMismatch, v)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
