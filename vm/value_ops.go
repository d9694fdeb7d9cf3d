package vm

import "github.com/cockroachdb/apd/v3"

// ---------------------------------------------------------------------------
// Operators over values
// ---------------------------------------------------------------------------

func bothNumbers(left, right Value) bool {
	return left.Kind() == KindNumber && right.Kind() == KindNumber
}

type decimalOp func(d, x, y *apd.Decimal) (apd.Condition, error)

func arithmetic(op decimalOp, left, right Value) Value {
	l, r := left.ToNumber(), right.ToNumber()
	var out apd.Decimal
	if _, err := op(&out, &l.d, &r.d); err != nil {
		return NumberValue{}
	}
	return NewNumber(&out)
}

// Add adds two numbers, or concatenates display strings when either operand
// is not a number.
func Add(left, right Value) Value {
	if bothNumbers(left, right) {
		return arithmetic(decimalContext.Add, left, right)
	}
	return StringValue(left.ToDisplayString() + right.ToDisplayString())
}

func Subtract(left, right Value) Value {
	return arithmetic(decimalContext.Sub, left, right)
}

func Multiply(left, right Value) Value {
	return arithmetic(decimalContext.Mul, left, right)
}

// Divide divides left by right. A zero divisor is treated as one.
func Divide(left, right Value) Value {
	l, r := left.ToNumber(), right.ToNumber()
	if r.d.IsZero() {
		return l
	}
	var out apd.Decimal
	if _, err := decimalContext.Quo(&out, &l.d, &r.d); err != nil {
		return NumberValue{}
	}
	decimalContext.Reduce(&out, &out)
	return NewNumber(&out)
}

// Negate returns the numeric negation of v.
func Negate(v Value) Value {
	n := v.ToNumber()
	var out apd.Decimal
	out.Neg(&n.d)
	return NewNumber(&out)
}

// Equal compares numbers numerically and everything else by display string.
func Equal(left, right Value) Value {
	return BooleanValue(equal(left, right))
}

func NotEqual(left, right Value) Value {
	return BooleanValue(!equal(left, right))
}

func equal(left, right Value) bool {
	if bothNumbers(left, right) {
		l, r := left.ToNumber(), right.ToNumber()
		return l.d.Cmp(&r.d) == 0
	}
	return left.ToDisplayString() == right.ToDisplayString()
}

func compare(left, right Value) int {
	l, r := left.ToNumber(), right.ToNumber()
	return l.d.Cmp(&r.d)
}

func LessThan(left, right Value) Value {
	return BooleanValue(compare(left, right) < 0)
}

func GreaterThan(left, right Value) Value {
	return BooleanValue(compare(left, right) > 0)
}

func LessThanOrEqual(left, right Value) Value {
	return BooleanValue(compare(left, right) <= 0)
}

func GreaterThanOrEqual(left, right Value) Value {
	return BooleanValue(compare(left, right) >= 0)
}

func And(left, right Value) Value {
	return BooleanValue(left.ToBoolean() && right.ToBoolean())
}

func Or(left, right Value) Value {
	return BooleanValue(left.ToBoolean() || right.ToBoolean())
}
