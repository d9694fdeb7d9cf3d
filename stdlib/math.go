package stdlib

import (
	"context"

	"github.com/cockroachdb/apd/v3"

	"github.com/chazu/superbasic/vm"
)

var mathContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(28)
	c.Rounding = apd.RoundHalfEven
	return c
}()

var pi = vm.CreateValue("3.141592653589793238462643383")

type unaryDecimal func(d, x *apd.Decimal) (apd.Condition, error)
type binaryDecimal func(d, x, y *apd.Decimal) (apd.Condition, error)

func applyUnary(op unaryDecimal, v vm.Value) vm.Value {
	var out apd.Decimal
	if _, err := op(&out, number(v).Decimal()); err != nil {
		return vm.NumberValue{}
	}
	return vm.NewNumber(&out)
}

func applyBinary(op binaryDecimal, a, b vm.Value) vm.Value {
	var out apd.Decimal
	if _, err := op(&out, number(a).Decimal(), number(b).Decimal()); err != nil {
		return vm.NumberValue{}
	}
	return vm.NewNumber(&out)
}

func (c *Collection) registerMath() {
	const lib = "Math"

	unary := func(name string, op unaryDecimal) {
		c.method(lib, name, func(_ context.Context, args []vm.Value) (vm.Value, error) {
			return applyUnary(op, args[0]), nil
		})
	}
	binary := func(name string, op binaryDecimal) {
		c.method(lib, name, func(_ context.Context, args []vm.Value) (vm.Value, error) {
			return applyBinary(op, args[0], args[1]), nil
		})
	}

	unary("Abs", mathContext.Abs)
	unary("Ceiling", mathContext.Ceil)
	unary("Floor", mathContext.Floor)
	unary("Round", mathContext.RoundToIntegralValue)
	unary("SquareRoot", mathContext.Sqrt)
	binary("Power", mathContext.Pow)

	c.method(lib, "Remainder", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		if number(args[1]).Decimal().IsZero() {
			return vm.NumberValue{}, nil
		}
		return applyBinary(mathContext.Rem, args[0], args[1]), nil
	})
	c.method(lib, "Max", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		a, b := number(args[0]), number(args[1])
		if a.Decimal().Cmp(b.Decimal()) >= 0 {
			return a, nil
		}
		return b, nil
	})
	c.method(lib, "Min", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		a, b := number(args[0]), number(args[1])
		if a.Decimal().Cmp(b.Decimal()) <= 0 {
			return a, nil
		}
		return b, nil
	})
	c.method(lib, "GetRandomNumber", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		limit := integer(args[0])
		if limit < 1 {
			limit = 1
		}
		return vm.NumberFromInt(c.rand.Int63n(limit) + 1), nil
	})

	c.property(lib, "Pi", func() vm.Value { return pi }, nil)
}
