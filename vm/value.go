package vm

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// ---------------------------------------------------------------------------
// Values: the closed set of runtime values
// ---------------------------------------------------------------------------

// Kind identifies a value variant.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindBoolean:
		return "Boolean"
	case KindArray:
		return "Array"
	}
	panic("vm: unexpected value kind")
}

// Value is an immutable runtime value. The variants are StringValue,
// NumberValue, BooleanValue and *ArrayValue; no other type implements it.
//
// Every conversion is total: a variant that has no meaningful number,
// boolean or array form converts to 0, false or an empty array.
type Value interface {
	Kind() Kind
	ToDisplayString() string
	ToNumber() NumberValue
	ToBoolean() bool
	ToArray() *ArrayValue
	isValue()
}

// decimalContext bounds arithmetic precision. Results that need more digits
// are rounded half-even.
var decimalContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(28)
	c.Rounding = apd.RoundHalfEven
	return c
}()

var truncContext = func() *apd.Context {
	c := decimalContext.WithPrecision(28)
	c.Rounding = apd.RoundDown
	return c
}()

var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// CreateValue builds a value from literal text: "true" and "false" in any
// case become booleans, decimal numbers become numbers, and everything else
// stays a string.
func CreateValue(text string) Value {
	switch strings.ToLower(text) {
	case "true":
		return BooleanValue(true)
	case "false":
		return BooleanValue(false)
	}
	if n, ok := parseNumber(text); ok {
		return n
	}
	return StringValue(text)
}

// parseNumber reads text that is a decimal literal, ignoring surrounding
// spaces.
func parseNumber(text string) (NumberValue, bool) {
	trimmed := strings.TrimSpace(text)
	if !numberPattern.MatchString(trimmed) {
		return NumberValue{}, false
	}
	d, _, err := apd.NewFromString(strings.TrimPrefix(trimmed, "+"))
	if err != nil {
		return NumberValue{}, false
	}
	return NewNumber(d), true
}

// Blank is the empty string value, the result of reading anything unset.
var Blank Value = StringValue("")

// ---------------------------------------------------------------------------
// String
// ---------------------------------------------------------------------------

// StringValue is text that was not coerced to another variant.
type StringValue string

func (v StringValue) Kind() Kind              { return KindString }
func (v StringValue) ToDisplayString() string { return string(v) }
func (v StringValue) ToArray() *ArrayValue    { return NewArray() }
func (v StringValue) isValue()                {}

// ToNumber parses numeric text; any other text is 0.
func (v StringValue) ToNumber() NumberValue {
	n, _ := parseNumber(string(v))
	return n
}

// ToBoolean is true only for the text "true" in any case.
func (v StringValue) ToBoolean() bool { return strings.EqualFold(string(v), "true") }

// ---------------------------------------------------------------------------
// Number
// ---------------------------------------------------------------------------

// NumberValue is a fixed-point decimal. The zero value is 0.
type NumberValue struct {
	d apd.Decimal
}

// NewNumber returns a number holding a copy of d.
func NewNumber(d *apd.Decimal) NumberValue {
	var n NumberValue
	n.d.Set(d)
	if n.d.IsZero() {
		n.d.Negative = false
	}
	return n
}

// NumberFromInt returns the number i.
func NumberFromInt(i int64) NumberValue {
	var n NumberValue
	n.d.SetInt64(i)
	return n
}

// Decimal returns a copy of the number's decimal.
func (v NumberValue) Decimal() *apd.Decimal {
	return new(apd.Decimal).Set(&v.d)
}

// Int returns the number truncated toward zero, or 0 when out of range.
func (v NumberValue) Int() int64 {
	var truncated apd.Decimal
	if _, err := truncContext.RoundToIntegralValue(&truncated, &v.d); err != nil {
		return 0
	}
	i, err := truncated.Int64()
	if err != nil {
		return 0
	}
	return i
}

// Float returns the number as a float64.
func (v NumberValue) Float() float64 {
	f, err := v.d.Float64()
	if err != nil {
		return 0
	}
	return f
}

func (v NumberValue) Kind() Kind { return KindNumber }

func (v NumberValue) ToDisplayString() string {
	if v.d.IsZero() {
		v.d.Negative = false
	}
	return v.d.Text('f')
}

func (v NumberValue) ToNumber() NumberValue { return v }
func (v NumberValue) ToBoolean() bool       { return false }
func (v NumberValue) ToArray() *ArrayValue  { return NewArray() }
func (v NumberValue) isValue()              {}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

// BooleanValue is True or False.
type BooleanValue bool

func (v BooleanValue) Kind() Kind { return KindBoolean }

func (v BooleanValue) ToDisplayString() string {
	if v {
		return "True"
	}
	return "False"
}

func (v BooleanValue) ToNumber() NumberValue { return NumberValue{} }
func (v BooleanValue) ToBoolean() bool       { return bool(v) }
func (v BooleanValue) ToArray() *ArrayValue  { return NewArray() }
func (v BooleanValue) isValue()              {}

// IsBlank reports whether v displays as empty text. Blank values are never
// stored in arrays.
func IsBlank(v Value) bool {
	return v == nil || v.ToDisplayString() == ""
}
