package vm

import (
	"testing"
)

// ---------------------------------------------------------------------------
// CreateValue
// ---------------------------------------------------------------------------

func TestCreateValue(t *testing.T) {
	tests := []struct {
		text     string
		wantKind Kind
		display  string
	}{
		{"true", KindBoolean, "True"},
		{"FALSE", KindBoolean, "False"},
		{"42", KindNumber, "42"},
		{"-3.5", KindNumber, "-3.5"},
		{"+7", KindNumber, "7"},
		{" 12 ", KindNumber, "12"},
		{"1.", KindNumber, "1"},
		{".5", KindNumber, "0.5"},
		{"12abc", KindString, "12abc"},
		{"", KindString, ""},
		{"hello", KindString, "hello"},
	}
	for _, tt := range tests {
		v := CreateValue(tt.text)
		if v.Kind() != tt.wantKind {
			t.Errorf("CreateValue(%q).Kind() = %s, want %s", tt.text, v.Kind(), tt.wantKind)
		}
		if got := v.ToDisplayString(); got != tt.display {
			t.Errorf("CreateValue(%q).ToDisplayString() = %q, want %q", tt.text, got, tt.display)
		}
	}
}

func TestConversionsAreTotal(t *testing.T) {
	values := []Value{StringValue("x"), NumberFromInt(3), BooleanValue(true), NewArray().Set("1", StringValue("a"))}
	for _, v := range values {
		_ = v.ToDisplayString()
		_ = v.ToNumber()
		_ = v.ToBoolean()
		if v.ToArray() == nil {
			t.Errorf("%s.ToArray() = nil", v.Kind())
		}
	}
	if !BooleanValue(true).ToBoolean() || !StringValue("TRUE").ToBoolean() || StringValue("yes").ToBoolean() {
		t.Error("only True and the text \"true\" convert to true")
	}
	if got := StringValue(" 15 ").ToNumber().ToDisplayString(); got != "15" {
		t.Errorf("numeric text ToNumber = %q, want 15", got)
	}
	if got := StringValue("15x").ToNumber().ToDisplayString(); got != "0" {
		t.Errorf("non-numeric text ToNumber = %q, want 0", got)
	}
	if LessThan(StringValue("15"), NumberFromInt(10)).ToBoolean() {
		t.Error("numeric text should compare by its number")
	}
	if NumberFromInt(3).ToArray().Len() != 0 {
		t.Error("number converts to an empty array")
	}
}

func TestNumberInt(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"3.9", 3},
		{"-3.9", -3},
		{"0", 0},
		{"123456789012345678901234567890", 0},
	}
	for _, tt := range tests {
		if got := CreateValue(tt.text).ToNumber().Int(); got != tt.want {
			t.Errorf("Int(%s) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

func TestArithmetic(t *testing.T) {
	n := func(s string) Value { return CreateValue(s) }
	tests := []struct {
		name string
		got  Value
		want string
	}{
		{"add numbers", Add(n("1"), n("2")), "3"},
		{"add decimals", Add(n("0.1"), n("0.2")), "0.3"},
		{"add concatenates", Add(StringValue("a"), n("1")), "a1"},
		{"add string digits", Add(n("1"), StringValue("x")), "1x"},
		{"subtract", Subtract(n("5"), n("7")), "-2"},
		{"subtract string", Subtract(StringValue("x"), n("1")), "-1"},
		{"multiply", Multiply(n("1.5"), n("4")), "6.0"},
		{"divide", Divide(n("10"), n("4")), "2.5"},
		{"divide reduces", Divide(n("10"), n("2")), "5"},
		{"divide by zero", Divide(n("10"), n("0")), "10"},
		{"divide thirds", Divide(n("1"), n("3")), "0.3333333333333333333333333333"},
		{"negate", Negate(n("4")), "-4"},
		{"negate zero", Negate(n("0")), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got.ToDisplayString(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComparison(t *testing.T) {
	n := func(s string) Value { return CreateValue(s) }
	tests := []struct {
		name string
		got  Value
		want bool
	}{
		{"equal numbers", Equal(n("1.0"), n("1")), true},
		{"equal strings", Equal(StringValue("a"), StringValue("a")), true},
		{"equal mixed", Equal(StringValue("1"), BooleanValue(true)), false},
		{"not equal", NotEqual(n("1"), n("2")), true},
		{"less", LessThan(n("1"), n("2")), true},
		{"less strings coerce", LessThan(StringValue("b"), n("1")), true},
		{"greater", GreaterThan(n("3"), n("2")), true},
		{"less or equal", LessThanOrEqual(n("2"), n("2")), true},
		{"greater or equal", GreaterThanOrEqual(n("1"), n("2")), false},
		{"and", And(BooleanValue(true), BooleanValue(false)), false},
		{"or", Or(BooleanValue(false), BooleanValue(true)), true},
		{"and non-boolean", And(n("1"), BooleanValue(true)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got.ToBoolean(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

func TestArraySetKeepsOrderAndImmutability(t *testing.T) {
	a := NewArray().Set("b", StringValue("1")).Set("a", StringValue("2"))
	b := a.Set("b", StringValue("3"))

	if got := a.ToDisplayString(); got != "b=1;a=2;" {
		t.Errorf("original = %q", got)
	}
	if got := b.ToDisplayString(); got != "b=3;a=2;" {
		t.Errorf("updated = %q", got)
	}

	c := b.Set("b", Blank)
	if got := c.ToDisplayString(); got != "a=2;" {
		t.Errorf("after blank store = %q", got)
	}
	if c.Len() != 1 || b.Len() != 2 {
		t.Errorf("lengths = %d, %d", c.Len(), b.Len())
	}
	if d := c.Set("missing", Blank); d.Len() != 1 {
		t.Errorf("blank store of a missing key changed the array: %q", d.ToDisplayString())
	}
}

func TestArrayPaths(t *testing.T) {
	keys := []Value{NumberFromInt(1), StringValue("x")}
	root := SetPath(Blank, keys, NumberFromInt(5))

	if got := root.ToDisplayString(); got != `1=x\=5\;;` {
		t.Errorf("nested display = %q", got)
	}
	if got := GetPath(root, keys).ToDisplayString(); got != "5" {
		t.Errorf("GetPath = %q, want 5", got)
	}
	if got := GetPath(root, []Value{StringValue("2")}); got != Blank {
		t.Errorf("missing path = %v, want Blank", got)
	}
	if got := GetPath(NumberFromInt(3), keys); got != Blank {
		t.Errorf("path through a number = %v, want Blank", got)
	}
}

func TestParseArrayRoundTrip(t *testing.T) {
	original := NewArray().
		Set("name", StringValue("a;b=c\\d")).
		Set("n", NumberFromInt(7)).
		Set("inner", NewArray().Set("1", BooleanValue(true)))

	parsed, ok := ParseArray(original.ToDisplayString())
	if !ok {
		t.Fatalf("ParseArray(%q) failed", original.ToDisplayString())
	}
	if got, want := parsed.ToDisplayString(), original.ToDisplayString(); got != want {
		t.Errorf("round trip = %q, want %q", got, want)
	}
	if v, _ := parsed.Get("n"); v.Kind() != KindNumber {
		t.Errorf("n kind = %s, want Number", v.Kind())
	}
	if v, _ := parsed.Get("inner"); v.Kind() != KindArray {
		t.Errorf("inner kind = %s, want Array", v.Kind())
	}
}

func TestParseArrayRejects(t *testing.T) {
	for _, text := range []string{"", "abc", "a=1", "a;", "a=b=c;", `a=1\`} {
		if _, ok := ParseArray(text); ok {
			t.Errorf("ParseArray(%q) succeeded, want failure", text)
		}
	}
}
