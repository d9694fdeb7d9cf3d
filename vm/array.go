package vm

import "strings"

// ---------------------------------------------------------------------------
// Arrays: ordered string-keyed maps of values
// ---------------------------------------------------------------------------

// ArrayValue maps string keys to values in insertion order. It is immutable;
// Set returns an updated copy.
type ArrayValue struct {
	keys   []string
	values map[string]Value
}

// NewArray returns an empty array.
func NewArray() *ArrayValue {
	return &ArrayValue{values: map[string]Value{}}
}

func (a *ArrayValue) Kind() Kind            { return KindArray }
func (a *ArrayValue) ToNumber() NumberValue { return NumberValue{} }
func (a *ArrayValue) ToBoolean() bool       { return false }
func (a *ArrayValue) ToArray() *ArrayValue  { return a }
func (a *ArrayValue) isValue()              {}

// ToDisplayString renders key=value; pairs with '\' escaping ';', '=' and
// '\' in keys and values.
func (a *ArrayValue) ToDisplayString() string {
	var sb strings.Builder
	for _, key := range a.keys {
		sb.WriteString(escapeArrayText(key))
		sb.WriteByte('=')
		sb.WriteString(escapeArrayText(a.values[key].ToDisplayString()))
		sb.WriteByte(';')
	}
	return sb.String()
}

// Len returns the number of entries.
func (a *ArrayValue) Len() int { return len(a.keys) }

// Keys returns the keys in insertion order.
func (a *ArrayValue) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Get returns the value stored under key.
func (a *ArrayValue) Get(key string) (Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Set returns a copy of a with key bound to v. A blank v removes the key.
// Updating an existing key keeps its position.
func (a *ArrayValue) Set(key string, v Value) *ArrayValue {
	out := &ArrayValue{values: make(map[string]Value, len(a.values)+1)}
	for k, val := range a.values {
		out.values[k] = val
	}
	if IsBlank(v) {
		if _, ok := out.values[key]; !ok {
			out.keys = a.keys
			return out
		}
		delete(out.values, key)
		out.keys = make([]string, 0, len(a.keys)-1)
		for _, k := range a.keys {
			if k != key {
				out.keys = append(out.keys, k)
			}
		}
		return out
	}
	if _, ok := out.values[key]; ok {
		out.keys = a.keys
	} else {
		out.keys = make([]string, len(a.keys), len(a.keys)+1)
		copy(out.keys, a.keys)
		out.keys = append(out.keys, key)
	}
	out.values[key] = v
	return out
}

// GetPath follows keys through nested arrays. Missing entries read as Blank.
func GetPath(v Value, keys []Value) Value {
	for _, key := range keys {
		next, ok := v.ToArray().Get(key.ToDisplayString())
		if !ok {
			return Blank
		}
		v = next
	}
	return v
}

// SetPath returns root with the nested entry at keys replaced by v, creating
// intermediate arrays as needed. Arrays emptied by a blank store are removed
// from their parent.
func SetPath(root Value, keys []Value, v Value) *ArrayValue {
	arr := root.ToArray()
	key := keys[0].ToDisplayString()
	if len(keys) == 1 {
		return arr.Set(key, v)
	}
	child, ok := arr.Get(key)
	if !ok {
		child = NewArray()
	}
	return arr.Set(key, SetPath(child, keys[1:], v))
}

func escapeArrayText(s string) string {
	if !strings.ContainsAny(s, `;=\`) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if r == ';' || r == '=' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ParseArray reads the display form of an array. Values that are themselves
// in array form become nested arrays; other values go through CreateValue.
// The boolean result is false when text is not in array form.
func ParseArray(text string) (*ArrayValue, bool) {
	if text == "" {
		return nil, false
	}
	arr := NewArray()
	var key, cur strings.Builder
	inValue := false
	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '=' && !inValue:
			key.WriteString(cur.String())
			cur.Reset()
			inValue = true
		case r == ';':
			if !inValue {
				return nil, false
			}
			arr = arr.Set(key.String(), parseArrayEntry(cur.String()))
			key.Reset()
			cur.Reset()
			inValue = false
		default:
			if r == '=' {
				return nil, false
			}
			cur.WriteRune(r)
		}
	}
	if inValue || escaped || cur.Len() > 0 {
		return nil, false
	}
	return arr, true
}

func parseArrayEntry(text string) Value {
	if nested, ok := ParseArray(text); ok {
		return nested
	}
	return CreateValue(text)
}
