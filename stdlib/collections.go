package stdlib

import (
	"context"
	"strconv"

	"github.com/chazu/superbasic/vm"
)

func (c *Collection) registerArray() {
	const lib = "Array"

	c.method(lib, "ContainsIndex", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		_, ok := args[0].ToArray().Get(text(args[1]))
		return boolean(ok), nil
	})
	c.method(lib, "ContainsValue", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		arr, want := args[0].ToArray(), text(args[1])
		for _, key := range arr.Keys() {
			if v, _ := arr.Get(key); text(v) == want {
				return boolean(true), nil
			}
		}
		return boolean(false), nil
	})
	c.method(lib, "GetAllIndices", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		out := vm.NewArray()
		for i, key := range args[0].ToArray().Keys() {
			out = out.Set(strconv.Itoa(i+1), vm.CreateValue(key))
		}
		return out, nil
	})
	c.method(lib, "GetItemCount", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		return vm.NumberFromInt(int64(args[0].ToArray().Len())), nil
	})
}

func (c *Collection) registerStack() {
	const lib = "Stack"

	c.method(lib, "PushValue", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		name := text(args[0])
		c.stacks[name] = append(c.stacks[name], args[1])
		return nil, nil
	})
	c.method(lib, "PopValue", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		name := text(args[0])
		s := c.stacks[name]
		if len(s) == 0 {
			return vm.Blank, nil
		}
		v := s[len(s)-1]
		c.stacks[name] = s[:len(s)-1]
		return v, nil
	})
	c.method(lib, "GetCount", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		return vm.NumberFromInt(int64(len(c.stacks[text(args[0])]))), nil
	})
}
