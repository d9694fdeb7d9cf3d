package stdlib

import (
	"context"
	"strings"

	"github.com/chazu/superbasic/vm"
)

func (c *Collection) registerText() {
	const lib = "Text"

	c.method(lib, "Append", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		return vm.CreateValue(text(args[0]) + text(args[1])), nil
	})
	c.method(lib, "GetLength", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		return vm.NumberFromInt(int64(len([]rune(text(args[0]))))), nil
	})
	c.method(lib, "GetSubText", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		runes := []rune(text(args[0]))
		start, length := integer(args[1]), integer(args[2])
		if start < 1 || start > int64(len(runes)) || length < 1 {
			return vm.Blank, nil
		}
		end := start - 1 + length
		if end > int64(len(runes)) {
			end = int64(len(runes))
		}
		return vm.CreateValue(string(runes[start-1 : end])), nil
	})
	c.method(lib, "GetIndexOf", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		haystack, needle := text(args[0]), text(args[1])
		i := strings.Index(haystack, needle)
		if i < 0 || needle == "" {
			return vm.NumberFromInt(0), nil
		}
		return vm.NumberFromInt(int64(len([]rune(haystack[:i]))) + 1), nil
	})
	c.method(lib, "IsSubText", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		return boolean(strings.Contains(text(args[0]), text(args[1]))), nil
	})
	c.method(lib, "ConvertToUpperCase", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		return vm.CreateValue(strings.ToUpper(text(args[0]))), nil
	})
	c.method(lib, "ConvertToLowerCase", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		return vm.CreateValue(strings.ToLower(text(args[0]))), nil
	})
}
