package stdlib

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chazu/superbasic/vm"
)

func (c *Collection) registerClock() {
	const lib = "Clock"
	now := c.cfg.Now
	field := func(name string, f func(t time.Time) int) {
		c.property(lib, name, func() vm.Value { return vm.NumberFromInt(int64(f(now()))) }, nil)
	}

	c.property(lib, "Time", func() vm.Value { return vm.StringValue(now().Format("15:04:05")) }, nil)
	c.property(lib, "Date", func() vm.Value { return vm.StringValue(now().Format("2006-01-02")) }, nil)
	field("Year", func(t time.Time) int { return t.Year() })
	field("Month", func(t time.Time) int { return int(t.Month()) })
	field("Day", func(t time.Time) int { return t.Day() })
	field("Hour", func(t time.Time) int { return t.Hour() })
	field("Minute", func(t time.Time) int { return t.Minute() })
	field("Second", func(t time.Time) int { return t.Second() })
	c.property(lib, "ElapsedMilliseconds", func() vm.Value {
		return vm.NumberFromInt(now().Sub(c.start).Milliseconds())
	}, nil)
}

func (c *Collection) registerProgram() {
	const lib = "Program"

	c.method(lib, "Delay", func(ctx context.Context, args []vm.Value) (vm.Value, error) {
		d := time.Duration(integer(args[0])) * time.Millisecond
		if d <= 0 {
			return nil, nil
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	c.method(lib, "End", func(context.Context, []vm.Value) (vm.Value, error) {
		return nil, vm.ErrProgramEnded
	})
	c.method(lib, "GetArgument", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		i := integer(args[0])
		if i < 1 || i > int64(len(c.cfg.Args)) {
			return vm.Blank, nil
		}
		return vm.CreateValue(c.cfg.Args[i-1]), nil
	})
	c.property(lib, "ArgumentCount", func() vm.Value {
		return vm.NumberFromInt(int64(len(c.cfg.Args)))
	}, nil)
}

const (
	fileSuccess = "SUCCESS"
	fileFailed  = "FAILED"
)

func (c *Collection) registerFile() {
	const lib = "File"

	result := func(err error) vm.Value {
		if err != nil {
			c.fileLastError = err.Error()
			return vm.StringValue(fileFailed)
		}
		return vm.StringValue(fileSuccess)
	}

	c.method(lib, "ReadContents", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		data, err := os.ReadFile(text(args[0]))
		if err != nil {
			c.fileLastError = err.Error()
			return vm.Blank, nil
		}
		return vm.CreateValue(string(data)), nil
	})
	c.method(lib, "WriteContents", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		return result(os.WriteFile(text(args[0]), []byte(text(args[1])), 0o644)), nil
	})
	c.method(lib, "AppendContents", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		f, err := os.OpenFile(text(args[0]), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return result(err), nil
		}
		_, err = fmt.Fprint(f, text(args[1]))
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return result(err), nil
	})
	c.property(lib, "LastError",
		func() vm.Value { return vm.StringValue(c.fileLastError) },
		nil)
}
