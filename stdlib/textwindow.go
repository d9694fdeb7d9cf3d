package stdlib

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"

	"github.com/chazu/superbasic/vm"
)

// namedColors maps the console color names programs use to ANSI colors.
var namedColors = map[string]termenv.ANSIColor{
	"black":       termenv.ANSIBlack,
	"darkred":     termenv.ANSIRed,
	"darkgreen":   termenv.ANSIGreen,
	"darkyellow":  termenv.ANSIYellow,
	"darkblue":    termenv.ANSIBlue,
	"darkmagenta": termenv.ANSIMagenta,
	"darkcyan":    termenv.ANSICyan,
	"gray":        termenv.ANSIWhite,
	"darkgray":    termenv.ANSIBrightBlack,
	"red":         termenv.ANSIBrightRed,
	"green":       termenv.ANSIBrightGreen,
	"yellow":      termenv.ANSIBrightYellow,
	"blue":        termenv.ANSIBrightBlue,
	"magenta":     termenv.ANSIBrightMagenta,
	"cyan":        termenv.ANSIBrightCyan,
	"white":       termenv.ANSIBrightWhite,
}

// textWindow writes program output to a terminal, styling it with the
// current colors when the terminal supports them.
type textWindow struct {
	mu     sync.Mutex
	out    *termenv.Output
	fg, bg string
	fgc    termenv.Color
	bgc    termenv.Color
	title  string
}

func newTextWindow(w io.Writer) *textWindow {
	return &textWindow{out: termenv.NewOutput(w), fg: "Gray", bg: "Black"}
}

// parseColor accepts a console color name or a #rrggbb hex color.
func parseColor(s string) (termenv.Color, error) {
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, nil
	}
	if hex, err := colorful.Hex(s); err == nil {
		return termenv.RGBColor(hex.Hex()), nil
	}
	return nil, fmt.Errorf("unknown color %q", s)
}

func (t *textWindow) write(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	style := t.out.String(s)
	if t.fgc != nil {
		style = style.Foreground(t.out.Convert(t.fgc))
	}
	if t.bgc != nil {
		style = style.Background(t.out.Convert(t.bgc))
	}
	fmt.Fprint(t.out, style.String())
}

func (t *textWindow) setForeground(name string) error {
	c, err := parseColor(name)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.fg, t.fgc = name, c
	t.mu.Unlock()
	return nil
}

func (t *textWindow) setBackground(name string) error {
	c, err := parseColor(name)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.bg, t.bgc = name, c
	t.mu.Unlock()
	return nil
}

func (c *Collection) registerTextWindow() {
	const lib = "TextWindow"
	t := c.text

	c.method(lib, "Write", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		t.write(text(args[0]))
		return nil, nil
	})
	c.method(lib, "WriteLine", func(_ context.Context, args []vm.Value) (vm.Value, error) {
		t.write(text(args[0]))
		t.write("\n")
		return nil, nil
	})
	c.method(lib, "Read", func(context.Context, []vm.Value) (vm.Value, error) {
		return vm.CreateValue(c.nextInput()), nil
	})
	c.method(lib, "ReadNumber", func(context.Context, []vm.Value) (vm.Value, error) {
		return vm.CreateValue(strings.TrimSpace(c.nextInput())).ToNumber(), nil
	})
	c.method(lib, "Clear", func(context.Context, []vm.Value) (vm.Value, error) {
		t.mu.Lock()
		t.out.ClearScreen()
		t.mu.Unlock()
		return nil, nil
	})

	c.property(lib, "ForegroundColor",
		func() vm.Value { return vm.StringValue(t.fg) },
		func(v vm.Value) error { return t.setForeground(text(v)) })
	c.property(lib, "BackgroundColor",
		func() vm.Value { return vm.StringValue(t.bg) },
		func(v vm.Value) error { return t.setBackground(text(v)) })
	c.property(lib, "Title",
		func() vm.Value { return vm.StringValue(t.title) },
		func(v vm.Value) error {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.title = text(v)
			t.out.SetWindowTitle(t.title)
			return nil
		})
}
