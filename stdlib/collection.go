// Package stdlib implements the console-capable standard libraries behind
// the vm.Libraries contract. Libraries that need a graphical surface are
// described by the registry but report ErrUnsupported when used.
package stdlib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/superbasic/library"
	"github.com/chazu/superbasic/vm"
)

// ErrUnsupported is returned for library members this host cannot provide.
var ErrUnsupported = errors.New("not supported by this host")

type methodFunc func(ctx context.Context, args []vm.Value) (vm.Value, error)
type getterFunc func() vm.Value
type setterFunc func(v vm.Value) error

// Config configures a Collection.
type Config struct {
	// Output receives TextWindow text. Defaults to os.Stdout.
	Output io.Writer
	// Args are the program's command line arguments.
	Args []string
	// Dispatch runs a function on the goroutine that owns the engine. Timer
	// events are delivered through it; without it the timer never ticks.
	Dispatch func(func())
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Seed seeds Math.GetRandomNumber. Zero uses the current time.
	Seed int64
}

// Collection is the standard library set for one engine.
type Collection struct {
	cfg      Config
	registry *library.Registry
	log      commonlog.Logger

	raise func(library, event string)
	start time.Time
	rand  *rand.Rand

	methods map[string]map[string]methodFunc
	getters map[string]map[string]getterFunc
	setters map[string]map[string]setterFunc

	text  *textWindow
	timer *timer

	mu    sync.Mutex
	input []string // pending host input, oldest first

	stacks        map[string][]vm.Value
	fileLastError string
}

// New creates a library collection. registry is consulted to tell apart
// members that exist but are unsupported from members that do not exist.
func New(registry *library.Registry, cfg Config) *Collection {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = cfg.Now().UnixNano()
	}
	c := &Collection{
		cfg:      cfg,
		registry: registry,
		log:      commonlog.GetLogger("superbasic.stdlib"),
		raise:    func(string, string) {},
		start:    cfg.Now(),
		rand:     rand.New(rand.NewSource(seed)),
		methods:  make(map[string]map[string]methodFunc),
		getters:  make(map[string]map[string]getterFunc),
		setters:  make(map[string]map[string]setterFunc),
		stacks:   make(map[string][]vm.Value),
	}
	c.text = newTextWindow(cfg.Output)
	c.timer = newTimer(c)

	c.registerTextWindow()
	c.registerMath()
	c.registerText()
	c.registerClock()
	c.registerProgram()
	c.registerArray()
	c.registerStack()
	c.registerTimer()
	c.registerFile()
	return c
}

func (c *Collection) method(lib, name string, fn methodFunc) {
	if c.methods[lib] == nil {
		c.methods[lib] = make(map[string]methodFunc)
	}
	c.methods[lib][name] = fn
}

func (c *Collection) property(lib, name string, get getterFunc, set setterFunc) {
	if c.getters[lib] == nil {
		c.getters[lib] = make(map[string]getterFunc)
		c.setters[lib] = make(map[string]setterFunc)
	}
	c.getters[lib][name] = get
	if set != nil {
		c.setters[lib][name] = set
	}
}

// ProvideInput queues a line of input for the next TextWindow.Read or
// TextWindow.ReadNumber. The host calls it before Engine.InputReceived.
func (c *Collection) ProvideInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = append(c.input, text)
}

func (c *Collection) nextInput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.input) == 0 {
		return ""
	}
	line := c.input[0]
	c.input = c.input[1:]
	return line
}

// Close stops background activity such as the timer.
func (c *Collection) Close() {
	c.timer.stop()
}

// ---------------------------------------------------------------------------
// vm.Libraries
// ---------------------------------------------------------------------------

func (c *Collection) SetEventCallbacks(raise func(library, event string)) {
	c.raise = raise
}

func (c *Collection) InvokeMethod(ctx context.Context, lib, method string, args []vm.Value) (vm.Value, error) {
	fn, ok := c.methods[lib][method]
	if !ok {
		return nil, c.missing(lib, method)
	}
	return fn(ctx, args)
}

func (c *Collection) GetProperty(ctx context.Context, lib, property string) (vm.Value, error) {
	get, ok := c.getters[lib][property]
	if !ok {
		return nil, c.missing(lib, property)
	}
	return get(), nil
}

func (c *Collection) SetProperty(ctx context.Context, lib, property string, value vm.Value) error {
	set, ok := c.setters[lib][property]
	if !ok {
		return c.missing(lib, property)
	}
	return set(value)
}

// missing distinguishes registry members this host lacks from names no
// compiled program could reference.
func (c *Collection) missing(lib, member string) error {
	if l, ok := c.registry.Lookup(lib); ok {
		for _, name := range l.MemberNames() {
			if name == member {
				return fmt.Errorf("%s.%s: %w", lib, member, ErrUnsupported)
			}
		}
	}
	return fmt.Errorf("unknown library member %s.%s", lib, member)
}

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

func text(v vm.Value) string { return v.ToDisplayString() }

func number(v vm.Value) vm.NumberValue { return v.ToNumber() }

func integer(v vm.Value) int64 { return v.ToNumber().Int() }

func boolean(b bool) vm.Value { return vm.BooleanValue(b) }
