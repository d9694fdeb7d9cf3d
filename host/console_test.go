package host

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/chazu/superbasic/compiler"
	"github.com/chazu/superbasic/library"
	"github.com/chazu/superbasic/stdlib"
	"github.com/chazu/superbasic/vm"
)

type consoleRun struct {
	worker  *Worker
	libs    *stdlib.Collection
	output  *bytes.Buffer
	console *Console
}

func newConsoleRun(t *testing.T, source, input string, debugging bool) *consoleRun {
	t.Helper()
	registry := library.NewRegistry()
	comp := compiler.Compile(source, false, registry)
	if comp.HasErrors() {
		t.Fatalf("compile diagnostics: %v", comp.Diagnostics)
	}

	r := &consoleRun{worker: NewWorker(), output: &bytes.Buffer{}}
	t.Cleanup(r.worker.Stop)
	r.libs = stdlib.New(registry, stdlib.Config{Output: r.output, Dispatch: r.worker.Post})
	t.Cleanup(r.libs.Close)
	r.worker.Attach(comp.NewEngine(r.libs, debugging))
	r.console = NewConsole(r.worker, r.libs, strings.NewReader(input), &bytes.Buffer{})
	return r
}

func (r *consoleRun) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.console.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	state, _ := r.worker.Do(func(e *vm.Engine) interface{} { return e.State() })
	if state != vm.StateTerminated {
		t.Errorf("state = %v, want Terminated", state)
	}
}

func (r *consoleRun) variable(name string) string {
	v, _ := r.worker.Do(func(e *vm.Engine) interface{} { return e.Variable(name).ToDisplayString() })
	s, _ := v.(string)
	return s
}

func TestConsoleFeedsInput(t *testing.T) {
	r := newConsoleRun(t, `name = TextWindow.Read()
age = TextWindow.ReadNumber()
TextWindow.WriteLine("Hello, " + name)
TextWindow.WriteLine(age + 1)
`, "Ada\n36\n", false)
	r.run(t)

	if got := r.output.String(); got != "Hello, Ada\n37\n" {
		t.Errorf("output = %q", got)
	}
}

func TestConsoleNumericTextInput(t *testing.T) {
	r := newConsoleRun(t, `x = TextWindow.Read()
y = x + 1
If x < 10 Then
  TextWindow.WriteLine("small")
Else
  TextWindow.WriteLine("large")
EndIf
`, "15\n", false)
	r.run(t)

	if v := r.variable("y"); v != "16" {
		t.Errorf("y = %q, want 16", v)
	}
	if got := r.output.String(); got != "large\n" {
		t.Errorf("output = %q, want large", got)
	}
}

func TestConsoleInputClosed(t *testing.T) {
	r := newConsoleRun(t, `name = TextWindow.Read()
TextWindow.WriteLine("unreachable")
`, "", false)
	r.run(t)

	if got := r.output.String(); got != "" {
		t.Errorf("output = %q, want nothing", got)
	}
}

func TestConsoleStepDebugging(t *testing.T) {
	r := newConsoleRun(t, "x = 1\ny = 2\nz = 3\n", "n\nc\n", true)
	r.worker.Do(func(e *vm.Engine) interface{} {
		e.SetBreakpoint(0)
		return nil
	})
	out := &bytes.Buffer{}
	r.console.Out = out
	r.run(t)

	got := out.String()
	if !strings.Contains(got, "Paused at line 1") || !strings.Contains(got, "Paused at line 2") {
		t.Errorf("debugger output = %q", got)
	}
	if strings.Contains(got, "Paused at line 3") {
		t.Errorf("continue still stopped at line 3: %q", got)
	}
	if v := r.variable("z"); v != "3" {
		t.Errorf("z = %q, want 3", v)
	}
}

func TestConsoleIdlesForTimerEvents(t *testing.T) {
	r := newConsoleRun(t, `count = 0
Timer.Tick = OnTick
Timer.Interval = 1

Sub OnTick
  count = count + 1
  If count = 3 Then
    Program.End()
  EndIf
EndSub
`, "", false)
	r.run(t)

	if v := r.variable("count"); v != "3" {
		t.Errorf("count = %q, want 3", v)
	}
}

func TestWorkerRecoversPanics(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	_, err := w.Do(func(*vm.Engine) interface{} { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Do error = %v, want boom", err)
	}

	done := make(chan struct{})
	w.Post(func() { close(done) })
	select {
	case <-w.Posted():
	case <-time.After(5 * time.Second):
		t.Fatal("posted work never signalled")
	}
	<-done
}
