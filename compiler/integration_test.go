package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/chazu/superbasic/vm"
)

// recordingLibraries is a minimal vm.Libraries for end-to-end runs: it keeps
// TextWindow output, serves queued input and fails members listed in errs.
type recordingLibraries struct {
	raise  func(library, event string)
	output []string
	input  []vm.Value
	errs   map[string]error
}

func (r *recordingLibraries) SetEventCallbacks(raise func(library, event string)) { r.raise = raise }

func (r *recordingLibraries) InvokeMethod(_ context.Context, library, method string, args []vm.Value) (vm.Value, error) {
	if err := r.errs[library+"."+method]; err != nil {
		return nil, err
	}
	switch library + "." + method {
	case "TextWindow.WriteLine":
		r.output = append(r.output, args[0].ToDisplayString())
	case "TextWindow.Read", "TextWindow.ReadNumber":
		v := r.input[0]
		r.input = r.input[1:]
		return v, nil
	}
	return nil, nil
}

func (r *recordingLibraries) GetProperty(context.Context, string, string) (vm.Value, error) {
	return nil, nil
}

func (r *recordingLibraries) SetProperty(context.Context, string, string, vm.Value) error {
	return nil
}

func newEngine(t *testing.T, text string, libs vm.Libraries, debugging bool) *vm.Engine {
	t.Helper()
	comp := Compile(text, true, testRegistry)
	if comp.HasErrors() {
		t.Fatalf("Compile(%q) diagnostics: %v", text, comp.Diagnostics)
	}
	return comp.NewEngine(libs, debugging)
}

// runUntilStopped executes bursts until the engine is no longer running or
// has gone idle.
func runUntilStopped(t *testing.T, e *vm.Engine) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		if e.State() != vm.StateRunning || e.IsIdle() {
			return
		}
		if err := e.Execute(context.Background()); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	t.Fatal("engine did not stop")
}

func TestEndToEndNumericStringAddition(t *testing.T) {
	e := newEngine(t, `x = "1" + 1`, &recordingLibraries{}, false)
	runUntilStopped(t, e)

	x := e.Variable("x")
	if x.Kind() != vm.KindNumber || x.ToDisplayString() != "2" {
		t.Errorf("x = %s %q, want Number 2", x.Kind(), x.ToDisplayString())
	}
	if e.State() != vm.StateTerminated {
		t.Errorf("state = %s, want Terminated", e.State())
	}
}

func TestEndToEndUnterminatedString(t *testing.T) {
	comp := Compile(`x = "name`, false, testRegistry)
	if len(comp.Diagnostics) != 1 || comp.Diagnostics[0].Code != UnterminatedStringLiteral {
		t.Fatalf("diagnostics = %v, want one UnterminatedStringLiteral", comp.Diagnostics)
	}
	if r := comp.Diagnostics[0].Range; r != NewRange(0, 4, 5) {
		t.Errorf("range = %s, want the string's text", r)
	}
}

func TestEndToEndProgramOutput(t *testing.T) {
	source := `total = 0
For i = 1 To 10 Step 3
  total = total + i
EndFor
names[1] = "Ada"
names[2] = "Grace"
If total > 20 Then
  TextWindow.WriteLine("big " + total)
ElseIf total > 10 Then
  TextWindow.WriteLine("medium")
EndIf
Greet()
Sub Greet
  TextWindow.WriteLine(names[2])
EndSub
`
	libs := &recordingLibraries{}
	e := newEngine(t, source, libs, false)
	runUntilStopped(t, e)

	want := []string{"big 22", "Grace"}
	if len(libs.output) != len(want) || libs.output[0] != want[0] || libs.output[1] != want[1] {
		t.Errorf("output = %v, want %v", libs.output, want)
	}
	if got := e.Variable("names").ToDisplayString(); got != "1=Ada;2=Grace;" {
		t.Errorf("names = %q", got)
	}
}

func TestEndToEndNegativeStep(t *testing.T) {
	libs := &recordingLibraries{}
	e := newEngine(t, "For i = 3 To 1 Step -1\n  TextWindow.WriteLine(i)\nEndFor", libs, false)
	runUntilStopped(t, e)

	if len(libs.output) != 3 || libs.output[0] != "3" || libs.output[2] != "1" {
		t.Errorf("output = %v, want [3 2 1]", libs.output)
	}
}

func TestEndToEndNextLinePausesPerLine(t *testing.T) {
	e := newEngine(t, "For x = 1 To 3\n  y = x\nEndFor", &recordingLibraries{}, true)
	e.SetBreakpoint(0)

	var lines []int
	for i := 0; e.State() != vm.StateTerminated; i++ {
		if i > 100 {
			t.Fatal("engine did not terminate")
		}
		if err := e.Execute(context.Background()); err != nil {
			t.Fatal(err)
		}
		if e.State() == vm.StatePaused {
			lines = append(lines, e.GetSnapshot().CurrentSourceLine)
			e.Continue(true)
		}
	}

	want := []int{0, 1, 0, 1, 0, 1, 0}
	if len(lines) != len(want) {
		t.Fatalf("paused at %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("paused at %v, want %v", lines, want)
		}
	}
}

func TestEndToEndPauseIgnoredWhenNotDebugging(t *testing.T) {
	e := newEngine(t, "x = 1\ny = 2", &recordingLibraries{}, false)
	e.Pause()
	runUntilStopped(t, e)
	if e.State() != vm.StateTerminated {
		t.Errorf("state = %s, want Terminated", e.State())
	}
}

func TestEndToEndInput(t *testing.T) {
	libs := &recordingLibraries{input: []vm.Value{vm.StringValue("Ada")}}
	e := newEngine(t, "name = TextWindow.Read()\nTextWindow.WriteLine(\"Hi \" + name)", libs, false)

	runUntilStopped(t, e)
	if e.State() != vm.StateBlockedOnStringInput {
		t.Fatalf("state = %s, want BlockedOnStringInput", e.State())
	}
	if len(libs.output) != 0 {
		t.Errorf("output before input = %v", libs.output)
	}

	e.InputReceived()
	runUntilStopped(t, e)
	if len(libs.output) != 1 || libs.output[0] != "Hi Ada" {
		t.Errorf("output = %v", libs.output)
	}

	defer func() {
		if recover() == nil {
			t.Error("InputReceived on a terminated engine should panic")
		}
	}()
	e.InputReceived()
}

func TestEndToEndEvents(t *testing.T) {
	libs := &recordingLibraries{}
	source := "n = 0\nTimer.Tick = OnTick\nSub OnTick\n  n = n + 1\n  TextWindow.WriteLine(n)\nEndSub"
	e := newEngine(t, source, libs, false)

	runUntilStopped(t, e)
	if !e.IsIdle() {
		t.Fatalf("engine should idle waiting for events, state %s", e.State())
	}

	libs.raise("Timer", "Tick")
	runUntilStopped(t, e)
	libs.raise("Timer", "Tick")
	runUntilStopped(t, e)

	if len(libs.output) != 2 || libs.output[1] != "2" {
		t.Errorf("output = %v, want [1 2]", libs.output)
	}
}

func TestEndToEndLibraryErrorTerminates(t *testing.T) {
	boom := errors.New("disk on fire")
	libs := &recordingLibraries{errs: map[string]error{"File.ReadContents": boom}}
	e := newEngine(t, "x = 1\ny = File.ReadContents(\"a.txt\")\nz = 3", libs, false)

	var err error
	for i := 0; i < 10 && err == nil && e.State() == vm.StateRunning; i++ {
		err = e.Execute(context.Background())
	}
	var libErr *vm.LibraryError
	if !errors.As(err, &libErr) || !errors.Is(err, boom) {
		t.Fatalf("error = %v, want a library error wrapping %v", err, boom)
	}
	if libErr.Range.Line != 1 {
		t.Errorf("error line = %d, want 1", libErr.Range.Line)
	}
	if e.State() != vm.StateTerminated || e.Variable("z") != vm.Blank {
		t.Errorf("state = %s, z = %v", e.State(), e.Variable("z"))
	}
}
