package vm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeLibraries records calls and serves canned results.
type fakeLibraries struct {
	raise      func(library, event string)
	calls      []string
	properties map[string]Value
	results    map[string]Value
	errs       map[string]error
}

func newFakeLibraries() *fakeLibraries {
	return &fakeLibraries{
		properties: map[string]Value{},
		results:    map[string]Value{},
		errs:       map[string]error{},
	}
}

func (f *fakeLibraries) SetEventCallbacks(raise func(library, event string)) { f.raise = raise }

func (f *fakeLibraries) InvokeMethod(_ context.Context, library, method string, args []Value) (Value, error) {
	key := library + "." + method
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.ToDisplayString()
	}
	f.calls = append(f.calls, key+"("+strings.Join(parts, ",")+")")
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.results[key], nil
}

func (f *fakeLibraries) GetProperty(_ context.Context, library, property string) (Value, error) {
	key := library + "." + property
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.properties[key], nil
}

func (f *fakeLibraries) SetProperty(_ context.Context, library, property string, value Value) error {
	f.properties[library+"."+property] = value
	return nil
}

func at(line int) SourceRange { return SourceRange{Line: line} }

func mainProgram(ins ...Instruction) *Program {
	return &Program{
		Main:       &Module{Name: MainModuleName, Instructions: ins},
		SubModules: map[string]*Module{},
	}
}

// runToCompletion executes bursts until the engine stops making progress.
func runToCompletion(t *testing.T, e *Engine) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if e.State() != StateRunning || e.IsIdle() {
			return
		}
		if err := e.Execute(context.Background()); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	t.Fatal("engine did not settle")
}

// ---------------------------------------------------------------------------
// Straight-line execution
// ---------------------------------------------------------------------------

func TestEngineArithmeticAndMemory(t *testing.T) {
	p := mainProgram(
		Instruction{Op: OpPushLiteral, Text: "1", Range: at(0)},
		Instruction{Op: OpPushLiteral, Text: "2", Range: at(0)},
		Instruction{Op: OpAdd, Range: at(0)},
		Instruction{Op: OpStoreVariable, Text: "x", Range: at(0)},
		Instruction{Op: OpLoadVariable, Text: "x", Range: at(1)},
		Instruction{Op: OpNegate, Range: at(1)},
		Instruction{Op: OpStoreVariable, Text: "y", Range: at(1)},
	)
	e := NewEngine(p, newFakeLibraries(), Options{})
	runToCompletion(t, e)

	if e.State() != StateTerminated {
		t.Fatalf("state = %s, want Terminated", e.State())
	}
	if got := e.Variable("x").ToDisplayString(); got != "3" {
		t.Errorf("x = %q, want 3", got)
	}
	if got := e.Variable("y").ToDisplayString(); got != "-3" {
		t.Errorf("y = %q, want -3", got)
	}
	if e.Variable("unset") != Blank {
		t.Error("unset variable should read as Blank")
	}
}

func TestEngineArrays(t *testing.T) {
	p := mainProgram(
		Instruction{Op: OpPushLiteral, Text: "1", Range: at(0)},
		Instruction{Op: OpPushLiteral, Text: "k", Range: at(0)},
		Instruction{Op: OpPushLiteral, Text: "v", Range: at(0)},
		Instruction{Op: OpStoreArrayElement, Text: "a", Count: 2, Range: at(0)},
		Instruction{Op: OpPushLiteral, Text: "1", Range: at(1)},
		Instruction{Op: OpLoadArrayElement, Text: "a", Count: 1, Range: at(1)},
		Instruction{Op: OpPushLiteral, Text: "k", Range: at(1)},
		Instruction{Op: OpIndexValue, Count: 1, Range: at(1)},
		Instruction{Op: OpStoreVariable, Text: "got", Range: at(1)},
	)
	e := NewEngine(p, newFakeLibraries(), Options{})
	runToCompletion(t, e)

	if got := e.Variable("got").ToDisplayString(); got != "v" {
		t.Errorf("got = %q, want v", got)
	}
	if got := e.Variable("a").ToDisplayString(); got != `1=k\=v\;;` {
		t.Errorf("a = %q", got)
	}
}

func TestEngineJumps(t *testing.T) {
	// i = 0; loop: if i >= 3 goto end; i = i + 1; goto loop; end:
	p := mainProgram(
		Instruction{Op: OpPushLiteral, Text: "0", Range: at(0)},
		Instruction{Op: OpStoreVariable, Text: "i", Range: at(0)},
		Instruction{Op: OpLoadVariable, Text: "i", Range: at(1)},
		Instruction{Op: OpPushLiteral, Text: "3", Range: at(1)},
		Instruction{Op: OpGreaterThanOrEqual, Range: at(1)},
		Instruction{Op: OpJumpIfTrue, Target: 11, Label: "end", Range: at(1)},
		Instruction{Op: OpLoadVariable, Text: "i", Range: at(2)},
		Instruction{Op: OpPushLiteral, Text: "1", Range: at(2)},
		Instruction{Op: OpAdd, Range: at(2)},
		Instruction{Op: OpStoreVariable, Text: "i", Range: at(2)},
		Instruction{Op: OpJump, Target: 2, Label: "loop", Range: at(3)},
	)
	e := NewEngine(p, newFakeLibraries(), Options{})
	runToCompletion(t, e)

	if got := e.Variable("i").ToDisplayString(); got != "3" {
		t.Errorf("i = %q, want 3", got)
	}
}

// ---------------------------------------------------------------------------
// Library calls
// ---------------------------------------------------------------------------

func TestEngineInvokeMethodEndsBurst(t *testing.T) {
	libs := newFakeLibraries()
	libs.results["Math.Abs"] = NumberFromInt(4)
	p := mainProgram(
		Instruction{Op: OpPushLiteral, Text: "-4", Range: at(0)},
		Instruction{Op: OpInvokeMethod, Library: "Math", Member: "Abs", Count: 1, HasValue: true, Range: at(0)},
		Instruction{Op: OpStoreVariable, Text: "x", Range: at(0)},
	)
	e := NewEngine(p, libs, Options{})

	if err := e.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e.State() != StateRunning {
		t.Fatalf("state after async burst = %s, want Running", e.State())
	}
	if len(libs.calls) != 1 || libs.calls[0] != "Math.Abs(-4)" {
		t.Errorf("calls = %v", libs.calls)
	}
	runToCompletion(t, e)
	if got := e.Variable("x").ToDisplayString(); got != "4" {
		t.Errorf("x = %q, want 4", got)
	}
}

func TestEngineProperties(t *testing.T) {
	libs := newFakeLibraries()
	p := mainProgram(
		Instruction{Op: OpPushLiteral, Text: "Red", Range: at(0)},
		Instruction{Op: OpStoreProperty, Library: "TextWindow", Member: "ForegroundColor", Range: at(0)},
		Instruction{Op: OpLoadProperty, Library: "TextWindow", Member: "ForegroundColor", Range: at(1)},
		Instruction{Op: OpStoreVariable, Text: "c", Range: at(1)},
		Instruction{Op: OpLoadProperty, Library: "Clock", Member: "Time", Range: at(2)},
		Instruction{Op: OpStoreVariable, Text: "t", Range: at(2)},
	)
	e := NewEngine(p, libs, Options{})
	runToCompletion(t, e)

	if got := e.Variable("c").ToDisplayString(); got != "Red" {
		t.Errorf("c = %q, want Red", got)
	}
	if e.Variable("t") != Blank {
		t.Errorf("nil property should read as Blank, got %v", e.Variable("t"))
	}
}

func TestEngineLibraryErrorTerminates(t *testing.T) {
	libs := newFakeLibraries()
	boom := errors.New("boom")
	libs.errs["File.ReadContents"] = boom
	p := mainProgram(
		Instruction{Op: OpInvokeMethod, Library: "File", Member: "ReadContents", Range: at(4)},
	)
	e := NewEngine(p, libs, Options{})

	err := e.Execute(context.Background())
	var libErr *LibraryError
	if !errors.As(err, &libErr) {
		t.Fatalf("Execute error = %v, want *LibraryError", err)
	}
	if !errors.Is(err, boom) || libErr.Range.Line != 4 {
		t.Errorf("library error = %+v", libErr)
	}
	if !strings.Contains(err.Error(), "line 5: File.ReadContents") {
		t.Errorf("message = %q", err.Error())
	}
	if e.State() != StateTerminated {
		t.Errorf("state = %s, want Terminated", e.State())
	}
}

func TestEngineProgramEnded(t *testing.T) {
	libs := newFakeLibraries()
	libs.errs["Program.End"] = ErrProgramEnded
	p := mainProgram(
		Instruction{Op: OpInvokeMethod, Library: "Program", Member: "End", Range: at(0)},
		Instruction{Op: OpPushLiteral, Text: "1", Range: at(1)},
		Instruction{Op: OpStoreVariable, Text: "after", Range: at(1)},
	)
	e := NewEngine(p, libs, Options{})

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute = %v, want nil", err)
	}
	if e.State() != StateTerminated {
		t.Errorf("state = %s, want Terminated", e.State())
	}
	if e.Variable("after") != Blank {
		t.Error("instructions after Program.End ran")
	}
}

func TestEngineContextCancel(t *testing.T) {
	p := mainProgram(Instruction{Op: OpJump, Target: 0, Range: at(0)})
	e := NewEngine(p, newFakeLibraries(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Execute = %v, want context.Canceled", err)
	}
	if e.State() != StateRunning {
		t.Errorf("state = %s, want Running", e.State())
	}
}

// ---------------------------------------------------------------------------
// Input and debugging
// ---------------------------------------------------------------------------

func TestEngineInputBlocking(t *testing.T) {
	libs := newFakeLibraries()
	libs.results["TextWindow.Read"] = StringValue("Ada")
	p := mainProgram(
		Instruction{Op: OpBlockOnStringInput, Range: at(0)},
		Instruction{Op: OpInvokeMethod, Library: "TextWindow", Member: "Read", HasValue: true, Range: at(0)},
		Instruction{Op: OpStoreVariable, Text: "name", Range: at(0)},
	)
	e := NewEngine(p, libs, Options{})

	if err := e.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e.State() != StateBlockedOnStringInput {
		t.Fatalf("state = %s, want BlockedOnStringInput", e.State())
	}
	if err := e.Execute(context.Background()); err != nil || e.State() != StateBlockedOnStringInput {
		t.Fatalf("blocked engine moved: %v, %s", err, e.State())
	}

	e.InputReceived()
	runToCompletion(t, e)
	if got := e.Variable("name").ToDisplayString(); got != "Ada" {
		t.Errorf("name = %q, want Ada", got)
	}
}

func TestEngineInputReceivedPanicsWhenNotBlocked(t *testing.T) {
	e := NewEngine(mainProgram(), newFakeLibraries(), Options{})
	defer func() {
		if recover() == nil {
			t.Error("InputReceived on a running engine should panic")
		}
	}()
	e.InputReceived()
}

func threeLines() *Program {
	return mainProgram(
		Instruction{Op: OpPushLiteral, Text: "1", Range: at(0)},
		Instruction{Op: OpStoreVariable, Text: "a", Range: at(0)},
		Instruction{Op: OpPushLiteral, Text: "2", Range: at(1)},
		Instruction{Op: OpStoreVariable, Text: "b", Range: at(1)},
		Instruction{Op: OpPushLiteral, Text: "3", Range: at(2)},
		Instruction{Op: OpStoreVariable, Text: "c", Range: at(2)},
	)
}

func TestEngineBreakpoints(t *testing.T) {
	e := NewEngine(threeLines(), newFakeLibraries(), Options{Debugging: true})
	e.SetBreakpoint(1)

	if err := e.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e.State() != StatePaused {
		t.Fatalf("state = %s, want Paused", e.State())
	}
	snap := e.GetSnapshot()
	if snap.CurrentSourceLine != 1 || e.Variable("a").ToDisplayString() != "1" || e.Variable("b") != Blank {
		t.Errorf("paused at line %d with a=%v b=%v", snap.CurrentSourceLine, e.Variable("a"), e.Variable("b"))
	}

	e.Continue(false)
	runToCompletion(t, e)
	if e.State() != StateTerminated || e.Variable("c").ToDisplayString() != "3" {
		t.Errorf("state = %s, c = %v", e.State(), e.Variable("c"))
	}
}

func TestEngineStepping(t *testing.T) {
	e := NewEngine(threeLines(), newFakeLibraries(), Options{Debugging: true})
	e.SetBreakpoint(0)

	var lines []int
	for e.State() != StateTerminated {
		if err := e.Execute(context.Background()); err != nil {
			t.Fatal(err)
		}
		if e.State() == StatePaused {
			lines = append(lines, e.GetSnapshot().CurrentSourceLine)
			e.Continue(true)
		}
	}
	want := []int{0, 1, 2}
	if len(lines) != len(want) {
		t.Fatalf("paused at %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("paused at %v, want %v", lines, want)
		}
	}
}

func TestEnginePauseIgnoredInRunToEnd(t *testing.T) {
	e := NewEngine(threeLines(), newFakeLibraries(), Options{})
	e.Pause()
	if e.State() != StateRunning {
		t.Errorf("state = %s, want Running", e.State())
	}

	d := NewEngine(threeLines(), newFakeLibraries(), Options{Debugging: true})
	d.Pause()
	if d.State() != StatePaused {
		t.Errorf("debugging engine state = %s, want Paused", d.State())
	}
}

func TestEngineTerminatedIsAbsorbing(t *testing.T) {
	e := NewEngine(threeLines(), newFakeLibraries(), Options{Debugging: true})
	e.Terminate()
	e.Pause()
	if err := e.Execute(context.Background()); err != nil || e.State() != StateTerminated {
		t.Errorf("terminated engine: %v, %s", err, e.State())
	}
	defer func() {
		if recover() == nil {
			t.Error("Continue on a terminated engine should panic")
		}
	}()
	e.Continue(false)
}

// ---------------------------------------------------------------------------
// Sub-modules and events
// ---------------------------------------------------------------------------

func eventProgram() *Program {
	return &Program{
		Main: &Module{Name: MainModuleName, Instructions: []Instruction{
			{Op: OpPushLiteral, Text: "0", Range: at(0)},
			{Op: OpStoreVariable, Text: "n", Range: at(0)},
			{Op: OpBindEvent, Library: "Timer", Member: "Tick", Text: "OnTick", Range: at(0)},
			{Op: OpInvokeSubModule, Text: "OnTick", Range: at(1)},
		}},
		SubModules: map[string]*Module{
			"OnTick": {Name: "OnTick", Instructions: []Instruction{
				{Op: OpLoadVariable, Text: "n", Range: at(3)},
				{Op: OpPushLiteral, Text: "1", Range: at(3)},
				{Op: OpAdd, Range: at(3)},
				{Op: OpStoreVariable, Text: "n", Range: at(3)},
			}},
		},
		ListensToEvents: true,
	}
}

func TestEngineEventsRunWhenIdle(t *testing.T) {
	libs := newFakeLibraries()
	e := NewEngine(eventProgram(), libs, Options{})
	runToCompletion(t, e)

	if !e.IsIdle() {
		t.Fatalf("engine should idle, state %s", e.State())
	}
	if got := e.Variable("n").ToDisplayString(); got != "1" {
		t.Errorf("n = %q, want 1", got)
	}

	libs.raise("Timer", "Tick")
	libs.raise("Timer", "Unbound")
	runToCompletion(t, e)
	if got := e.Variable("n").ToDisplayString(); got != "2" {
		t.Errorf("n = %q, want 2", got)
	}
}

func TestEngineEventPolicies(t *testing.T) {
	tests := []struct {
		policy EventPolicy
		frames int
	}{
		{EventsReplace, 1},
		{EventsStack, 2},
	}
	for _, tt := range tests {
		e := NewEngine(eventProgram(), newFakeLibraries(), Options{EventPolicy: tt.policy})
		runToCompletion(t, e)

		e.RaiseEvent("Timer", "Tick")
		e.RaiseEvent("Timer", "Tick")
		if got := len(e.GetSnapshot().ExecutionStack); got != tt.frames {
			t.Errorf("policy %d: %d frames, want %d", tt.policy, got, tt.frames)
		}
	}
}

// midExpressionProgram suspends main between its operands: y = 100 + a call.
// The OnTick handler does the same for z = 1 + a call.
func midExpressionProgram() *Program {
	random := func(line int) Instruction {
		return Instruction{Op: OpInvokeMethod, Library: "Math", Member: "GetRandomNumber", Count: 1, HasValue: true, Range: at(line)}
	}
	return &Program{
		Main: &Module{Name: MainModuleName, Instructions: []Instruction{
			{Op: OpBindEvent, Library: "Timer", Member: "Tick", Text: "OnTick", Range: at(0)},
			{Op: OpPushLiteral, Text: "100", Range: at(1)},
			{Op: OpPushLiteral, Text: "10", Range: at(1)},
			random(1),
			{Op: OpAdd, Range: at(1)},
			{Op: OpStoreVariable, Text: "y", Range: at(1)},
		}},
		SubModules: map[string]*Module{
			"OnTick": {Name: "OnTick", Instructions: []Instruction{
				{Op: OpPushLiteral, Text: "1", Range: at(3)},
				{Op: OpPushLiteral, Text: "10", Range: at(3)},
				random(3),
				{Op: OpAdd, Range: at(3)},
				{Op: OpStoreVariable, Text: "z", Range: at(3)},
			}},
		},
		ListensToEvents: true,
	}
}

func TestEngineEventsDuringPendingExpression(t *testing.T) {
	tests := []struct {
		name   string
		policy EventPolicy
		frames int
	}{
		{"replace", EventsReplace, 2},
		{"stack", EventsStack, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			libs := newFakeLibraries()
			libs.results["Math.GetRandomNumber"] = NumberFromInt(5)
			e := NewEngine(midExpressionProgram(), libs, Options{EventPolicy: tt.policy})

			// Main stops after the call with 100 and 5 pending.
			if err := e.Execute(context.Background()); err != nil {
				t.Fatal(err)
			}
			// The first handler stops the same way with 1 and 5 pending.
			e.RaiseEvent("Timer", "Tick")
			if err := e.Execute(context.Background()); err != nil {
				t.Fatal(err)
			}
			if len(e.evaluationStack) != 4 {
				t.Fatalf("evaluation stack = %v, want 4 operands", e.evaluationStack)
			}

			e.RaiseEvent("Timer", "Tick")
			if got := len(e.GetSnapshot().ExecutionStack); got != tt.frames {
				t.Errorf("%d frames, want %d", got, tt.frames)
			}
			runToCompletion(t, e)

			if got := e.Variable("y").ToDisplayString(); got != "105" {
				t.Errorf("y = %q, want 105", got)
			}
			if got := e.Variable("z").ToDisplayString(); got != "6" {
				t.Errorf("z = %q, want 6", got)
			}
			if len(e.evaluationStack) != 0 {
				t.Errorf("evaluation stack left with %v", e.evaluationStack)
			}
			if len(libs.calls) != 3 {
				t.Errorf("calls = %v, want 3", libs.calls)
			}
		})
	}
}

func TestParseEventPolicy(t *testing.T) {
	for in, want := range map[string]EventPolicy{"": EventsReplace, "replace": EventsReplace, "stack": EventsStack} {
		got, err := ParseEventPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseEventPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseEventPolicy("queue"); err == nil {
		t.Error("ParseEventPolicy(queue) should fail")
	}
}

func TestNewEnginePanicsOnInvalidProgram(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewEngine should panic on an invalid program")
		}
	}()
	NewEngine(mainProgram(Instruction{Op: OpJump, Target: 9}), newFakeLibraries(), Options{})
}

func TestSnapshotString(t *testing.T) {
	e := NewEngine(threeLines(), newFakeLibraries(), Options{Debugging: true})
	e.SetBreakpoint(1)
	if err := e.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := e.GetSnapshot().String()
	for _, want := range []string{"Paused at line 2", "in (main) @2", "a = 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("snapshot %q missing %q", got, want)
		}
	}
}
