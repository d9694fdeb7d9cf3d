package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Engine: a pausable stack machine for one program
// ---------------------------------------------------------------------------

// ExecutionState is the engine's position in its state machine. Terminated
// is absorbing.
type ExecutionState int

const (
	StateRunning ExecutionState = iota
	StatePaused
	StateBlockedOnStringInput
	StateBlockedOnNumberInput
	StateTerminated
)

func (s ExecutionState) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateBlockedOnStringInput:
		return "BlockedOnStringInput"
	case StateBlockedOnNumberInput:
		return "BlockedOnNumberInput"
	case StateTerminated:
		return "Terminated"
	}
	return fmt.Sprintf("ExecutionState(%d)", int(s))
}

// ExecutionMode controls when a running engine pauses by itself.
type ExecutionMode int

const (
	// ModeRunToEnd never pauses.
	ModeRunToEnd ExecutionMode = iota
	// ModeDebug pauses on Pause requests and breakpoints.
	ModeDebug
	// ModeNextLine pauses before the first instruction of every new line.
	ModeNextLine
)

func (m ExecutionMode) String() string {
	switch m {
	case ModeRunToEnd:
		return "RunToEnd"
	case ModeDebug:
		return "Debug"
	case ModeNextLine:
		return "NextLine"
	}
	return fmt.Sprintf("ExecutionMode(%d)", int(m))
}

// EventPolicy decides what happens to a handler that is already on the
// execution stack when its event is raised again.
type EventPolicy int

const (
	// EventsReplace removes the older frames for the handler first.
	EventsReplace EventPolicy = iota
	// EventsStack leaves them and pushes another frame on top.
	EventsStack
)

// ParseEventPolicy maps "replace" and "stack" to a policy.
func ParseEventPolicy(s string) (EventPolicy, error) {
	switch s {
	case "", "replace":
		return EventsReplace, nil
	case "stack":
		return EventsStack, nil
	}
	return 0, fmt.Errorf("unknown event policy %q (want \"replace\" or \"stack\")", s)
}

// Frame is an instruction pointer into one module. Its operands occupy the
// evaluation stack from stackBase up to the next frame's base.
type Frame struct {
	Module           *Module
	InstructionIndex int

	stackBase int
}

type eventKey struct {
	library string
	event   string
}

// Options configure a new engine.
type Options struct {
	Debugging   bool
	EventPolicy EventPolicy
}

// Engine executes a Program. It is single-writer: the host must serialize
// every call, including event callbacks raised by libraries.
type Engine struct {
	ID uuid.UUID

	program   *Program
	libraries Libraries
	policy    EventPolicy
	log       commonlog.Logger

	state ExecutionState
	mode  ExecutionMode

	executionStack  []*Frame
	evaluationStack []Value
	memory          map[string]Value
	eventCallbacks  map[eventKey]string
	breakpoints     map[int]bool

	currentLine int
}

// NewEngine creates an engine positioned at the start of the main module.
// It panics when the program fails validation.
func NewEngine(program *Program, libraries Libraries, opts Options) *Engine {
	if err := program.Validate(); err != nil {
		panic(fmt.Sprintf("vm: invalid program: %v", err))
	}
	e := &Engine{
		ID:             uuid.New(),
		program:        program,
		libraries:      libraries,
		policy:         opts.EventPolicy,
		log:            commonlog.GetLogger("superbasic.vm"),
		memory:         make(map[string]Value),
		eventCallbacks: make(map[eventKey]string),
		breakpoints:    make(map[int]bool),
		currentLine:    -1,
	}
	if opts.Debugging {
		e.mode = ModeDebug
	}
	e.pushFrame(program.Main)
	libraries.SetEventCallbacks(e.RaiseEvent)
	e.log.Debugf("engine %s created (mode %s, events %d)", e.ID, e.mode, e.policy)
	return e
}

// State returns the current execution state.
func (e *Engine) State() ExecutionState { return e.state }

// Mode returns the current execution mode.
func (e *Engine) Mode() ExecutionMode { return e.mode }

// Program returns the program being executed.
func (e *Engine) Program() *Program { return e.program }

// IsIdle reports whether the engine is running with nothing to do, waiting
// for an event.
func (e *Engine) IsIdle() bool {
	return e.state == StateRunning && len(e.executionStack) == 0
}

// Variable returns the value stored in a global variable.
func (e *Engine) Variable(name string) Value {
	if v, ok := e.memory[name]; ok {
		return v
	}
	return Blank
}

// SetBreakpoint makes a debugging engine pause before running line.
func (e *Engine) SetBreakpoint(line int) { e.breakpoints[line] = true }

// ClearBreakpoints removes every breakpoint.
func (e *Engine) ClearBreakpoints() { e.breakpoints = make(map[int]bool) }

func (e *Engine) setState(s ExecutionState) {
	if e.state == s {
		return
	}
	if e.state == StateTerminated {
		panic(fmt.Sprintf("vm: engine %s: transition from Terminated to %s", e.ID, s))
	}
	e.log.Debugf("engine %s: %s -> %s", e.ID, e.state, s)
	e.state = s
}

// ---------------------------------------------------------------------------
// Host controls
// ---------------------------------------------------------------------------

// Execute runs one burst. It returns when the engine pauses, blocks,
// terminates or goes idle, after each async instruction, or when ctx is
// done. A library failure terminates the engine and is returned.
func (e *Engine) Execute(ctx context.Context) error {
	for e.state == StateRunning {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(e.executionStack) == 0 {
			if e.program.ListensToEvents {
				return nil
			}
			e.setState(StateTerminated)
			return nil
		}

		frame := e.executionStack[len(e.executionStack)-1]
		if frame.InstructionIndex >= len(frame.Module.Instructions) {
			e.executionStack = e.executionStack[:len(e.executionStack)-1]
			continue
		}

		in := frame.Module.Instructions[frame.InstructionIndex]
		if line := in.Range.Line; line != e.currentLine {
			e.currentLine = line
			if e.mode == ModeNextLine || (e.mode == ModeDebug && e.breakpoints[line]) {
				e.setState(StatePaused)
				return nil
			}
		}

		async, err := e.step(ctx, frame, in)
		if err != nil {
			e.Terminate()
			if errors.Is(err, ErrProgramEnded) {
				return nil
			}
			e.log.Errorf("engine %s: %v", e.ID, err)
			return err
		}
		if async {
			return nil
		}
	}
	return nil
}

// Pause asks a debugging engine to stop before its next instruction. It has
// no effect in RunToEnd mode or when the engine is not running.
func (e *Engine) Pause() {
	if e.mode == ModeRunToEnd || e.state != StateRunning {
		return
	}
	e.setState(StatePaused)
}

// Continue resumes a paused engine. A debugging engine then pauses again at
// the next line when pauseAtNextLine is set.
func (e *Engine) Continue(pauseAtNextLine bool) {
	if e.state != StatePaused {
		panic(fmt.Sprintf("vm: engine %s: Continue while %s", e.ID, e.state))
	}
	if e.mode != ModeRunToEnd {
		if pauseAtNextLine {
			e.mode = ModeNextLine
		} else {
			e.mode = ModeDebug
		}
	}
	e.setState(StateRunning)
}

// InputReceived resumes an engine blocked on input. The host must already
// have handed the input to the libraries.
func (e *Engine) InputReceived() {
	if e.state != StateBlockedOnStringInput && e.state != StateBlockedOnNumberInput {
		panic(fmt.Sprintf("vm: engine %s: InputReceived while %s", e.ID, e.state))
	}
	e.setState(StateRunning)
}

// Terminate clears the execution stack and stops the engine for good.
func (e *Engine) Terminate() {
	e.executionStack = nil
	e.evaluationStack = nil
	if e.state != StateTerminated {
		e.setState(StateTerminated)
	}
}

// RaiseEvent pushes a frame for the sub-module bound to library.event. It
// only changes state; the next Execute runs the handler.
func (e *Engine) RaiseEvent(library, event string) {
	if e.state == StateTerminated {
		return
	}
	name, ok := e.eventCallbacks[eventKey{library, event}]
	if !ok {
		return
	}
	module := e.program.SubModules[name]
	if e.policy == EventsReplace {
		for i := len(e.executionStack) - 1; i >= 0; i-- {
			if e.executionStack[i].Module == module {
				e.removeFrame(i)
			}
		}
	}
	e.log.Debugf("engine %s: %s.%s -> %s", e.ID, library, event, name)
	e.pushFrame(module)
}

func (e *Engine) pushFrame(m *Module) {
	e.executionStack = append(e.executionStack, &Frame{Module: m, stackBase: len(e.evaluationStack)})
}

// removeFrame deletes the frame at index i of the execution stack together
// with the operands it left on the evaluation stack.
func (e *Engine) removeFrame(i int) {
	start, end := e.executionStack[i].stackBase, len(e.evaluationStack)
	if i+1 < len(e.executionStack) {
		end = e.executionStack[i+1].stackBase
	}
	if dropped := end - start; dropped > 0 {
		e.evaluationStack = append(e.evaluationStack[:start], e.evaluationStack[end:]...)
		for _, above := range e.executionStack[i+1:] {
			above.stackBase -= dropped
		}
	}
	copy(e.executionStack[i:], e.executionStack[i+1:])
	e.executionStack[len(e.executionStack)-1] = nil
	e.executionStack = e.executionStack[:len(e.executionStack)-1]
}

// ---------------------------------------------------------------------------
// Instruction execution
// ---------------------------------------------------------------------------

func (e *Engine) push(v Value) {
	e.evaluationStack = append(e.evaluationStack, v)
}

func (e *Engine) pop() Value {
	n := len(e.evaluationStack)
	if n == 0 {
		panic(fmt.Sprintf("vm: engine %s: evaluation stack underflow", e.ID))
	}
	v := e.evaluationStack[n-1]
	e.evaluationStack = e.evaluationStack[:n-1]
	return v
}

// popN pops n values, returning them in push order.
func (e *Engine) popN(n int) []Value {
	if n == 0 {
		return nil
	}
	if len(e.evaluationStack) < n {
		panic(fmt.Sprintf("vm: engine %s: evaluation stack underflow", e.ID))
	}
	start := len(e.evaluationStack) - n
	out := make([]Value, n)
	copy(out, e.evaluationStack[start:])
	e.evaluationStack = e.evaluationStack[:start]
	return out
}

// step runs one instruction of frame. It reports whether the instruction
// was async, which ends the burst.
func (e *Engine) step(ctx context.Context, frame *Frame, in Instruction) (bool, error) {
	switch in.Op.Kind() {
	case Jump:
		e.jump(frame, in)
		return false, nil
	case AsyncNonJump:
		frame.InstructionIndex++
		return true, e.invokeMethod(ctx, in)
	}

	frame.InstructionIndex++
	switch in.Op {
	case OpPushLiteral:
		e.push(CreateValue(in.Text))

	case OpLoadVariable:
		e.push(e.Variable(in.Text))

	case OpStoreVariable:
		e.memory[in.Text] = e.pop()

	case OpLoadArrayElement:
		indices := e.popN(in.Count)
		e.push(GetPath(e.Variable(in.Text), indices))

	case OpStoreArrayElement:
		value := e.pop()
		indices := e.popN(in.Count)
		e.memory[in.Text] = SetPath(e.Variable(in.Text), indices, value)

	case OpIndexValue:
		indices := e.popN(in.Count)
		e.push(GetPath(e.pop(), indices))

	case OpNegate:
		e.push(Negate(e.pop()))

	case OpLoadProperty:
		v, err := e.libraries.GetProperty(ctx, in.Library, in.Member)
		if err != nil {
			return false, &LibraryError{Library: in.Library, Member: in.Member, Range: in.Range, Err: err}
		}
		e.push(orBlank(v))

	case OpStoreProperty:
		if err := e.libraries.SetProperty(ctx, in.Library, in.Member, e.pop()); err != nil {
			return false, &LibraryError{Library: in.Library, Member: in.Member, Range: in.Range, Err: err}
		}

	case OpBindEvent:
		e.eventCallbacks[eventKey{in.Library, in.Member}] = in.Text

	case OpInvokeSubModule:
		e.pushFrame(e.program.SubModules[in.Text])

	case OpBlockOnStringInput:
		e.setState(StateBlockedOnStringInput)

	case OpBlockOnNumberInput:
		e.setState(StateBlockedOnNumberInput)

	default:
		op, ok := binaryOps[in.Op]
		if !ok {
			panic(fmt.Sprintf("vm: engine %s: unexpected opcode %s", e.ID, in.Op))
		}
		right := e.pop()
		left := e.pop()
		e.push(op(left, right))
	}
	return false, nil
}

func (e *Engine) jump(frame *Frame, in Instruction) {
	switch in.Op {
	case OpJump:
		frame.InstructionIndex = in.Target
	case OpJumpIfTrue:
		if e.pop().ToBoolean() {
			frame.InstructionIndex = in.Target
		} else {
			frame.InstructionIndex++
		}
	case OpJumpIfFalse:
		if !e.pop().ToBoolean() {
			frame.InstructionIndex = in.Target
		} else {
			frame.InstructionIndex++
		}
	}
}

func (e *Engine) invokeMethod(ctx context.Context, in Instruction) error {
	args := e.popN(in.Count)
	v, err := e.libraries.InvokeMethod(ctx, in.Library, in.Member, args)
	if err != nil {
		if errors.Is(err, ErrProgramEnded) {
			return err
		}
		return &LibraryError{Library: in.Library, Member: in.Member, Range: in.Range, Err: err}
	}
	if in.HasValue {
		e.push(orBlank(v))
	}
	return nil
}

func orBlank(v Value) Value {
	if v == nil {
		return Blank
	}
	return v
}
