package compiler

import (
	"fmt"

	"github.com/chazu/superbasic/library"
	"github.com/chazu/superbasic/vm"
)

// ---------------------------------------------------------------------------
// Codegen: emit bound modules as flat instruction lists
// ---------------------------------------------------------------------------

// Emitter emits one module. Jumps name labels while emitting and are
// resolved to instruction indices when the module is finished.
type Emitter struct {
	instructions []vm.Instruction
	labels       map[string]int
	generated    int
}

// EmitModule compiles a bound block into a module named name.
func EmitModule(name string, block *BoundStatementBlock) *vm.Module {
	e := &Emitter{labels: make(map[string]int)}
	e.emitBlock(block)
	for i := range e.instructions {
		in := &e.instructions[i]
		if in.Op.Kind() != vm.Jump {
			continue
		}
		target, ok := e.labels[in.Label]
		if !ok {
			panic(fmt.Sprintf("compiler: module %s: undefined label %q", name, in.Label))
		}
		in.Target = target
	}
	return &vm.Module{Name: name, Instructions: e.instructions}
}

func sourceRange(r TextRange) vm.SourceRange {
	end := r.End.Column
	if r.End.Line != r.Start.Line {
		end = r.Start.Column
	}
	return vm.SourceRange{Line: r.Start.Line, StartColumn: r.Start.Column, EndColumn: end}
}

func (e *Emitter) emit(in vm.Instruction, rng TextRange) {
	in.Range = sourceRange(rng)
	e.instructions = append(e.instructions, in)
}

func (e *Emitter) emitOp(op vm.Opcode, rng TextRange) {
	e.emit(vm.Instruction{Op: op}, rng)
}

func (e *Emitter) emitJump(op vm.Opcode, label string, rng TextRange) {
	e.emit(vm.Instruction{Op: op, Label: label}, rng)
}

// emitTrailingJump emits a jump on the line of the previous instruction so
// that leaving a block does not count as reaching a new line.
func (e *Emitter) emitTrailingJump(label string, fallback TextRange) {
	in := vm.Instruction{Op: vm.OpJump, Label: label}
	if n := len(e.instructions); n > 0 {
		in.Range = e.instructions[n-1].Range
	} else {
		in.Range = sourceRange(fallback)
	}
	e.instructions = append(e.instructions, in)
}

// newLabel returns a fresh generated label. The '$' prefix keeps generated
// labels apart from user labels.
func (e *Emitter) newLabel() string {
	e.generated++
	return fmt.Sprintf("$%d", e.generated)
}

func (e *Emitter) mark(label string) {
	e.labels[label] = len(e.instructions)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (e *Emitter) emitBlock(block *BoundStatementBlock) {
	for _, stmt := range block.Statements {
		e.emitStatement(stmt)
	}
}

func (e *Emitter) emitStatement(stmt BoundStatement) {
	switch n := stmt.(type) {
	case *BoundIfStatement:
		e.emitIf(n)

	case *BoundWhileStatement:
		header := n.Node.HeaderRng
		start, end := e.newLabel(), e.newLabel()
		e.mark(start)
		e.emitExpression(n.Condition, header)
		e.emitJump(vm.OpJumpIfFalse, end, header)
		e.emitBlock(n.Body)
		e.emitJump(vm.OpJump, start, header)
		e.mark(end)

	case *BoundForStatement:
		e.emitFor(n)

	case *BoundLabelStatement:
		e.mark(n.Label)

	case *BoundGoToStatement:
		e.emitJump(vm.OpJump, n.Label, n.Node.Rng)

	case *BoundInvocationStatement:
		e.emitExpression(n.Invocation, n.Node.Rng)

	case *BoundVariableAssignment:
		e.emitExpression(n.Value, n.Node.Rng)
		e.emit(vm.Instruction{Op: vm.OpStoreVariable, Text: n.Variable}, n.Node.Rng)

	case *BoundArrayAssignment:
		for _, idx := range n.Target.Indices {
			e.emitExpression(idx, n.Node.Rng)
		}
		e.emitExpression(n.Value, n.Node.Rng)
		e.emit(vm.Instruction{Op: vm.OpStoreArrayElement, Text: n.Target.Name, Count: len(n.Target.Indices)}, n.Node.Rng)

	case *BoundPropertyAssignment:
		e.emitExpression(n.Value, n.Node.Rng)
		e.emit(vm.Instruction{
			Op:      vm.OpStoreProperty,
			Library: n.Property.Library.Name,
			Member:  n.Property.Property.Name,
		}, n.Node.Rng)

	case *BoundEventAssignment:
		e.emit(vm.Instruction{
			Op:      vm.OpBindEvent,
			Library: n.Event.Library.Name,
			Member:  n.Event.Event.Name,
			Text:    n.SubModule,
		}, n.Node.Rng)

	default:
		panic(fmt.Sprintf("compiler: cannot emit %T", stmt))
	}
}

func (e *Emitter) emitIf(n *BoundIfStatement) {
	end := e.newLabel()
	for _, part := range n.Parts {
		next := e.newLabel()
		e.emitExpression(part.Condition, part.Node.Rng)
		e.emitJump(vm.OpJumpIfFalse, next, part.Node.Rng)
		e.emitBlock(part.Body)
		e.emitTrailingJump(end, part.Node.Rng)
		e.mark(next)
	}
	if n.ElseBody != nil {
		e.emitBlock(n.ElseBody)
	}
	e.mark(end)
}

// emitFor lowers a For loop. The step sign picks the comparison each
// iteration, so a loop with a computed step may run either direction.
//
//	from; Store x
//	start: step; 0; >=; JumpIfFalse negative
//	       Load x; to; <=; JumpIfFalse end; Jump body
//	negative: Load x; to; >=; JumpIfFalse end
//	body: ...
//	       Load x; step; Add; Store x; Jump start
//	end:
func (e *Emitter) emitFor(n *BoundForStatement) {
	header := n.Node.HeaderRng
	start, negative, body, end := e.newLabel(), e.newLabel(), e.newLabel(), e.newLabel()

	step := func() {
		if n.Step != nil {
			e.emitExpression(n.Step, header)
		} else {
			e.emit(vm.Instruction{Op: vm.OpPushLiteral, Text: "1"}, header)
		}
	}
	load := func() {
		e.emit(vm.Instruction{Op: vm.OpLoadVariable, Text: n.Identifier}, header)
	}
	store := func() {
		e.emit(vm.Instruction{Op: vm.OpStoreVariable, Text: n.Identifier}, header)
	}

	e.emitExpression(n.From, header)
	store()

	e.mark(start)
	step()
	e.emit(vm.Instruction{Op: vm.OpPushLiteral, Text: "0"}, header)
	e.emitOp(vm.OpGreaterThanOrEqual, header)
	e.emitJump(vm.OpJumpIfFalse, negative, header)
	load()
	e.emitExpression(n.To, header)
	e.emitOp(vm.OpLessThanOrEqual, header)
	e.emitJump(vm.OpJumpIfFalse, end, header)
	e.emitJump(vm.OpJump, body, header)

	e.mark(negative)
	load()
	e.emitExpression(n.To, header)
	e.emitOp(vm.OpGreaterThanOrEqual, header)
	e.emitJump(vm.OpJumpIfFalse, end, header)

	e.mark(body)
	e.emitBlock(n.Body)
	load()
	step()
	e.emitOp(vm.OpAdd, header)
	store()
	e.emitJump(vm.OpJump, start, header)
	e.mark(end)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

var binaryOpcodes = map[TokenKind]vm.Opcode{
	TokenPlus:               vm.OpAdd,
	TokenMinus:              vm.OpSubtract,
	TokenMultiply:           vm.OpMultiply,
	TokenDivide:             vm.OpDivide,
	TokenEqual:              vm.OpEqual,
	TokenNotEqual:           vm.OpNotEqual,
	TokenLessThan:           vm.OpLessThan,
	TokenGreaterThan:        vm.OpGreaterThan,
	TokenLessThanOrEqual:    vm.OpLessThanOrEqual,
	TokenGreaterThanOrEqual: vm.OpGreaterThanOrEqual,
	TokenAnd:                vm.OpAnd,
	TokenOr:                 vm.OpOr,
}

// emitExpression emits expr; every instruction carries the statement range.
func (e *Emitter) emitExpression(expr BoundExpression, rng TextRange) {
	switch n := expr.(type) {
	case *BoundLiteralExpression:
		e.emit(vm.Instruction{Op: vm.OpPushLiteral, Text: n.Text}, rng)

	case *BoundVariableExpression:
		e.emit(vm.Instruction{Op: vm.OpLoadVariable, Text: n.Name}, rng)

	case *BoundArrayAccessExpression:
		for _, idx := range n.Indices {
			e.emitExpression(idx, rng)
		}
		e.emit(vm.Instruction{Op: vm.OpLoadArrayElement, Text: n.Name, Count: len(n.Indices)}, rng)

	case *BoundIndexExpression:
		e.emitExpression(n.Base, rng)
		for _, idx := range n.Indices {
			e.emitExpression(idx, rng)
		}
		e.emit(vm.Instruction{Op: vm.OpIndexValue, Count: len(n.Indices)}, rng)

	case *BoundLibraryPropertyExpression:
		e.emit(vm.Instruction{Op: vm.OpLoadProperty, Library: n.Library.Name, Member: n.Property.Name}, rng)

	case *BoundMethodInvocationExpression:
		for _, arg := range n.Arguments {
			e.emitExpression(arg, rng)
		}
		method := n.Method.Method
		switch method.Input {
		case library.InputString:
			e.emitOp(vm.OpBlockOnStringInput, rng)
		case library.InputNumber:
			e.emitOp(vm.OpBlockOnNumberInput, rng)
		}
		e.emit(vm.Instruction{
			Op:       vm.OpInvokeMethod,
			Library:  n.Method.Library.Name,
			Member:   method.Name,
			Count:    len(n.Arguments),
			HasValue: method.ReturnsValue,
		}, rng)

	case *BoundSubModuleInvocationExpression:
		e.emit(vm.Instruction{Op: vm.OpInvokeSubModule, Text: n.Name}, rng)

	case *BoundUnaryExpression:
		e.emitExpression(n.Operand, rng)
		e.emitOp(vm.OpNegate, rng)

	case *BoundBinaryExpression:
		op, ok := binaryOpcodes[n.Operator]
		if !ok {
			panic(fmt.Sprintf("compiler: no opcode for operator %s", n.Operator))
		}
		e.emitExpression(n.Left, rng)
		e.emitExpression(n.Right, rng)
		e.emitOp(op, rng)

	default:
		panic(fmt.Sprintf("compiler: cannot emit %T", expr))
	}
}
