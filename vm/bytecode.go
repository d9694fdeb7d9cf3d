package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies an instruction.
type Opcode byte

// Non-jump instructions advance the instruction index, then run.
const (
	OpPushLiteral        Opcode = 0x01 // push CreateValue(Text)
	OpLoadVariable       Opcode = 0x02 // push memory[Name]
	OpStoreVariable      Opcode = 0x03 // memory[Name] = pop
	OpLoadArrayElement   Opcode = 0x04 // pop Count indices, push memory[Name][i1]...
	OpStoreArrayElement  Opcode = 0x05 // pop value, pop Count indices, store into memory[Name]
	OpIndexValue         Opcode = 0x06 // pop Count indices, pop base, push base[i1]...
	OpLoadProperty       Opcode = 0x07 // push Library.Member
	OpStoreProperty      Opcode = 0x08 // Library.Member = pop
	OpBindEvent          Opcode = 0x09 // route Library.Member events to sub-module Name
	OpInvokeSubModule    Opcode = 0x0A // push a frame for sub-module Name
	OpBlockOnStringInput Opcode = 0x0B // wait for host text input
	OpBlockOnNumberInput Opcode = 0x0C // wait for host number input
)

// Unary and binary operators pop their operands and push one result.
const (
	OpNegate             Opcode = 0x20
	OpAdd                Opcode = 0x21
	OpSubtract           Opcode = 0x22
	OpMultiply           Opcode = 0x23
	OpDivide             Opcode = 0x24
	OpEqual              Opcode = 0x25
	OpNotEqual           Opcode = 0x26
	OpLessThan           Opcode = 0x27
	OpGreaterThan        Opcode = 0x28
	OpLessThanOrEqual    Opcode = 0x29
	OpGreaterThanOrEqual Opcode = 0x2A
	OpAnd                Opcode = 0x2B
	OpOr                 Opcode = 0x2C
)

// Jump instructions set the instruction index to Target.
const (
	OpJump        Opcode = 0x40
	OpJumpIfTrue  Opcode = 0x41 // pop, jump when true
	OpJumpIfFalse Opcode = 0x42 // pop, jump when false
)

// Async instructions advance, then run an effect that may suspend.
const (
	OpInvokeMethod Opcode = 0x60 // pop Count args, call Library.Member, push result when HasValue
)

// InstructionKind groups opcodes by how they move the instruction index.
type InstructionKind int

const (
	NonJump InstructionKind = iota
	Jump
	AsyncNonJump
)

var opcodeNames = map[Opcode]string{
	OpPushLiteral:        "PushLiteral",
	OpLoadVariable:       "LoadVariable",
	OpStoreVariable:      "StoreVariable",
	OpLoadArrayElement:   "LoadArrayElement",
	OpStoreArrayElement:  "StoreArrayElement",
	OpIndexValue:         "IndexValue",
	OpLoadProperty:       "LoadProperty",
	OpStoreProperty:      "StoreProperty",
	OpBindEvent:          "BindEvent",
	OpInvokeSubModule:    "InvokeSubModule",
	OpBlockOnStringInput: "BlockOnStringInput",
	OpBlockOnNumberInput: "BlockOnNumberInput",
	OpNegate:             "Negate",
	OpAdd:                "Add",
	OpSubtract:           "Subtract",
	OpMultiply:           "Multiply",
	OpDivide:             "Divide",
	OpEqual:              "Equal",
	OpNotEqual:           "NotEqual",
	OpLessThan:           "LessThan",
	OpGreaterThan:        "GreaterThan",
	OpLessThanOrEqual:    "LessThanOrEqual",
	OpGreaterThanOrEqual: "GreaterThanOrEqual",
	OpAnd:                "And",
	OpOr:                 "Or",
	OpJump:               "Jump",
	OpJumpIfTrue:         "JumpIfTrue",
	OpJumpIfFalse:        "JumpIfFalse",
	OpInvokeMethod:       "InvokeMethod",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(0x%02X)", byte(op))
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeNames[op]
	return ok
}

// Kind returns how the opcode moves the instruction index.
func (op Opcode) Kind() InstructionKind {
	switch op {
	case OpJump, OpJumpIfTrue, OpJumpIfFalse:
		return Jump
	case OpInvokeMethod:
		return AsyncNonJump
	}
	return NonJump
}

// binaryOps maps binary opcodes to their value operators.
var binaryOps = map[Opcode]func(left, right Value) Value{
	OpAdd:                Add,
	OpSubtract:           Subtract,
	OpMultiply:           Multiply,
	OpDivide:             Divide,
	OpEqual:              Equal,
	OpNotEqual:           NotEqual,
	OpLessThan:           LessThan,
	OpGreaterThan:        GreaterThan,
	OpLessThanOrEqual:    LessThanOrEqual,
	OpGreaterThanOrEqual: GreaterThanOrEqual,
	OpAnd:                And,
	OpOr:                 Or,
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// SourceRange is the single-line source span an instruction came from.
// Lines and columns are zero-based; EndColumn is inclusive.
type SourceRange struct {
	Line        int `cbor:"1,keyasint"`
	StartColumn int `cbor:"2,keyasint"`
	EndColumn   int `cbor:"3,keyasint"`
}

func (r SourceRange) String() string {
	return fmt.Sprintf("%d:%d-%d", r.Line, r.StartColumn, r.EndColumn)
}

// Instruction is one bytecode instruction. Operand fields not used by an
// opcode are left empty.
type Instruction struct {
	Op       Opcode      `cbor:"1,keyasint"`
	Text     string      `cbor:"2,keyasint,omitempty"` // literal text or variable, array or sub-module name
	Library  string      `cbor:"3,keyasint,omitempty"`
	Member   string      `cbor:"4,keyasint,omitempty"`
	Count    int         `cbor:"5,keyasint,omitempty"` // index or argument count
	HasValue bool        `cbor:"6,keyasint,omitempty"`
	Label    string      `cbor:"7,keyasint,omitempty"` // jump label, kept for listings
	Target   int         `cbor:"8,keyasint,omitempty"` // resolved jump target
	Range    SourceRange `cbor:"9,keyasint"`
}

func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	switch in.Op {
	case OpPushLiteral:
		fmt.Fprintf(&sb, " %q", in.Text)
	case OpLoadVariable, OpStoreVariable, OpInvokeSubModule:
		fmt.Fprintf(&sb, " %s", in.Text)
	case OpLoadArrayElement, OpStoreArrayElement:
		fmt.Fprintf(&sb, " %s[%d]", in.Text, in.Count)
	case OpIndexValue:
		fmt.Fprintf(&sb, " [%d]", in.Count)
	case OpLoadProperty, OpStoreProperty:
		fmt.Fprintf(&sb, " %s.%s", in.Library, in.Member)
	case OpBindEvent:
		fmt.Fprintf(&sb, " %s.%s -> %s", in.Library, in.Member, in.Text)
	case OpInvokeMethod:
		fmt.Fprintf(&sb, " %s.%s/%d", in.Library, in.Member, in.Count)
		if in.HasValue {
			sb.WriteString(" value")
		}
	case OpJump, OpJumpIfTrue, OpJumpIfFalse:
		fmt.Fprintf(&sb, " %d (%s)", in.Target, in.Label)
	}
	return sb.String()
}
