package vm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// FrameInfo describes one execution stack entry for display.
type FrameInfo struct {
	Module           string
	InstructionIndex int
	Line             int // -1 once the frame has run off its module's end
}

// Snapshot is a read-only copy of engine state for debuggers.
type Snapshot struct {
	EngineID          uuid.UUID
	State             ExecutionState
	Mode              ExecutionMode
	CurrentSourceLine int
	ExecutionStack    []FrameInfo // bottom first
	Memory            map[string]Value
}

// GetSnapshot copies the engine's current state.
func (e *Engine) GetSnapshot() Snapshot {
	s := Snapshot{
		EngineID:          e.ID,
		State:             e.state,
		Mode:              e.mode,
		CurrentSourceLine: e.currentLine,
		ExecutionStack:    make([]FrameInfo, len(e.executionStack)),
		Memory:            make(map[string]Value, len(e.memory)),
	}
	for i, f := range e.executionStack {
		line := -1
		if f.InstructionIndex < len(f.Module.Instructions) {
			line = f.Module.Instructions[f.InstructionIndex].Range.Line
		}
		s.ExecutionStack[i] = FrameInfo{Module: f.Module.Name, InstructionIndex: f.InstructionIndex, Line: line}
	}
	for name, v := range e.memory {
		s.Memory[name] = v
	}
	return s
}

// String renders the snapshot the way the step debugger prints it.
func (s Snapshot) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at line %d\n", s.State, s.CurrentSourceLine+1)
	for i := len(s.ExecutionStack) - 1; i >= 0; i-- {
		f := s.ExecutionStack[i]
		name := f.Module
		if name == MainModuleName {
			name = "(main)"
		}
		fmt.Fprintf(&sb, "  in %s @%d\n", name, f.InstructionIndex)
	}
	names := make([]string, 0, len(s.Memory))
	for name := range s.Memory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "  %s = %s\n", name, s.Memory[name].ToDisplayString())
	}
	return sb.String()
}
