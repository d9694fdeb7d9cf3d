package vm

import (
	"fmt"
	"sort"
	"strings"
)

// MainModuleName names the main program module. It cannot collide with a
// sub-module because identifiers never contain '$'.
const MainModuleName = "$Main"

// Module is one compiled unit: the main program or a sub-module.
type Module struct {
	Name         string        `cbor:"1,keyasint"`
	Instructions []Instruction `cbor:"2,keyasint"`
}

// Disassemble returns a numbered instruction listing.
func (m *Module) Disassemble() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", m.Name)
	for i, in := range m.Instructions {
		fmt.Fprintf(&sb, "  %04d  %-8s %s\n", i, in.Range, in)
	}
	return sb.String()
}

// Program is a complete executable program and what it needs from its host.
type Program struct {
	Main               *Module            `cbor:"1,keyasint"`
	SubModules         map[string]*Module `cbor:"2,keyasint"`
	UsesTextWindow     bool               `cbor:"3,keyasint"`
	UsesGraphicsWindow bool               `cbor:"4,keyasint"`
	ListensToEvents    bool               `cbor:"5,keyasint"`
}

// SubModuleNames returns the sub-module names, sorted.
func (p *Program) SubModuleNames() []string {
	names := make([]string, 0, len(p.SubModules))
	for name := range p.SubModules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Disassemble lists every module of the program.
func (p *Program) Disassemble() string {
	var sb strings.Builder
	sb.WriteString(p.Main.Disassemble())
	for _, name := range p.SubModuleNames() {
		sb.WriteString(p.SubModules[name].Disassemble())
	}
	return sb.String()
}

// Validate checks the structural invariants the engine relies on: known
// opcodes, in-range jump targets, non-negative operand counts and existing
// sub-module references.
func (p *Program) Validate() error {
	if p.Main == nil {
		return fmt.Errorf("program has no main module")
	}
	check := func(m *Module) error {
		for i, in := range m.Instructions {
			if !in.Op.Valid() {
				return fmt.Errorf("%s[%d]: unknown opcode %s", m.Name, i, in.Op)
			}
			if in.Count < 0 {
				return fmt.Errorf("%s[%d]: negative count %d", m.Name, i, in.Count)
			}
			if in.Op.Kind() == Jump && (in.Target < 0 || in.Target > len(m.Instructions)) {
				return fmt.Errorf("%s[%d]: jump target %d out of range", m.Name, i, in.Target)
			}
			if (in.Op == OpStoreArrayElement || in.Op == OpIndexValue) && in.Count == 0 {
				return fmt.Errorf("%s[%d]: %s needs at least one index", m.Name, i, in.Op)
			}
			if in.Op == OpInvokeSubModule || in.Op == OpBindEvent {
				if _, ok := p.SubModules[in.Text]; !ok {
					return fmt.Errorf("%s[%d]: unknown sub-module %q", m.Name, i, in.Text)
				}
			}
		}
		return nil
	}
	if err := check(p.Main); err != nil {
		return err
	}
	for _, name := range p.SubModuleNames() {
		m := p.SubModules[name]
		if m == nil || m.Name != name {
			return fmt.Errorf("sub-module %q is malformed", name)
		}
		if err := check(m); err != nil {
			return err
		}
	}
	return nil
}
