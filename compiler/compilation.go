package compiler

import (
	"fmt"
	"sort"

	"github.com/chazu/superbasic/library"
	"github.com/chazu/superbasic/vm"
)

// Compilation is the result of compiling one program text. It always holds
// a complete tree; a program can only be run when Diagnostics is empty.
type Compilation struct {
	Text        string
	Diagnostics []Diagnostic
	Analysis    RuntimeAnalysis

	Syntax     *StatementBlock
	MainModule *BoundStatementBlock
	SubModules map[string]*BoundSubModule
}

// Compile scans, parses and binds text. isRunningOnDesktop enables library
// members that need desktop services.
func Compile(text string, isRunningOnDesktop bool, registry *library.Registry) *Compilation {
	var diags DiagnosticBag
	syntax := Parse(text, &diags)
	bound := Bind(syntax, registry, isRunningOnDesktop, &diags)
	return &Compilation{
		Text:        text,
		Diagnostics: diags.Contents(),
		Analysis:    Analyze(bound),
		Syntax:      syntax,
		MainModule:  bound.MainModule,
		SubModules:  bound.SubModules,
	}
}

// HasErrors reports whether any diagnostic was produced.
func (c *Compilation) HasErrors() bool { return len(c.Diagnostics) > 0 }

// Program emits the executable program. It panics when the compilation has
// diagnostics.
func (c *Compilation) Program() *vm.Program {
	if c.HasErrors() {
		panic(fmt.Sprintf("compiler: cannot emit a program with %d diagnostics", len(c.Diagnostics)))
	}
	p := &vm.Program{
		Main:               EmitModule(vm.MainModuleName, c.MainModule),
		SubModules:         make(map[string]*vm.Module, len(c.SubModules)),
		UsesTextWindow:     c.Analysis.UsesTextWindow,
		UsesGraphicsWindow: c.Analysis.UsesGraphicsWindow,
		ListensToEvents:    c.Analysis.ListensToEvents,
	}
	for _, name := range sortedNames(c.SubModules) {
		p.SubModules[name] = EmitModule(name, c.SubModules[name].Body)
	}
	return p
}

// NewEngine emits the program and creates an engine for it. It panics when
// the compilation has diagnostics.
func (c *Compilation) NewEngine(libraries vm.Libraries, isDebugging bool) *vm.Engine {
	return vm.NewEngine(c.Program(), libraries, vm.Options{Debugging: isDebugging})
}

func sortedNames(subs map[string]*BoundSubModule) []string {
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
