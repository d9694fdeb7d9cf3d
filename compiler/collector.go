package compiler

// VariablesAndSubModulesCollector gathers the program-level names the binder
// resolves identifiers against: every sub-module and every variable that is
// assigned somewhere (including For loop counters and array bases).
type VariablesAndSubModulesCollector struct {
	SubModules        map[string]*SubModuleStatement
	AssignedVariables map[string]bool

	diagnostics *DiagnosticBag
}

// CollectNames walks the program once and reports duplicate sub-modules.
func CollectNames(program *StatementBlock, diags *DiagnosticBag) *VariablesAndSubModulesCollector {
	c := &VariablesAndSubModulesCollector{
		SubModules:        make(map[string]*SubModuleStatement),
		AssignedVariables: make(map[string]bool),
		diagnostics:       diags,
	}
	Inspect(program, c.visit)
	return c
}

func (c *VariablesAndSubModulesCollector) visit(node Node) bool {
	switch n := node.(type) {
	case *SubModuleStatement:
		name := n.Name.Text
		if name == "" {
			return true
		}
		if _, dup := c.SubModules[name]; dup {
			c.diagnostics.Report(TwoSubModulesWithTheSameName, n.Name.Range, name)
		} else {
			c.SubModules[name] = n
		}
	case *AssignmentStatement:
		if name, ok := assignedName(n.Target); ok {
			c.AssignedVariables[name] = true
		}
	case *ForStatement:
		if n.Identifier.Text != "" {
			c.AssignedVariables[n.Identifier.Text] = true
		}
	}
	return true
}

// assignedName returns the variable written by an assignment target: the
// identifier itself or the innermost base of an array access chain.
func assignedName(target Expression) (string, bool) {
	for {
		switch t := target.(type) {
		case *IdentifierExpression:
			return t.Identifier.Text, true
		case *ArrayAccessExpression:
			target = t.Base
		default:
			return "", false
		}
	}
}
