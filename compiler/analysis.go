package compiler

// RuntimeAnalysis describes what a program needs from its host.
type RuntimeAnalysis struct {
	UsesTextWindow     bool
	UsesGraphicsWindow bool
	ListensToEvents    bool
}

// Analyze walks every bound module for library references and event handler
// assignments. A program that references neither window uses the text one.
func Analyze(program *BoundProgram) RuntimeAnalysis {
	var a RuntimeAnalysis
	visit := func(node BoundNode) bool {
		switch n := node.(type) {
		case *BoundLibraryTypeExpression:
			a.UsesTextWindow = a.UsesTextWindow || n.Library.UsesTextWindow
			a.UsesGraphicsWindow = a.UsesGraphicsWindow || n.Library.UsesGraphicsWindow
		case *BoundLibraryMethodExpression:
			a.UsesTextWindow = a.UsesTextWindow || n.Library.UsesTextWindowFor(n.Method.Member)
			a.UsesGraphicsWindow = a.UsesGraphicsWindow || n.Library.UsesGraphicsWindowFor(n.Method.Member)
		case *BoundLibraryPropertyExpression:
			a.UsesTextWindow = a.UsesTextWindow || n.Library.UsesTextWindowFor(n.Property.Member)
			a.UsesGraphicsWindow = a.UsesGraphicsWindow || n.Library.UsesGraphicsWindowFor(n.Property.Member)
		case *BoundLibraryEventExpression:
			a.UsesTextWindow = a.UsesTextWindow || n.Library.UsesTextWindowFor(n.Event.Member)
			a.UsesGraphicsWindow = a.UsesGraphicsWindow || n.Library.UsesGraphicsWindowFor(n.Event.Member)
		case *BoundEventAssignment:
			a.ListensToEvents = true
		}
		return true
	}

	InspectBound(program.MainModule, visit)
	for _, name := range sortedNames(program.SubModules) {
		InspectBound(program.SubModules[name], visit)
	}

	if !a.UsesTextWindow && !a.UsesGraphicsWindow {
		a.UsesTextWindow = true
	}
	return a
}
