package compiler

import (
	"strconv"

	"github.com/chazu/superbasic/library"
)

// ---------------------------------------------------------------------------
// Binder: resolves names and checks the program against the library registry
// ---------------------------------------------------------------------------

// BoundProgram is the bound main module plus every named sub-module.
type BoundProgram struct {
	MainModule *BoundStatementBlock
	SubModules map[string]*BoundSubModule
}

// Binder turns a syntax tree into a bound tree. All problems are reported to
// the shared diagnostic bag; binding always produces a complete tree.
type Binder struct {
	registry    *library.Registry
	names       *VariablesAndSubModulesCollector
	diagnostics *DiagnosticBag
	isDesktop   bool

	labels map[string]bool // labels of the module being bound

	textLibrary      string // first library seen using the text window
	graphicsLibrary  string // first library seen using the graphics window
	conflictReported bool
}

// Bind binds program. isDesktop gates members that need desktop services.
func Bind(program *StatementBlock, registry *library.Registry, isDesktop bool, diags *DiagnosticBag) *BoundProgram {
	b := &Binder{
		registry:    registry,
		names:       CollectNames(program, diags),
		diagnostics: diags,
		isDesktop:   isDesktop,
	}

	result := &BoundProgram{
		MainModule: &BoundStatementBlock{Node: program},
		SubModules: make(map[string]*BoundSubModule),
	}
	mainLabels := b.collectLabels(program.Statements)

	for _, stmt := range program.Statements {
		if sub, ok := stmt.(*SubModuleStatement); ok {
			bound := b.bindSubModule(sub)
			if b.names.SubModules[sub.Name.Text] == sub {
				result.SubModules[bound.Name] = bound
			}
			continue
		}
		b.labels = mainLabels
		result.MainModule.Statements = append(result.MainModule.Statements, b.bindStatement(stmt))
	}
	return result
}

func (b *Binder) report(code DiagnosticCode, rng TextRange, args ...string) {
	b.diagnostics.Report(code, rng, args...)
}

// collectLabels gathers the labels declared in one module's statements,
// reporting duplicates. Sub-module bodies are separate scopes.
func (b *Binder) collectLabels(stmts []Statement) map[string]bool {
	labels := make(map[string]bool)
	for _, stmt := range stmts {
		if _, ok := stmt.(*SubModuleStatement); ok {
			continue
		}
		Inspect(stmt, func(node Node) bool {
			label, ok := node.(*LabelStatement)
			if !ok {
				return true
			}
			name := label.Label.Text
			if labels[name] {
				b.report(TwoLabelsWithTheSameName, label.Label.Range, name)
			}
			labels[name] = true
			return false
		})
	}
	return labels
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (b *Binder) bindSubModule(sub *SubModuleStatement) *BoundSubModule {
	saved := b.labels
	b.labels = b.collectLabels(sub.Body.Statements)
	body := b.bindBlock(sub.Body)
	b.labels = saved
	return &BoundSubModule{Node: sub, Name: sub.Name.Text, Body: body}
}

func (b *Binder) bindBlock(block *StatementBlock) *BoundStatementBlock {
	out := &BoundStatementBlock{Node: block}
	for _, stmt := range block.Statements {
		out.Statements = append(out.Statements, b.bindStatement(stmt))
	}
	return out
}

func (b *Binder) bindStatement(stmt Statement) BoundStatement {
	switch n := stmt.(type) {
	case *IfStatement:
		out := &BoundIfStatement{Node: n}
		for _, part := range n.Parts {
			out.Parts = append(out.Parts, &BoundIfPart{
				Node:      part,
				Condition: b.bindValue(part.Condition),
				Body:      b.bindBlock(part.Body),
			})
		}
		if n.ElseBody != nil {
			out.ElseBody = b.bindBlock(n.ElseBody)
		}
		return out

	case *WhileStatement:
		return &BoundWhileStatement{
			Node:      n,
			Condition: b.bindValue(n.Condition),
			Body:      b.bindBlock(n.Body),
		}

	case *ForStatement:
		out := &BoundForStatement{
			Node:       n,
			Identifier: n.Identifier.Text,
			From:       b.bindValue(n.From),
			To:         b.bindValue(n.To),
		}
		if n.Step != nil {
			out.Step = b.bindValue(n.Step)
		}
		out.Body = b.bindBlock(n.Body)
		return out

	case *LabelStatement:
		return &BoundLabelStatement{Node: n, Label: n.Label.Text}

	case *GoToStatement:
		if n.Label.Text != "" && !b.labels[n.Label.Text] {
			b.report(GoToUndefinedLabel, n.Label.Range, n.Label.Text)
		}
		return &BoundGoToStatement{Node: n, Label: n.Label.Text}

	case *AssignmentStatement:
		return b.bindAssignment(n)

	case *ExpressionStatement:
		return b.bindExpressionStatement(n)

	case *SubModuleStatement:
		// Nested sub-modules are rejected by the parser; bind the body
		// so its contents are still checked.
		b.bindBlock(n.Body)
		return &BoundInvalidStatement{Node: n}

	case *ErrorStatement:
		return &BoundInvalidStatement{Node: n}
	}
	panic("compiler: unexpected statement type")
}

func (b *Binder) bindExpressionStatement(n *ExpressionStatement) BoundStatement {
	bound := b.bindExpression(n.Expr)
	switch e := bound.(type) {
	case *BoundMethodInvocationExpression:
		if e.HasValue() {
			b.report(UnassignedExpressionStatement, n.Rng)
			return &BoundInvalidStatement{Node: n, Children: []BoundExpression{e}}
		}
		return &BoundInvocationStatement{Node: n, Invocation: e}
	case *BoundSubModuleInvocationExpression:
		return &BoundInvocationStatement{Node: n, Invocation: e}
	case *BoundInvalidExpression:
		return &BoundInvalidStatement{Node: n, Children: []BoundExpression{e}}
	}
	b.report(InvalidExpressionStatement, n.Rng)
	return &BoundInvalidStatement{Node: n, Children: []BoundExpression{bound}}
}

func (b *Binder) bindAssignment(n *AssignmentStatement) BoundStatement {
	invalid := func(children ...BoundExpression) BoundStatement {
		return &BoundInvalidStatement{Node: n, Children: children}
	}

	switch target := n.Target.(type) {
	case *IdentifierExpression:
		name := target.Identifier.Text
		if _, isSub := b.names.SubModules[name]; isSub {
			b.report(InvalidExpressionStatement, target.Range())
			return invalid(b.bindValue(n.Value))
		}
		return &BoundVariableAssignment{Node: n, Variable: name, Value: b.bindValue(n.Value)}

	case *ArrayAccessExpression:
		bound := b.bindArrayAccess(target)
		value := b.bindValue(n.Value)
		switch t := bound.(type) {
		case *BoundArrayAccessExpression:
			return &BoundArrayAssignment{Node: n, Target: t, Value: value}
		case *BoundInvalidExpression:
			return invalid(t, value)
		}
		b.report(InvalidExpressionStatement, target.Range())
		return invalid(bound, value)

	case *ObjectAccessExpression:
		bound := b.bindObjectAccess(target)
		switch t := bound.(type) {
		case *BoundLibraryPropertyExpression:
			value := b.bindValue(n.Value)
			if !t.Property.HasSetter {
				b.report(PropertyHasNoSetter, target.Range())
				return invalid(t, value)
			}
			return &BoundPropertyAssignment{Node: n, Property: t, Value: value}

		case *BoundLibraryEventExpression:
			if id, ok := n.Value.(*IdentifierExpression); ok {
				if _, isSub := b.names.SubModules[id.Identifier.Text]; isSub {
					return &BoundEventAssignment{Node: n, Event: t, SubModule: id.Identifier.Text}
				}
			}
			b.report(AssigningNonSubModuleToEvent, n.Value.Range())
			return invalid(t)

		case *BoundInvalidExpression:
			return invalid(t, b.bindValue(n.Value))
		}
		b.report(InvalidExpressionStatement, target.Range())
		return invalid(bound, b.bindValue(n.Value))

	case *ErrorExpression:
		return invalid(b.bindValue(n.Value))
	}

	b.report(InvalidExpressionStatement, n.Target.Range())
	return invalid(b.bindValue(n.Value))
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// bindValue binds an expression that must produce a value.
func (b *Binder) bindValue(e Expression) BoundExpression {
	bound := b.bindExpression(e)
	if !bound.HasValue() {
		b.report(ExpectedExpressionWithAValue, e.Range())
		return &BoundInvalidExpression{Node: e, Children: []BoundExpression{bound}}
	}
	return bound
}

func (b *Binder) bindExpression(e Expression) BoundExpression {
	switch n := e.(type) {
	case *IdentifierExpression:
		return b.resolveIdentifier(n)
	case *NumberLiteralExpression:
		return &BoundLiteralExpression{Node: n, Text: n.Literal.Text}
	case *StringLiteralExpression:
		return &BoundLiteralExpression{Node: n, Text: n.Value()}
	case *ParenthesisExpression:
		return b.bindExpression(n.Expr)
	case *UnaryExpression:
		return &BoundUnaryExpression{Node: n, Operand: b.bindValue(n.Operand)}
	case *BinaryExpression:
		return &BoundBinaryExpression{
			Node:     n,
			Operator: n.Operator.Kind,
			Left:     b.bindValue(n.Left),
			Right:    b.bindValue(n.Right),
		}
	case *ObjectAccessExpression:
		return b.bindObjectAccess(n)
	case *ArrayAccessExpression:
		return b.bindArrayAccess(n)
	case *InvocationExpression:
		return b.bindInvocation(n)
	case *ErrorExpression:
		return &BoundInvalidExpression{Node: n}
	}
	panic("compiler: unexpected expression type")
}

// resolveIdentifier looks a name up as a sub-module, then an assigned
// variable, then a library. Anything else is a never-assigned variable.
func (b *Binder) resolveIdentifier(n *IdentifierExpression) BoundExpression {
	name := n.Identifier.Text
	if _, ok := b.names.SubModules[name]; ok {
		return &BoundSubModuleExpression{Node: n, Name: name}
	}
	if b.names.AssignedVariables[name] {
		return &BoundVariableExpression{Node: n, Name: name}
	}
	if lib, ok := b.registry.Lookup(name); ok {
		return &BoundLibraryTypeExpression{Node: n, Library: lib}
	}
	return &BoundVariableExpression{Node: n, Name: name}
}

func (b *Binder) bindObjectAccess(n *ObjectAccessExpression) BoundExpression {
	base := b.bindExpression(n.Base)
	libType, ok := base.(*BoundLibraryTypeExpression)
	if !ok {
		if _, invalid := base.(*BoundInvalidExpression); !invalid {
			b.report(UnsupportedDotBaseExpression, n.Base.Range())
		}
		return &BoundInvalidExpression{Node: n, Children: []BoundExpression{base}}
	}

	lib := libType.Library
	name := n.Member.Text
	if name == "" {
		return &BoundInvalidExpression{Node: n}
	}

	var member library.Member
	var bound BoundExpression
	if m, ok := lib.Method(name); ok {
		member, bound = m.Member, &BoundLibraryMethodExpression{Node: n, Library: lib, Method: m}
	} else if p, ok := lib.Property(name); ok {
		member, bound = p.Member, &BoundLibraryPropertyExpression{Node: n, Library: lib, Property: p}
	} else if ev, ok := lib.Event(name); ok {
		member, bound = ev.Member, &BoundLibraryEventExpression{Node: n, Library: lib, Event: ev}
	} else {
		b.report(LibraryMemberNotFound, n.Member.Range, lib.Name, name)
		return &BoundInvalidExpression{Node: n}
	}

	if member.Deprecated {
		b.report(LibraryMemberDeprecatedFromOlderVersion, n.Range(), lib.Name, name)
	}
	if member.NeedsDesktop && !b.isDesktop {
		b.report(LibraryMemberNeedsDesktop, n.Range(), lib.Name, name)
	}
	b.noteWindowKind(lib, member, n.Range())
	return bound
}

// noteWindowKind reports the first time a program mixes text window and
// graphics window libraries, naming the library that came first.
func (b *Binder) noteWindowKind(lib *library.Library, member library.Member, rng TextRange) {
	text := lib.UsesTextWindowFor(member)
	graphics := lib.UsesGraphicsWindowFor(member)
	if text && b.textLibrary == "" {
		b.textLibrary = lib.Name
	}
	if graphics && b.graphicsLibrary == "" {
		b.graphicsLibrary = lib.Name
	}
	if b.conflictReported || b.textLibrary == "" || b.graphicsLibrary == "" {
		return
	}
	b.conflictReported = true
	first := b.graphicsLibrary
	if graphics {
		first = b.textLibrary
	}
	b.report(LibraryKindConflict, rng, lib.Name, first)
}

func (b *Binder) bindArrayAccess(n *ArrayAccessExpression) BoundExpression {
	var indexSyntax []Expression
	var baseSyntax Expression = n
	for {
		access, ok := baseSyntax.(*ArrayAccessExpression)
		if !ok {
			break
		}
		indexSyntax = append([]Expression{access.Index}, indexSyntax...)
		baseSyntax = access.Base
	}

	base := b.bindExpression(baseSyntax)
	indices := make([]BoundExpression, len(indexSyntax))
	for i, idx := range indexSyntax {
		indices[i] = b.bindValue(idx)
	}

	switch t := base.(type) {
	case *BoundVariableExpression:
		return &BoundArrayAccessExpression{Node: n, Name: t.Name, Indices: indices}
	case *BoundLibraryPropertyExpression:
		return &BoundIndexExpression{Node: n, Base: t, Indices: indices}
	case *BoundMethodInvocationExpression:
		if t.HasValue() {
			return &BoundIndexExpression{Node: n, Base: t, Indices: indices}
		}
	case *BoundInvalidExpression:
		return &BoundInvalidExpression{Node: n, Children: append([]BoundExpression{t}, indices...)}
	}
	b.report(UnsupportedArrayBaseExpression, baseSyntax.Range())
	return &BoundInvalidExpression{Node: n, Children: append([]BoundExpression{base}, indices...)}
}

func (b *Binder) bindInvocation(n *InvocationExpression) BoundExpression {
	base := b.bindExpression(n.Base)
	args := make([]BoundExpression, len(n.Arguments))
	for i, arg := range n.Arguments {
		args[i] = b.bindValue(arg)
	}
	invalid := func() BoundExpression {
		return &BoundInvalidExpression{Node: n, Children: append([]BoundExpression{base}, args...)}
	}

	switch t := base.(type) {
	case *BoundLibraryMethodExpression:
		if len(args) != t.Method.Arity() {
			b.report(UnexpectedArgumentsCount, n.Rng, strconv.Itoa(t.Method.Arity()), strconv.Itoa(len(args)))
			return invalid()
		}
		return &BoundMethodInvocationExpression{Node: n, Method: t, Arguments: args}
	case *BoundSubModuleExpression:
		if len(args) != 0 {
			b.report(UnexpectedArgumentsCount, n.Rng, "0", strconv.Itoa(len(args)))
			return invalid()
		}
		return &BoundSubModuleInvocationExpression{Node: n, Name: t.Name}
	case *BoundInvalidExpression:
		return invalid()
	}
	b.report(UnsupportedInvocationBaseExpression, n.Base.Range())
	return invalid()
}
