package compiler

import "github.com/chazu/superbasic/library"

// ---------------------------------------------------------------------------
// Bound tree: syntax resolved against program names and the library registry
// ---------------------------------------------------------------------------

// BoundNode is implemented by every bound tree node.
type BoundNode interface {
	Syntax() Node
	BoundChildren() []BoundNode
}

// BoundStatement is a bound statement.
type BoundStatement interface {
	BoundNode
	boundStmt()
}

// BoundExpression is a bound expression.
type BoundExpression interface {
	BoundNode
	// HasValue reports whether evaluating the expression pushes a value.
	HasValue() bool
	boundExpr()
}

// InspectBound walks a bound tree depth-first, skipping children when fn
// returns false.
func InspectBound(node BoundNode, fn func(BoundNode) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range node.BoundChildren() {
		InspectBound(child, fn)
	}
}

func exprNodes(exprs ...BoundExpression) []BoundNode {
	out := make([]BoundNode, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

type BoundStatementBlock struct {
	Node       *StatementBlock
	Statements []BoundStatement
}

func (n *BoundStatementBlock) Syntax() Node { return n.Node }
func (n *BoundStatementBlock) BoundChildren() []BoundNode {
	out := make([]BoundNode, len(n.Statements))
	for i, s := range n.Statements {
		out[i] = s
	}
	return out
}

type BoundSubModule struct {
	Node *SubModuleStatement
	Name string
	Body *BoundStatementBlock
}

func (n *BoundSubModule) Syntax() Node               { return n.Node }
func (n *BoundSubModule) BoundChildren() []BoundNode { return []BoundNode{n.Body} }
func (n *BoundSubModule) boundStmt()                 {}

type BoundIfPart struct {
	Node      *IfPart
	Condition BoundExpression
	Body      *BoundStatementBlock
}

type BoundIfStatement struct {
	Node     *IfStatement
	Parts    []*BoundIfPart
	ElseBody *BoundStatementBlock // nil without Else
}

func (n *BoundIfStatement) Syntax() Node { return n.Node }
func (n *BoundIfStatement) BoundChildren() []BoundNode {
	var out []BoundNode
	for _, part := range n.Parts {
		out = append(out, part.Condition, part.Body)
	}
	if n.ElseBody != nil {
		out = append(out, n.ElseBody)
	}
	return out
}
func (n *BoundIfStatement) boundStmt() {}

type BoundWhileStatement struct {
	Node      *WhileStatement
	Condition BoundExpression
	Body      *BoundStatementBlock
}

func (n *BoundWhileStatement) Syntax() Node { return n.Node }
func (n *BoundWhileStatement) BoundChildren() []BoundNode {
	return []BoundNode{n.Condition, n.Body}
}
func (n *BoundWhileStatement) boundStmt() {}

type BoundForStatement struct {
	Node       *ForStatement
	Identifier string
	From       BoundExpression
	To         BoundExpression
	Step       BoundExpression // nil means 1
	Body       *BoundStatementBlock
}

func (n *BoundForStatement) Syntax() Node { return n.Node }
func (n *BoundForStatement) BoundChildren() []BoundNode {
	return append(exprNodes(n.From, n.To, n.Step), n.Body)
}
func (n *BoundForStatement) boundStmt() {}

type BoundLabelStatement struct {
	Node  *LabelStatement
	Label string
}

func (n *BoundLabelStatement) Syntax() Node               { return n.Node }
func (n *BoundLabelStatement) BoundChildren() []BoundNode { return nil }
func (n *BoundLabelStatement) boundStmt()                 {}

type BoundGoToStatement struct {
	Node  *GoToStatement
	Label string
}

func (n *BoundGoToStatement) Syntax() Node               { return n.Node }
func (n *BoundGoToStatement) BoundChildren() []BoundNode { return nil }
func (n *BoundGoToStatement) boundStmt()                 {}

// BoundInvocationStatement is a void library method or sub-module call.
type BoundInvocationStatement struct {
	Node       *ExpressionStatement
	Invocation BoundExpression
}

func (n *BoundInvocationStatement) Syntax() Node               { return n.Node }
func (n *BoundInvocationStatement) BoundChildren() []BoundNode { return exprNodes(n.Invocation) }
func (n *BoundInvocationStatement) boundStmt()                 {}

type BoundVariableAssignment struct {
	Node     *AssignmentStatement
	Variable string
	Value    BoundExpression
}

func (n *BoundVariableAssignment) Syntax() Node               { return n.Node }
func (n *BoundVariableAssignment) BoundChildren() []BoundNode { return exprNodes(n.Value) }
func (n *BoundVariableAssignment) boundStmt()                 {}

type BoundArrayAssignment struct {
	Node   *AssignmentStatement
	Target *BoundArrayAccessExpression
	Value  BoundExpression
}

func (n *BoundArrayAssignment) Syntax() Node { return n.Node }
func (n *BoundArrayAssignment) BoundChildren() []BoundNode {
	return exprNodes(n.Target, n.Value)
}
func (n *BoundArrayAssignment) boundStmt() {}

type BoundPropertyAssignment struct {
	Node     *AssignmentStatement
	Property *BoundLibraryPropertyExpression
	Value    BoundExpression
}

func (n *BoundPropertyAssignment) Syntax() Node { return n.Node }
func (n *BoundPropertyAssignment) BoundChildren() []BoundNode {
	return exprNodes(n.Property, n.Value)
}
func (n *BoundPropertyAssignment) boundStmt() {}

// BoundEventAssignment binds a library event to a sub-module handler.
type BoundEventAssignment struct {
	Node      *AssignmentStatement
	Event     *BoundLibraryEventExpression
	SubModule string
}

func (n *BoundEventAssignment) Syntax() Node               { return n.Node }
func (n *BoundEventAssignment) BoundChildren() []BoundNode { return exprNodes(n.Event) }
func (n *BoundEventAssignment) boundStmt()                 {}

// BoundInvalidStatement stands in for a statement that failed to bind.
type BoundInvalidStatement struct {
	Node     Statement
	Children []BoundExpression
}

func (n *BoundInvalidStatement) Syntax() Node               { return n.Node }
func (n *BoundInvalidStatement) BoundChildren() []BoundNode { return exprNodes(n.Children...) }
func (n *BoundInvalidStatement) boundStmt()                 {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// BoundLiteralExpression is a number or string literal. Text is the literal
// without quotes; the runtime value is created from it.
type BoundLiteralExpression struct {
	Node Expression
	Text string
}

func (n *BoundLiteralExpression) Syntax() Node               { return n.Node }
func (n *BoundLiteralExpression) BoundChildren() []BoundNode { return nil }
func (n *BoundLiteralExpression) HasValue() bool             { return true }
func (n *BoundLiteralExpression) boundExpr()                 {}

type BoundVariableExpression struct {
	Node *IdentifierExpression
	Name string
}

func (n *BoundVariableExpression) Syntax() Node               { return n.Node }
func (n *BoundVariableExpression) BoundChildren() []BoundNode { return nil }
func (n *BoundVariableExpression) HasValue() bool             { return true }
func (n *BoundVariableExpression) boundExpr()                 {}

// BoundArrayAccessExpression is name[i1][i2]... with the indices flattened
// outermost first.
type BoundArrayAccessExpression struct {
	Node    *ArrayAccessExpression
	Name    string
	Indices []BoundExpression
}

func (n *BoundArrayAccessExpression) Syntax() Node               { return n.Node }
func (n *BoundArrayAccessExpression) BoundChildren() []BoundNode { return exprNodes(n.Indices...) }
func (n *BoundArrayAccessExpression) HasValue() bool             { return true }
func (n *BoundArrayAccessExpression) boundExpr()                 {}

// BoundIndexExpression indexes into a computed value such as a property.
type BoundIndexExpression struct {
	Node    *ArrayAccessExpression
	Base    BoundExpression
	Indices []BoundExpression
}

func (n *BoundIndexExpression) Syntax() Node { return n.Node }
func (n *BoundIndexExpression) BoundChildren() []BoundNode {
	return exprNodes(append([]BoundExpression{n.Base}, n.Indices...)...)
}
func (n *BoundIndexExpression) HasValue() bool { return true }
func (n *BoundIndexExpression) boundExpr()     {}

type BoundLibraryTypeExpression struct {
	Node    *IdentifierExpression
	Library *library.Library
}

func (n *BoundLibraryTypeExpression) Syntax() Node               { return n.Node }
func (n *BoundLibraryTypeExpression) BoundChildren() []BoundNode { return nil }
func (n *BoundLibraryTypeExpression) HasValue() bool             { return false }
func (n *BoundLibraryTypeExpression) boundExpr()                 {}

type BoundLibraryPropertyExpression struct {
	Node     *ObjectAccessExpression
	Library  *library.Library
	Property *library.Property
}

func (n *BoundLibraryPropertyExpression) Syntax() Node               { return n.Node }
func (n *BoundLibraryPropertyExpression) BoundChildren() []BoundNode { return nil }
func (n *BoundLibraryPropertyExpression) HasValue() bool             { return true }
func (n *BoundLibraryPropertyExpression) boundExpr()                 {}

type BoundLibraryMethodExpression struct {
	Node    *ObjectAccessExpression
	Library *library.Library
	Method  *library.Method
}

func (n *BoundLibraryMethodExpression) Syntax() Node               { return n.Node }
func (n *BoundLibraryMethodExpression) BoundChildren() []BoundNode { return nil }
func (n *BoundLibraryMethodExpression) HasValue() bool             { return false }
func (n *BoundLibraryMethodExpression) boundExpr()                 {}

type BoundLibraryEventExpression struct {
	Node    *ObjectAccessExpression
	Library *library.Library
	Event   *library.Event
}

func (n *BoundLibraryEventExpression) Syntax() Node               { return n.Node }
func (n *BoundLibraryEventExpression) BoundChildren() []BoundNode { return nil }
func (n *BoundLibraryEventExpression) HasValue() bool             { return false }
func (n *BoundLibraryEventExpression) boundExpr()                 {}

type BoundSubModuleExpression struct {
	Node *IdentifierExpression
	Name string
}

func (n *BoundSubModuleExpression) Syntax() Node               { return n.Node }
func (n *BoundSubModuleExpression) BoundChildren() []BoundNode { return nil }
func (n *BoundSubModuleExpression) HasValue() bool             { return false }
func (n *BoundSubModuleExpression) boundExpr()                 {}

type BoundMethodInvocationExpression struct {
	Node      *InvocationExpression
	Method    *BoundLibraryMethodExpression
	Arguments []BoundExpression
}

func (n *BoundMethodInvocationExpression) Syntax() Node { return n.Node }
func (n *BoundMethodInvocationExpression) BoundChildren() []BoundNode {
	return append([]BoundNode{n.Method}, exprNodes(n.Arguments...)...)
}
func (n *BoundMethodInvocationExpression) HasValue() bool { return n.Method.Method.ReturnsValue }
func (n *BoundMethodInvocationExpression) boundExpr()     {}

type BoundSubModuleInvocationExpression struct {
	Node *InvocationExpression
	Name string
}

func (n *BoundSubModuleInvocationExpression) Syntax() Node               { return n.Node }
func (n *BoundSubModuleInvocationExpression) BoundChildren() []BoundNode { return nil }
func (n *BoundSubModuleInvocationExpression) HasValue() bool             { return false }
func (n *BoundSubModuleInvocationExpression) boundExpr()                 {}

type BoundUnaryExpression struct {
	Node    *UnaryExpression
	Operand BoundExpression
}

func (n *BoundUnaryExpression) Syntax() Node               { return n.Node }
func (n *BoundUnaryExpression) BoundChildren() []BoundNode { return exprNodes(n.Operand) }
func (n *BoundUnaryExpression) HasValue() bool             { return true }
func (n *BoundUnaryExpression) boundExpr()                 {}

type BoundBinaryExpression struct {
	Node     *BinaryExpression
	Operator TokenKind
	Left     BoundExpression
	Right    BoundExpression
}

func (n *BoundBinaryExpression) Syntax() Node               { return n.Node }
func (n *BoundBinaryExpression) BoundChildren() []BoundNode { return exprNodes(n.Left, n.Right) }
func (n *BoundBinaryExpression) HasValue() bool             { return true }
func (n *BoundBinaryExpression) boundExpr()                 {}

// BoundInvalidExpression stands in for an expression that failed to bind.
// It claims a value so that one error does not cascade into more.
type BoundInvalidExpression struct {
	Node     Expression
	Children []BoundExpression
}

func (n *BoundInvalidExpression) Syntax() Node               { return n.Node }
func (n *BoundInvalidExpression) BoundChildren() []BoundNode { return exprNodes(n.Children...) }
func (n *BoundInvalidExpression) HasValue() bool             { return true }
func (n *BoundInvalidExpression) boundExpr()                 {}
