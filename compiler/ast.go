package compiler

// ---------------------------------------------------------------------------
// Syntax tree
// ---------------------------------------------------------------------------

// Node is implemented by every syntax tree node.
type Node interface {
	Range() TextRange
	Children() []Node
}

// Statement is a syntax node that occupies one or more whole lines.
type Statement interface {
	Node
	stmt()
}

// Expression is a syntax node that may produce a value.
type Expression interface {
	Node
	expr()
}

// StatementBlock is an ordered list of statements.
type StatementBlock struct {
	Rng        TextRange
	Statements []Statement
}

func (n *StatementBlock) Range() TextRange { return n.Rng }
func (n *StatementBlock) Children() []Node {
	out := make([]Node, len(n.Statements))
	for i, s := range n.Statements {
		out[i] = s
	}
	return out
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// SubModuleStatement declares a named subroutine: Sub name ... EndSub.
type SubModuleStatement struct {
	Rng  TextRange
	Name Token
	Body *StatementBlock
}

func (n *SubModuleStatement) Range() TextRange { return n.Rng }
func (n *SubModuleStatement) Children() []Node { return []Node{n.Body} }
func (n *SubModuleStatement) stmt()            {}

// IfPart is one conditional arm of an If statement (If or ElseIf).
type IfPart struct {
	Rng       TextRange // header line only
	Condition Expression
	Body      *StatementBlock
}

// IfStatement is If ... ElseIf ... Else ... EndIf.
type IfStatement struct {
	Rng      TextRange
	Parts    []*IfPart // Parts[0] is the If arm
	ElseBody *StatementBlock
	ElseRng  TextRange
}

func (n *IfStatement) Range() TextRange { return n.Rng }
func (n *IfStatement) Children() []Node {
	var out []Node
	for _, part := range n.Parts {
		out = append(out, part.Condition, part.Body)
	}
	if n.ElseBody != nil {
		out = append(out, n.ElseBody)
	}
	return out
}
func (n *IfStatement) stmt() {}

// WhileStatement is While cond ... EndWhile.
type WhileStatement struct {
	Rng       TextRange
	HeaderRng TextRange
	Condition Expression
	Body      *StatementBlock
}

func (n *WhileStatement) Range() TextRange { return n.Rng }
func (n *WhileStatement) Children() []Node { return []Node{n.Condition, n.Body} }
func (n *WhileStatement) stmt()            {}

// ForStatement is For id = from To to [Step step] ... EndFor.
type ForStatement struct {
	Rng        TextRange
	HeaderRng  TextRange
	Identifier Token
	From       Expression
	To         Expression
	Step       Expression // nil when omitted
	Body       *StatementBlock
	EndRng     TextRange
}

func (n *ForStatement) Range() TextRange { return n.Rng }
func (n *ForStatement) Children() []Node {
	out := []Node{n.From, n.To}
	if n.Step != nil {
		out = append(out, n.Step)
	}
	return append(out, n.Body)
}
func (n *ForStatement) stmt() {}

// LabelStatement declares a jump target: name:
type LabelStatement struct {
	Rng   TextRange
	Label Token
}

func (n *LabelStatement) Range() TextRange { return n.Rng }
func (n *LabelStatement) Children() []Node { return nil }
func (n *LabelStatement) stmt()            {}

// GoToStatement jumps to a label: Goto name
type GoToStatement struct {
	Rng   TextRange
	Label Token
}

func (n *GoToStatement) Range() TextRange { return n.Rng }
func (n *GoToStatement) Children() []Node { return nil }
func (n *GoToStatement) stmt()            {}

// AssignmentStatement is target = value.
type AssignmentStatement struct {
	Rng    TextRange
	Target Expression
	Value  Expression
}

func (n *AssignmentStatement) Range() TextRange { return n.Rng }
func (n *AssignmentStatement) Children() []Node { return []Node{n.Target, n.Value} }
func (n *AssignmentStatement) stmt()            {}

// ExpressionStatement is a bare expression used as a statement (a call).
type ExpressionStatement struct {
	Rng  TextRange
	Expr Expression
}

func (n *ExpressionStatement) Range() TextRange { return n.Rng }
func (n *ExpressionStatement) Children() []Node { return []Node{n.Expr} }
func (n *ExpressionStatement) stmt()            {}

// ErrorStatement holds the tokens of a line the parser could not understand.
type ErrorStatement struct {
	Rng    TextRange
	Tokens []Token
}

func (n *ErrorStatement) Range() TextRange { return n.Rng }
func (n *ErrorStatement) Children() []Node { return nil }
func (n *ErrorStatement) stmt()            {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// IdentifierExpression names a variable, sub-module or library.
type IdentifierExpression struct {
	Identifier Token
}

func (n *IdentifierExpression) Range() TextRange { return n.Identifier.Range }
func (n *IdentifierExpression) Children() []Node { return nil }
func (n *IdentifierExpression) expr()            {}

// NumberLiteralExpression is a numeric literal.
type NumberLiteralExpression struct {
	Literal Token
}

func (n *NumberLiteralExpression) Range() TextRange { return n.Literal.Range }
func (n *NumberLiteralExpression) Children() []Node { return nil }
func (n *NumberLiteralExpression) expr()            {}

// StringLiteralExpression is a double-quoted literal, possibly unterminated.
type StringLiteralExpression struct {
	Literal Token
}

func (n *StringLiteralExpression) Range() TextRange { return n.Literal.Range }
func (n *StringLiteralExpression) Children() []Node { return nil }
func (n *StringLiteralExpression) expr()            {}

// Value returns the literal text without its quotes.
func (n *StringLiteralExpression) Value() string {
	runes := []rune(n.Literal.Text)
	if len(runes) >= 2 && runes[len(runes)-1] == '"' {
		return string(runes[1 : len(runes)-1])
	}
	return string(runes[1:])
}

// ObjectAccessExpression is base.member.
type ObjectAccessExpression struct {
	Base   Expression
	Member Token
}

func (n *ObjectAccessExpression) Range() TextRange { return n.Base.Range().To(n.Member.Range) }
func (n *ObjectAccessExpression) Children() []Node { return []Node{n.Base} }
func (n *ObjectAccessExpression) expr()            {}

// ArrayAccessExpression is base[index].
type ArrayAccessExpression struct {
	Rng   TextRange
	Base  Expression
	Index Expression
}

func (n *ArrayAccessExpression) Range() TextRange { return n.Rng }
func (n *ArrayAccessExpression) Children() []Node { return []Node{n.Base, n.Index} }
func (n *ArrayAccessExpression) expr()            {}

// InvocationExpression is base(args...).
type InvocationExpression struct {
	Rng       TextRange
	Base      Expression
	Arguments []Expression
}

func (n *InvocationExpression) Range() TextRange { return n.Rng }
func (n *InvocationExpression) Children() []Node {
	out := []Node{n.Base}
	for _, arg := range n.Arguments {
		out = append(out, arg)
	}
	return out
}
func (n *InvocationExpression) expr() {}

// UnaryExpression is -operand.
type UnaryExpression struct {
	Operator Token
	Operand  Expression
}

func (n *UnaryExpression) Range() TextRange { return n.Operator.Range.To(n.Operand.Range()) }
func (n *UnaryExpression) Children() []Node { return []Node{n.Operand} }
func (n *UnaryExpression) expr()            {}

// BinaryExpression is left op right.
type BinaryExpression struct {
	Left     Expression
	Operator Token
	Right    Expression
}

func (n *BinaryExpression) Range() TextRange { return n.Left.Range().To(n.Right.Range()) }
func (n *BinaryExpression) Children() []Node { return []Node{n.Left, n.Right} }
func (n *BinaryExpression) expr()            {}

// ParenthesisExpression is (expr).
type ParenthesisExpression struct {
	Rng  TextRange
	Expr Expression
}

func (n *ParenthesisExpression) Range() TextRange { return n.Rng }
func (n *ParenthesisExpression) Children() []Node { return []Node{n.Expr} }
func (n *ParenthesisExpression) expr()            {}

// ErrorExpression stands in for an expression the parser could not read.
type ErrorExpression struct {
	Rng TextRange
}

func (n *ErrorExpression) Range() TextRange { return n.Rng }
func (n *ErrorExpression) Children() []Node { return nil }
func (n *ErrorExpression) expr()            {}
