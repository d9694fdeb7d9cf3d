package compiler

// ---------------------------------------------------------------------------
// Parser: recursive descent over a line-oriented token stream
// ---------------------------------------------------------------------------

// Parser builds a syntax tree from tokens. Statements never span lines, so
// the parser works one line at a time: after the first error on a line it
// stops reporting and skips to the next line.
type Parser struct {
	tokens      []Token
	index       int
	diagnostics *DiagnosticBag

	line   int   // line of the statement being parsed
	failed bool  // an error was already reported on this line
	last   Token // last consumed token
}

// NewParser creates a parser over tokens. Comment tokens are dropped.
func NewParser(tokens []Token, diagnostics *DiagnosticBag) *Parser {
	filtered := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind != TokenComment {
			filtered = append(filtered, tok)
		}
	}
	return &Parser{tokens: filtered, diagnostics: diagnostics}
}

// Parse scans and parses text in one call.
func Parse(text string, diagnostics *DiagnosticBag) *StatementBlock {
	return NewParser(Scan(text, diagnostics), diagnostics).ParseProgram()
}

// blockTerminators end a nested statement block.
var blockTerminators = map[TokenKind]bool{
	TokenElseIf:   true,
	TokenElse:     true,
	TokenEndIf:    true,
	TokenEndWhile: true,
	TokenEndFor:   true,
	TokenEndSub:   true,
}

// ParseProgram parses the whole token stream as the main program.
func (p *Parser) ParseProgram() *StatementBlock {
	block := &StatementBlock{}
	for !p.atEnd() {
		tok := p.tokens[p.index]
		p.beginLine(tok)
		if blockTerminators[tok.Kind] {
			block.Statements = append(block.Statements, p.errorLine(UnexpectedTokenInsteadOfStatement, tok.Text))
			continue
		}
		if tok.Kind == TokenSub {
			block.Statements = append(block.Statements, p.parseSubModule())
			continue
		}
		block.Statements = append(block.Statements, p.parseStatement())
	}
	block.Rng = blockRange(block.Statements, TextRange{})
	return block
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

func (p *Parser) atEnd() bool { return p.index >= len(p.tokens) }

// beginLine starts parsing a statement on tok's line.
func (p *Parser) beginLine(tok Token) {
	p.line = tok.Range.Line()
	p.failed = false
}

// peek returns the next token if it is on the current line.
func (p *Parser) peek() (Token, bool) {
	if p.atEnd() || p.tokens[p.index].Range.Line() != p.line {
		return Token{}, false
	}
	return p.tokens[p.index], true
}

func (p *Parser) onLine() bool {
	_, ok := p.peek()
	return ok
}

func (p *Parser) peekIs(kind TokenKind) bool {
	tok, ok := p.peek()
	return ok && tok.Kind == kind
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.index]
	p.index++
	p.last = tok
	return tok
}

// report records a diagnostic unless this line already failed.
func (p *Parser) report(code DiagnosticCode, rng TextRange, args ...string) {
	if p.failed {
		return
	}
	p.failed = true
	p.diagnostics.Report(code, rng, args...)
}

// eat consumes a token of the given kind on the current line. When the token
// is missing it reports an error and returns a synthetic token.
func (p *Parser) eat(kind TokenKind) Token {
	tok, ok := p.peek()
	if ok && tok.Kind == kind {
		return p.advance()
	}
	if !ok {
		p.report(UnexpectedEndOfStream, p.last.Range, kind.String())
		return Token{Kind: kind, Range: p.last.Range}
	}
	p.report(UnexpectedTokenFound, tok.Range, tok.Text, kind.String())
	return Token{Kind: kind, Range: tok.Range}
}

// finishLine skips any tokens left on the current line.
func (p *Parser) finishLine() {
	tok, ok := p.peek()
	if !ok {
		return
	}
	first := tok
	for ok {
		p.advance()
		tok, ok = p.peek()
	}
	p.report(UnexpectedStatementInsteadOfNewLine, first.Range.To(p.last.Range))
}

// errorLine reports code at the current token and swallows the line.
func (p *Parser) errorLine(code DiagnosticCode, args ...string) *ErrorStatement {
	first := p.tokens[p.index]
	p.report(code, first.Range, args...)
	stmt := &ErrorStatement{}
	for p.onLine() {
		stmt.Tokens = append(stmt.Tokens, p.advance())
	}
	stmt.Rng = first.Range.To(p.last.Range)
	return stmt
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseBlock parses statements until a block terminator or end of input.
func (p *Parser) parseBlock(fallback TextRange) *StatementBlock {
	block := &StatementBlock{}
	for !p.atEnd() {
		tok := p.tokens[p.index]
		if blockTerminators[tok.Kind] {
			break
		}
		p.beginLine(tok)
		if tok.Kind == TokenSub {
			block.Statements = append(block.Statements, p.errorLine(UnexpectedTokenInsteadOfStatement, tok.Text))
			continue
		}
		block.Statements = append(block.Statements, p.parseStatement())
	}
	block.Rng = blockRange(block.Statements, fallback)
	return block
}

// expectTerminator consumes the terminator keyword that closes a block on its
// own line. It does not consume a mismatched terminator so an enclosing block
// can claim it.
func (p *Parser) expectTerminator(kind TokenKind) (Token, bool) {
	if p.atEnd() {
		p.failed = false
		p.report(UnexpectedEndOfStream, p.last.Range, kind.String())
		return Token{Kind: kind, Range: p.last.Range}, false
	}
	tok := p.tokens[p.index]
	p.beginLine(tok)
	if tok.Kind != kind {
		p.report(UnexpectedTokenFound, tok.Range, tok.Text, kind.String())
		return Token{Kind: kind, Range: tok.Range}, false
	}
	p.advance()
	p.finishLine()
	return tok, true
}

func (p *Parser) parseStatement() Statement {
	tok := p.tokens[p.index]
	var stmt Statement
	switch tok.Kind {
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenFor:
		return p.parseFor()
	case TokenGoto:
		p.advance()
		label := p.eat(TokenIdentifier)
		stmt = &GoToStatement{Rng: tok.Range.To(p.last.Range), Label: label}
	case TokenIdentifier:
		if p.index+1 < len(p.tokens) && p.tokens[p.index+1].Kind == TokenColon &&
			p.tokens[p.index+1].Range.Line() == p.line {
			label := p.advance()
			p.advance()
			stmt = &LabelStatement{Rng: label.Range.To(p.last.Range), Label: label}
		} else {
			stmt = p.parseExpressionStatement()
		}
	case TokenNumberLiteral, TokenStringLiteral, TokenLeftParen, TokenMinus:
		stmt = p.parseExpressionStatement()
	default:
		return p.errorLine(UnexpectedTokenInsteadOfStatement, tok.Text)
	}
	p.finishLine()
	return stmt
}

func (p *Parser) parseExpressionStatement() Statement {
	start := p.tokens[p.index]
	target := p.parseUnary()
	if p.peekIs(TokenEqual) {
		p.advance()
		value := p.parseExpression()
		return &AssignmentStatement{Rng: start.Range.To(p.last.Range), Target: target, Value: value}
	}
	expr := p.parseBinary(target, 1)
	return &ExpressionStatement{Rng: start.Range.To(p.last.Range), Expr: expr}
}

func (p *Parser) parseSubModule() Statement {
	start := p.advance()
	name := p.eat(TokenIdentifier)
	header := start.Range.To(p.last.Range)
	p.finishLine()

	body := p.parseBlock(header)
	end, _ := p.expectTerminator(TokenEndSub)
	return &SubModuleStatement{Rng: header.To(end.Range), Name: name, Body: body}
}

func (p *Parser) parseIf() Statement {
	start := p.tokens[p.index]
	stmt := &IfStatement{}

	p.advance()
	cond := p.parseExpression()
	p.eat(TokenThen)
	header := start.Range.To(p.last.Range)
	p.finishLine()
	stmt.Parts = append(stmt.Parts, &IfPart{Rng: header, Condition: cond, Body: p.parseBlock(header)})

	for !p.atEnd() && p.tokens[p.index].Kind == TokenElseIf {
		elseIf := p.tokens[p.index]
		p.beginLine(elseIf)
		p.advance()
		cond := p.parseExpression()
		p.eat(TokenThen)
		header := elseIf.Range.To(p.last.Range)
		p.finishLine()
		stmt.Parts = append(stmt.Parts, &IfPart{Rng: header, Condition: cond, Body: p.parseBlock(header)})
	}

	if !p.atEnd() && p.tokens[p.index].Kind == TokenElse {
		elseTok := p.tokens[p.index]
		p.beginLine(elseTok)
		p.advance()
		stmt.ElseRng = elseTok.Range
		p.finishLine()
		stmt.ElseBody = p.parseBlock(elseTok.Range)
	}

	end, _ := p.expectTerminator(TokenEndIf)
	stmt.Rng = start.Range.To(end.Range)
	return stmt
}

func (p *Parser) parseWhile() Statement {
	start := p.advance()
	cond := p.parseExpression()
	header := start.Range.To(p.last.Range)
	p.finishLine()

	body := p.parseBlock(header)
	end, _ := p.expectTerminator(TokenEndWhile)
	return &WhileStatement{Rng: start.Range.To(end.Range), HeaderRng: header, Condition: cond, Body: body}
}

func (p *Parser) parseFor() Statement {
	start := p.advance()
	stmt := &ForStatement{}
	stmt.Identifier = p.eat(TokenIdentifier)
	p.eat(TokenEqual)
	stmt.From = p.parseExpression()
	p.eat(TokenTo)
	stmt.To = p.parseExpression()
	if p.peekIs(TokenStep) {
		p.advance()
		stmt.Step = p.parseExpression()
	}
	stmt.HeaderRng = start.Range.To(p.last.Range)
	p.finishLine()

	stmt.Body = p.parseBlock(stmt.HeaderRng)
	end, _ := p.expectTerminator(TokenEndFor)
	stmt.EndRng = end.Range
	stmt.Rng = start.Range.To(end.Range)
	return stmt
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func precedence(kind TokenKind) int {
	switch kind {
	case TokenOr:
		return 1
	case TokenAnd:
		return 2
	case TokenEqual, TokenNotEqual, TokenLessThan, TokenGreaterThan,
		TokenLessThanOrEqual, TokenGreaterThanOrEqual:
		return 3
	case TokenPlus, TokenMinus:
		return 4
	case TokenMultiply, TokenDivide:
		return 5
	}
	return 0
}

// parseExpression parses a full expression on the current line.
func (p *Parser) parseExpression() Expression {
	return p.parseBinary(p.parseUnary(), 1)
}

// parseBinary continues a left-associative binary chain from left.
func (p *Parser) parseBinary(left Expression, minPrec int) Expression {
	for {
		op, ok := p.peek()
		prec := precedence(op.Kind)
		if !ok || prec == 0 || prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseUnary()
		for {
			next, ok := p.peek()
			if !ok || precedence(next.Kind) <= prec {
				break
			}
			right = p.parseBinary(right, prec+1)
		}
		left = &BinaryExpression{Left: left, Operator: op, Right: right}
	}
}

func (p *Parser) parseUnary() Expression {
	if p.peekIs(TokenMinus) {
		op := p.advance()
		return &UnaryExpression{Operator: op, Operand: p.parseUnary()}
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parsePostfix(base Expression) Expression {
	for {
		tok, ok := p.peek()
		if !ok {
			return base
		}
		switch tok.Kind {
		case TokenDot:
			p.advance()
			member := p.eat(TokenIdentifier)
			base = &ObjectAccessExpression{Base: base, Member: member}
		case TokenLeftBracket:
			p.advance()
			index := p.parseExpression()
			p.eat(TokenRightBracket)
			base = &ArrayAccessExpression{Rng: base.Range().To(p.last.Range), Base: base, Index: index}
		case TokenLeftParen:
			p.advance()
			var args []Expression
			if !p.peekIs(TokenRightParen) {
				args = append(args, p.parseExpression())
				for p.peekIs(TokenComma) {
					p.advance()
					args = append(args, p.parseExpression())
				}
			}
			p.eat(TokenRightParen)
			base = &InvocationExpression{Rng: base.Range().To(p.last.Range), Base: base, Arguments: args}
		default:
			return base
		}
	}
}

func (p *Parser) parsePrimary() Expression {
	tok, ok := p.peek()
	if !ok {
		p.report(UnexpectedEndOfStream, p.last.Range, "expression")
		return &ErrorExpression{Rng: p.last.Range}
	}
	switch tok.Kind {
	case TokenIdentifier:
		return &IdentifierExpression{Identifier: p.advance()}
	case TokenNumberLiteral:
		return &NumberLiteralExpression{Literal: p.advance()}
	case TokenStringLiteral:
		return &StringLiteralExpression{Literal: p.advance()}
	case TokenLeftParen:
		p.advance()
		inner := p.parseExpression()
		p.eat(TokenRightParen)
		return &ParenthesisExpression{Rng: tok.Range.To(p.last.Range), Expr: inner}
	}
	p.report(UnexpectedTokenFound, tok.Range, tok.Text, "expression")
	return &ErrorExpression{Rng: tok.Range}
}

// blockRange spans the first through last statement, or fallback when empty.
func blockRange(stmts []Statement, fallback TextRange) TextRange {
	if len(stmts) == 0 {
		return fallback
	}
	return stmts[0].Range().To(stmts[len(stmts)-1].Range())
}
