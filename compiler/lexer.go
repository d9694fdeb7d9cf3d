package compiler

import (
	"unicode"
)

// ---------------------------------------------------------------------------
// Lexer: line-oriented scanner for BASIC source
// ---------------------------------------------------------------------------

// Lexer turns source text into tokens. Whitespace and line breaks are consumed
// but never emitted; every emitted token lies on a single line.
type Lexer struct {
	input       []rune
	pos         int // index into input
	line        int // current line (0-based)
	col         int // current column (0-based)
	diagnostics *DiagnosticBag
	tokens      []Token
}

// NewLexer creates a lexer reporting into diagnostics.
func NewLexer(input string, diagnostics *DiagnosticBag) *Lexer {
	return &Lexer{
		input:       []rune(input),
		diagnostics: diagnostics,
	}
}

// Scan is a convenience that tokenizes text in one call.
func Scan(text string, diagnostics *DiagnosticBag) []Token {
	return NewLexer(text, diagnostics).Tokens()
}

// Tokens consumes the whole input and returns every token, comments included.
func (l *Lexer) Tokens() []Token {
	for l.pos < len(l.input) {
		l.scanNext()
	}
	return l.tokens
}

func (l *Lexer) peek(offset int) rune {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) scanNext() {
	ch := l.input[l.pos]

	switch {
	case ch == '\n' || (ch == '\r' && l.peek(1) != '\n'):
		l.pos++
		l.line++
		l.col = 0
	case ch == '\r' || ch == ' ' || ch == '\t' || unicode.IsSpace(ch):
		l.pos++
		l.col++
	case ch == '\'':
		l.emit(TokenComment, l.runWhile(func(r rune) bool { return !isLineBreak(r) }))
	case ch == '"':
		l.scanString()
	case isDigit(ch):
		l.scanNumber()
	case isIdentifierStart(ch):
		n := l.runWhile(isIdentifierPart)
		l.emit(LookupKeyword(string(l.input[l.pos:l.pos+n])), n)
	default:
		l.scanOperator(ch)
	}
}

// runWhile returns how many runes from the current position satisfy pred.
func (l *Lexer) runWhile(pred func(rune) bool) int {
	n := 0
	for l.pos+n < len(l.input) && pred(l.input[l.pos+n]) {
		n++
	}
	return n
}

// emit records a token of n runes at the current position and advances past it.
func (l *Lexer) emit(kind TokenKind, n int) Token {
	tok := Token{
		Kind:  kind,
		Text:  string(l.input[l.pos : l.pos+n]),
		Range: NewRange(l.line, l.col, n),
	}
	l.tokens = append(l.tokens, tok)
	l.pos += n
	l.col += n
	return tok
}

func (l *Lexer) scanString() {
	n := 1
	terminated := false
	for l.pos+n < len(l.input) && !isLineBreak(l.input[l.pos+n]) {
		if l.input[l.pos+n] == '"' {
			n++
			terminated = true
			break
		}
		n++
	}
	tok := l.emit(TokenStringLiteral, n)
	if !terminated {
		l.diagnostics.Report(UnterminatedStringLiteral, tok.Range)
	}
}

func (l *Lexer) scanNumber() {
	n := l.runWhile(isDigit)
	if l.peek(n) == '.' {
		n++
		for isDigit(l.peek(n)) {
			n++
		}
	}
	l.emit(TokenNumberLiteral, n)
}

func (l *Lexer) scanOperator(ch rune) {
	next := l.peek(1)
	switch {
	case ch == '<' && next == '>':
		l.emit(TokenNotEqual, 2)
	case ch == '<' && next == '=':
		l.emit(TokenLessThanOrEqual, 2)
	case ch == '>' && next == '=':
		l.emit(TokenGreaterThanOrEqual, 2)
	default:
		kind, ok := singleCharTokens[ch]
		if ok {
			l.emit(kind, 1)
			return
		}
		tok := l.emit(TokenUnrecognized, 1)
		l.diagnostics.Report(UnrecognizedCharacter, tok.Range, tok.Text)
	}
}

var singleCharTokens = map[rune]TokenKind{
	'.': TokenDot,
	',': TokenComma,
	':': TokenColon,
	'(': TokenLeftParen,
	')': TokenRightParen,
	'[': TokenLeftBracket,
	']': TokenRightBracket,
	'=': TokenEqual,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMultiply,
	'/': TokenDivide,
	'<': TokenLessThan,
	'>': TokenGreaterThan,
}

func isLineBreak(r rune) bool { return r == '\n' || r == '\r' }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentifierStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentifierPart(r rune) bool { return isIdentifierStart(r) || isDigit(r) }
