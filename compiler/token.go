package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Positions and tokens
// ---------------------------------------------------------------------------

// Position is a zero-based (line, column) location in source text.
// Columns count runes, not bytes.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.Line, p.Column)
}

// Before reports whether p comes strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// TextRange is an inclusive span of source text. Token, diagnostic and
// instruction ranges always have Start.Line == End.Line; only block statements
// in the syntax tree cover several lines.
type TextRange struct {
	Start Position
	End   Position
}

// NewRange builds a single-line range covering length runes from (line, column).
func NewRange(line, column, length int) TextRange {
	if length < 1 {
		length = 1
	}
	return TextRange{
		Start: Position{Line: line, Column: column},
		End:   Position{Line: line, Column: column + length - 1},
	}
}

// Line returns the line the range lies on.
func (r TextRange) Line() int { return r.Start.Line }

// Contains reports whether pos lies within the range.
func (r TextRange) Contains(pos Position) bool {
	return !pos.Before(r.Start) && !r.End.Before(pos)
}

// To returns a range from the start of r to the end of other.
func (r TextRange) To(other TextRange) TextRange {
	return TextRange{Start: r.Start, End: other.End}
}

func (r TextRange) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenUnrecognized TokenKind = iota
	TokenComment
	TokenIdentifier
	TokenNumberLiteral
	TokenStringLiteral

	// Keywords
	TokenIf
	TokenThen
	TokenElseIf
	TokenElse
	TokenEndIf
	TokenFor
	TokenTo
	TokenStep
	TokenEndFor
	TokenWhile
	TokenEndWhile
	TokenGoto
	TokenSub
	TokenEndSub
	TokenAnd
	TokenOr

	// Punctuation and operators
	TokenDot
	TokenComma
	TokenColon
	TokenLeftParen
	TokenRightParen
	TokenLeftBracket
	TokenRightBracket
	TokenEqual
	TokenNotEqual
	TokenPlus
	TokenMinus
	TokenMultiply
	TokenDivide
	TokenLessThan
	TokenGreaterThan
	TokenLessThanOrEqual
	TokenGreaterThanOrEqual
)

var tokenNames = map[TokenKind]string{
	TokenUnrecognized:       "unrecognized",
	TokenComment:            "comment",
	TokenIdentifier:         "identifier",
	TokenNumberLiteral:      "number",
	TokenStringLiteral:      "string",
	TokenIf:                 "If",
	TokenThen:               "Then",
	TokenElseIf:             "ElseIf",
	TokenElse:               "Else",
	TokenEndIf:              "EndIf",
	TokenFor:                "For",
	TokenTo:                 "To",
	TokenStep:               "Step",
	TokenEndFor:             "EndFor",
	TokenWhile:              "While",
	TokenEndWhile:           "EndWhile",
	TokenGoto:               "Goto",
	TokenSub:                "Sub",
	TokenEndSub:             "EndSub",
	TokenAnd:                "And",
	TokenOr:                 "Or",
	TokenDot:                ".",
	TokenComma:              ",",
	TokenColon:              ":",
	TokenLeftParen:          "(",
	TokenRightParen:         ")",
	TokenLeftBracket:        "[",
	TokenRightBracket:       "]",
	TokenEqual:              "=",
	TokenNotEqual:           "<>",
	TokenPlus:               "+",
	TokenMinus:              "-",
	TokenMultiply:           "*",
	TokenDivide:             "/",
	TokenLessThan:           "<",
	TokenGreaterThan:        ">",
	TokenLessThanOrEqual:    "<=",
	TokenGreaterThanOrEqual: ">=",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// IsKeyword reports whether k is a reserved word.
func (k TokenKind) IsKeyword() bool {
	return k >= TokenIf && k <= TokenOr
}

// Token is a lexical token with its exact source text.
type Token struct {
	Kind  TokenKind
	Text  string
	Range TextRange
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Range)
}

// keywords maps lowercase reserved words to their kinds.
var keywords = map[string]TokenKind{
	"if":       TokenIf,
	"then":     TokenThen,
	"elseif":   TokenElseIf,
	"else":     TokenElse,
	"endif":    TokenEndIf,
	"for":      TokenFor,
	"to":       TokenTo,
	"step":     TokenStep,
	"endfor":   TokenEndFor,
	"while":    TokenWhile,
	"endwhile": TokenEndWhile,
	"goto":     TokenGoto,
	"sub":      TokenSub,
	"endsub":   TokenEndSub,
	"and":      TokenAnd,
	"or":       TokenOr,
}

// LookupKeyword returns the keyword kind for word, or TokenIdentifier.
func LookupKeyword(word string) TokenKind {
	if kind, ok := keywords[strings.ToLower(word)]; ok {
		return kind
	}
	return TokenIdentifier
}

// Keywords returns the canonical spelling of every reserved word.
func Keywords() []string {
	names := make([]string, 0, len(keywords))
	for kind := TokenIf; kind <= TokenOr; kind++ {
		names = append(names, kind.String())
	}
	return names
}
