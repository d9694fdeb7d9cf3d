package compiler

import (
	"strings"
	"testing"
)

func scan(t *testing.T, text string) ([]Token, []Diagnostic) {
	t.Helper()
	var diags DiagnosticBag
	tokens := Scan(text, &diags)
	return tokens, diags.Contents()
}

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func sameKinds(a, b []TokenKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLexerTokenKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenKind
	}{
		{"assignment", "x = 5", []TokenKind{TokenIdentifier, TokenEqual, TokenNumberLiteral}},
		{"decimal", "3.25", []TokenKind{TokenNumberLiteral}},
		{"negative is two tokens", "-4", []TokenKind{TokenMinus, TokenNumberLiteral}},
		{"two-char operators", "a <> b <= c >= d", []TokenKind{
			TokenIdentifier, TokenNotEqual, TokenIdentifier, TokenLessThanOrEqual,
			TokenIdentifier, TokenGreaterThanOrEqual, TokenIdentifier,
		}},
		{"single-char operators", "+-*/<>=", []TokenKind{
			TokenPlus, TokenMinus, TokenMultiply, TokenDivide, TokenNotEqual, TokenEqual,
		}},
		{"punctuation", "a.b(c, d[1]):", []TokenKind{
			TokenIdentifier, TokenDot, TokenIdentifier, TokenLeftParen, TokenIdentifier,
			TokenComma, TokenIdentifier, TokenLeftBracket, TokenNumberLiteral,
			TokenRightBracket, TokenRightParen, TokenColon,
		}},
		{"keywords any case", "if THEN ElseIf endfor", []TokenKind{TokenIf, TokenThen, TokenElseIf, TokenEndFor}},
		{"identifier with digits", "_count2", []TokenKind{TokenIdentifier}},
		{"comment to end of line", "x = 1 ' note = 2\ny", []TokenKind{
			TokenIdentifier, TokenEqual, TokenNumberLiteral, TokenComment, TokenIdentifier,
		}},
		{"string", `"hello world"`, []TokenKind{TokenStringLiteral}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, diags := scan(t, tt.input)
			if len(diags) != 0 {
				t.Errorf("unexpected diagnostics: %v", diags)
			}
			if got := kinds(tokens); !sameKinds(got, tt.want) {
				t.Errorf("kinds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLexerRanges(t *testing.T) {
	tokens, _ := scan(t, "ab = \"ü\"\n  cd")
	want := []TextRange{
		NewRange(0, 0, 2),
		NewRange(0, 3, 1),
		NewRange(0, 5, 3),
		NewRange(1, 2, 2),
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, tok := range tokens {
		if tok.Range != want[i] {
			t.Errorf("token %d %q range = %s, want %s", i, tok.Text, tok.Range, want[i])
		}
	}
}

func TestLexerTokensReconstructSource(t *testing.T) {
	source := "If x<>1 Then\n  TextWindow.WriteLine(\"a b\") ' done\nEndIf\n"
	tokens, _ := scan(t, source)

	lines := strings.Split(source, "\n")
	prevEnd := Position{Line: -1}
	for _, tok := range tokens {
		if tok.Range.Start.Line != tok.Range.End.Line {
			t.Errorf("token %s spans lines", tok)
		}
		if !prevEnd.Before(tok.Range.Start) {
			t.Errorf("token %s overlaps the previous token", tok)
		}
		prevEnd = tok.Range.End

		line := []rune(lines[tok.Range.Line()])
		if got := string(line[tok.Range.Start.Column : tok.Range.End.Column+1]); got != tok.Text {
			t.Errorf("source at %s = %q, token text %q", tok.Range, got, tok.Text)
		}
	}
}

func TestLexerLineEndings(t *testing.T) {
	for _, source := range []string{"x = 1\ny = 2", "x = 1\r\ny = 2", "x = 1\ry = 2"} {
		tokens, diags := scan(t, source)
		if len(diags) != 0 {
			t.Errorf("%q: diagnostics %v", source, diags)
		}
		if last := tokens[len(tokens)-1]; last.Range != NewRange(1, 4, 1) {
			t.Errorf("%q: last token at %s, want line 1", source, last.Range)
		}
	}

	block, diags := parse(t, "x = 1 ' note\ry = \"a\ry = 2")
	if got := codes(diags); len(got) != 1 || got[0] != UnterminatedStringLiteral {
		t.Errorf("codes = %v, want [UnterminatedStringLiteral]", got)
	}
	if len(block.Statements) != 3 {
		t.Errorf("got %d statements, want 3", len(block.Statements))
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	tokens, diags := scan(t, "x = \"name\ny = 1")
	if len(diags) != 1 || diags[0].Code != UnterminatedStringLiteral {
		t.Fatalf("diagnostics = %v, want one UnterminatedStringLiteral", diags)
	}
	if diags[0].Range != NewRange(0, 4, 5) {
		t.Errorf("diagnostic range = %s, want the string's text", diags[0].Range)
	}
	if tokens[2].Text != `"name` || tokens[3].Range.Line() != 1 {
		t.Errorf("tokens = %v", tokens)
	}
}

func TestLexerUnrecognizedCharacter(t *testing.T) {
	tokens, diags := scan(t, "a $ b")
	if len(diags) != 1 || diags[0].Code != UnrecognizedCharacter {
		t.Fatalf("diagnostics = %v", diags)
	}
	if diags[0].Message() != "I don't understand this character '$'." {
		t.Errorf("message = %q", diags[0].Message())
	}
	if want := []TokenKind{TokenIdentifier, TokenUnrecognized, TokenIdentifier}; !sameKinds(kinds(tokens), want) {
		t.Errorf("kinds = %v, want %v", kinds(tokens), want)
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords()
	if len(got) != 16 || got[0] != "If" || got[len(got)-1] != "Or" {
		t.Errorf("Keywords() = %v", got)
	}
	if LookupKeyword("WHILE") != TokenWhile || LookupKeyword("whilst") != TokenIdentifier {
		t.Error("LookupKeyword is not case-insensitive over reserved words only")
	}
}
