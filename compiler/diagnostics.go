package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Diagnostics: positioned, recoverable language errors
// ---------------------------------------------------------------------------

// DiagnosticCode identifies the kind of a diagnostic.
type DiagnosticCode int

const (
	UnrecognizedCharacter DiagnosticCode = iota
	UnterminatedStringLiteral
	UnexpectedTokenFound
	UnexpectedEndOfStream
	UnexpectedStatementInsteadOfNewLine
	UnexpectedTokenInsteadOfStatement
	TwoSubModulesWithTheSameName
	TwoLabelsWithTheSameName
	GoToUndefinedLabel
	AssigningNonSubModuleToEvent
	UnexpectedArgumentsCount
	ExpectedExpressionWithAValue
	UnassignedExpressionStatement
	InvalidExpressionStatement
	UnsupportedArrayBaseExpression
	UnsupportedDotBaseExpression
	UnsupportedInvocationBaseExpression
	LibraryMemberNotFound
	LibraryMemberDeprecatedFromOlderVersion
	LibraryMemberNeedsDesktop
	PropertyHasNoSetter
	LibraryKindConflict
)

type diagnosticInfo struct {
	name   string
	format string
}

// Formats use {0}, {1}, ... placeholders for the diagnostic's arguments.
var diagnosticInfos = map[DiagnosticCode]diagnosticInfo{
	UnrecognizedCharacter:                   {"UnrecognizedCharacter", "I don't understand this character '{0}'."},
	UnterminatedStringLiteral:               {"UnterminatedStringLiteral", "This string is missing its right double quotes."},
	UnexpectedTokenFound:                    {"UnexpectedTokenFound", "Unexpected token '{0}' found. I was expecting a token of type '{1}'."},
	UnexpectedEndOfStream:                   {"UnexpectedEndOfStream", "Unexpected end of line. I was expecting a token of type '{0}'."},
	UnexpectedStatementInsteadOfNewLine:     {"UnexpectedStatementInsteadOfNewLine", "This statement should go on a new line."},
	UnexpectedTokenInsteadOfStatement:       {"UnexpectedTokenInsteadOfStatement", "Unexpected token '{0}' found. I was expecting a new statement."},
	TwoSubModulesWithTheSameName:            {"TwoSubModulesWithTheSameName", "Another sub-module with the same name '{0}' is already defined."},
	TwoLabelsWithTheSameName:                {"TwoLabelsWithTheSameName", "Another label with the same name '{0}' is already defined."},
	GoToUndefinedLabel:                      {"GoToUndefinedLabel", "No label with the name '{0}' exists in the same module."},
	AssigningNonSubModuleToEvent:            {"AssigningNonSubModuleToEvent", "You can only assign a sub-module name to an event."},
	UnexpectedArgumentsCount:                {"UnexpectedArgumentsCount", "I was expecting {0} arguments, but found {1} instead."},
	ExpectedExpressionWithAValue:            {"ExpectedExpressionWithAValue", "This expression must return a value to be used here."},
	UnassignedExpressionStatement:           {"UnassignedExpressionStatement", "This value is not assigned to anything. Did you mean to assign it to a variable?"},
	InvalidExpressionStatement:              {"InvalidExpressionStatement", "This expression is not a valid statement."},
	UnsupportedArrayBaseExpression:          {"UnsupportedArrayBaseExpression", "This expression is not a valid array."},
	UnsupportedDotBaseExpression:            {"UnsupportedDotBaseExpression", "You can only use dot access with a library. Did you mean to use an existing library instead?"},
	UnsupportedInvocationBaseExpression:     {"UnsupportedInvocationBaseExpression", "This expression is not a sub-module or a library method that can be called."},
	LibraryMemberNotFound:                   {"LibraryMemberNotFound", "The library '{0}' has no member named '{1}'."},
	LibraryMemberDeprecatedFromOlderVersion: {"LibraryMemberDeprecatedFromOlderVersion", "The library member '{0}.{1}' was available in older versions only, and has not been made available to this version yet."},
	LibraryMemberNeedsDesktop:               {"LibraryMemberNeedsDesktop", "The library member '{0}.{1}' can only be used when running on the desktop."},
	PropertyHasNoSetter:                     {"PropertyHasNoSetter", "This property cannot be set. You can only get its value."},
	LibraryKindConflict:                     {"LibraryKindConflict", "The library '{0}' cannot be used in the same program as '{1}', which uses a different window."},
}

func (c DiagnosticCode) String() string {
	if info, ok := diagnosticInfos[c]; ok {
		return info.name
	}
	return fmt.Sprintf("DiagnosticCode(%d)", int(c))
}

// Diagnostic is an immutable, positioned language error.
type Diagnostic struct {
	Code  DiagnosticCode
	Range TextRange
	Args  []string
}

// Message renders the diagnostic's format string with its arguments.
func (d Diagnostic) Message() string {
	info, ok := diagnosticInfos[d.Code]
	if !ok {
		panic(fmt.Sprintf("compiler: no format for diagnostic code %d", int(d.Code)))
	}
	msg := info.format
	for i, arg := range d.Args {
		msg = strings.ReplaceAll(msg, fmt.Sprintf("{%d}", i), arg)
	}
	return msg
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Range, d.Code, d.Message())
}

// DiagnosticBag accumulates diagnostics in report order.
type DiagnosticBag struct {
	items []Diagnostic
}

// Report appends a diagnostic.
func (b *DiagnosticBag) Report(code DiagnosticCode, rng TextRange, args ...string) {
	b.items = append(b.items, Diagnostic{Code: code, Range: rng, Args: args})
}

// Len returns the number of diagnostics reported.
func (b *DiagnosticBag) Len() int { return len(b.items) }

// Contents returns a copy of the reported diagnostics.
func (b *DiagnosticBag) Contents() []Diagnostic {
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	return out
}
