// Package server implements the language server for SuperBasic programs.
package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/superbasic/compiler"
	"github.com/chazu/superbasic/library"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "superbasic-lsp"

var log = commonlog.GetLogger("superbasic.lsp")

// document is an open editor buffer and its latest compilation.
type document struct {
	text string
	comp *compiler.Compilation
}

// LspServer bridges LSP editor features to the compiler.
type LspServer struct {
	registry *library.Registry
	desktop  bool

	mu   sync.Mutex
	docs map[string]*document // URI → document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server. desktop controls whether members that
// need desktop services are reported as errors.
func NewLSP(registry *library.Registry, desktop bool) *LspServer {
	s := &LspServer{
		registry: registry,
		desktop:  desktop,
		docs:     make(map[string]*document),
		version:  "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("SuperBasic LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

// update compiles text and stores it as the current state of uri.
func (s *LspServer) update(uri protocol.DocumentUri, text string) *compiler.Compilation {
	comp := compiler.Compile(text, s.desktop, s.registry)

	s.mu.Lock()
	s.docs[string(uri)] = &document{text: text, comp: comp}
	s.mu.Unlock()

	log.Debugf("%s: %d diagnostics", uri, len(comp.Diagnostics))
	return comp
}

func (s *LspServer) document(uri protocol.DocumentUri) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[string(uri)]
	return doc, ok
}

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	comp := s.update(uri, params.TextDocument.Text)
	s.publishDiagnostics(ctx, uri, comp)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			comp := s.update(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, comp)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return s.complete(doc, params.Position), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return s.hover(doc, params.Position), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	rng, ok := s.definition(doc, params.Position)
	if !ok {
		return nil, nil
	}
	return []protocol.Location{{URI: params.TextDocument.URI, Range: toProtocolRange(rng)}}, nil
}

// --- Compiler-backed logic ---

func (s *LspServer) complete(doc *document, pos protocol.Position) []protocol.CompletionItem {
	prefix, libName := extractPrefix(doc.text, pos)
	lowerPrefix := strings.ToLower(prefix)

	var items []protocol.CompletionItem
	add := func(label string, kind protocol.CompletionItemKind, detail, documentation string) {
		if !strings.HasPrefix(strings.ToLower(label), lowerPrefix) {
			return
		}
		item := protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		}
		if documentation != "" {
			item.Documentation = documentation
		}
		items = append(items, item)
	}

	// Members after "Library."
	if libName != "" {
		lib, ok := s.registry.Lookup(libName)
		if !ok {
			return nil
		}
		for _, m := range lib.Methods {
			add(m.Name, protocol.CompletionItemKindMethod, methodSignature(lib, m), m.Description)
		}
		for _, p := range lib.Properties {
			add(p.Name, protocol.CompletionItemKindProperty, "property", p.Description)
		}
		for _, e := range lib.Events {
			add(e.Name, protocol.CompletionItemKindEvent, "event", e.Description)
		}
		return items
	}

	if prefix == "" {
		return nil
	}

	for _, name := range s.registry.Names() {
		lib, _ := s.registry.Lookup(name)
		add(name, protocol.CompletionItemKindModule, "library", lib.Description)
	}
	for _, kw := range compiler.Keywords() {
		add(kw, protocol.CompletionItemKindKeyword, "keyword", "")
	}

	names := compiler.CollectNames(doc.comp.Syntax, &compiler.DiagnosticBag{})
	for _, name := range sortedKeys(names.SubModules) {
		add(name, protocol.CompletionItemKindFunction, "sub", "")
	}
	for _, name := range sortedKeys(names.AssignedVariables) {
		add(name, protocol.CompletionItemKindVariable, "variable", "")
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

func (s *LspServer) hover(doc *document, pos protocol.Position) *protocol.Hover {
	p := toCompilerPosition(pos)
	path := compiler.FindNodeAt(doc.comp.Syntax, p)

	for i := len(path) - 1; i >= 0; i-- {
		switch n := path[i].(type) {
		case *compiler.ObjectAccessExpression:
			if !n.Member.Range.Contains(p) {
				continue
			}
			base, ok := n.Base.(*compiler.IdentifierExpression)
			if !ok {
				return nil
			}
			lib, ok := s.registry.Lookup(base.Identifier.Text)
			if !ok {
				return nil
			}
			return markdownHover(memberHover(lib, n.Member.Text), n.Member.Range)

		case *compiler.IdentifierExpression:
			name := n.Identifier.Text
			if lib, ok := s.registry.Lookup(name); ok {
				return markdownHover(libraryHover(lib), n.Range())
			}
			names := compiler.CollectNames(doc.comp.Syntax, &compiler.DiagnosticBag{})
			if _, ok := names.SubModules[name]; ok {
				return markdownHover(fmt.Sprintf("**Sub %s**", name), n.Range())
			}
			if names.AssignedVariables[name] {
				return markdownHover(fmt.Sprintf("**%s** (variable)", name), n.Range())
			}
			return nil
		}
	}
	return nil
}

// definition finds where the sub-module or label under pos is declared.
func (s *LspServer) definition(doc *document, pos protocol.Position) (compiler.TextRange, bool) {
	p := toCompilerPosition(pos)
	path := compiler.FindNodeAt(doc.comp.Syntax, p)
	if len(path) == 0 {
		return compiler.TextRange{}, false
	}

	switch n := path[len(path)-1].(type) {
	case *compiler.IdentifierExpression:
		names := compiler.CollectNames(doc.comp.Syntax, &compiler.DiagnosticBag{})
		if sub, ok := names.SubModules[n.Identifier.Text]; ok {
			return sub.Name.Range, true
		}

	case *compiler.GoToStatement:
		scope := doc.comp.Syntax
		for _, node := range path {
			if sub, ok := node.(*compiler.SubModuleStatement); ok {
				scope = sub.Body
			}
		}
		var found compiler.TextRange
		ok := false
		compiler.Inspect(scope, func(node compiler.Node) bool {
			switch node := node.(type) {
			case *compiler.SubModuleStatement:
				return false
			case *compiler.LabelStatement:
				if !ok && node.Label.Text == n.Label.Text {
					found, ok = node.Label.Range, true
				}
			}
			return true
		})
		return found, ok
	}
	return compiler.TextRange{}, false
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, comp *compiler.Compilation) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toProtocolDiagnostics(comp.Diagnostics),
	})
}

func toProtocolDiagnostics(diags []compiler.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	severity := protocol.DiagnosticSeverityError
	source := lspName
	for _, d := range diags {
		out = append(out, protocol.Diagnostic{
			Range:    toProtocolRange(d.Range),
			Severity: &severity,
			Code:     &protocol.IntegerOrString{Value: d.Code.String()},
			Source:   &source,
			Message:  d.Message(),
		})
	}
	return out
}

// --- Rendering helpers ---

func methodSignature(lib *library.Library, m *library.Method) string {
	sig := fmt.Sprintf("%s.%s(%s)", lib.Name, m.Name, strings.Join(m.Parameters, ", "))
	if m.ReturnsValue {
		sig += " returns a value"
	}
	return sig
}

func libraryHover(lib *library.Library) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", lib.Name)
	if lib.Description != "" {
		fmt.Fprintf(&b, "\n\n%s", lib.Description)
	}
	fmt.Fprintf(&b, "\n\nMembers: `%s`", strings.Join(lib.MemberNames(), "`, `"))
	return b.String()
}

func memberHover(lib *library.Library, name string) string {
	var b strings.Builder
	var member library.Member
	if m, ok := lib.Method(name); ok {
		fmt.Fprintf(&b, "**%s**", methodSignature(lib, m))
		member = m.Member
	} else if p, ok := lib.Property(name); ok {
		access := "read-only"
		if p.HasSetter {
			access = "read/write"
		}
		fmt.Fprintf(&b, "**%s.%s** (property, %s)", lib.Name, p.Name, access)
		member = p.Member
	} else if e, ok := lib.Event(name); ok {
		fmt.Fprintf(&b, "**%s.%s** (event)", lib.Name, e.Name)
		member = e.Member
	} else {
		return fmt.Sprintf("`%s` has no member `%s`", lib.Name, name)
	}
	if member.Description != "" {
		fmt.Fprintf(&b, "\n\n%s", member.Description)
	}
	if member.Deprecated {
		b.WriteString("\n\n*Deprecated.*")
	}
	if member.NeedsDesktop {
		b.WriteString("\n\n*Needs the desktop runtime.*")
	}
	return b.String()
}

func markdownHover(value string, rng compiler.TextRange) *protocol.Hover {
	r := toProtocolRange(rng)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
		Range: &r,
	}
}

// --- Position conversion ---

// toProtocolRange converts an inclusive compiler range to an LSP range,
// whose end is exclusive.
func toProtocolRange(r compiler.TextRange) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(r.Start.Line), Character: protocol.UInteger(r.Start.Column)},
		End:   protocol.Position{Line: protocol.UInteger(r.End.Line), Character: protocol.UInteger(r.End.Column + 1)},
	}
}

func toCompilerPosition(pos protocol.Position) compiler.Position {
	return compiler.Position{Line: int(pos.Line), Column: int(pos.Character)}
}

// --- Text extraction helpers ---

func isIdentifierRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// lineBreaks folds CRLF and lone CR into LF, matching the lexer's lines.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// lineRunes returns the runes of the cursor's line and the cursor column
// clamped to it.
func lineRunes(text string, pos protocol.Position) ([]rune, int, bool) {
	lines := strings.Split(lineBreaks.Replace(text), "\n")
	if int(pos.Line) >= len(lines) {
		return nil, 0, false
	}
	line := []rune(lines[pos.Line])
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// extractPrefix returns the identifier fragment before the cursor and, when
// the fragment follows "Name.", the name before the dot.
func extractPrefix(text string, pos protocol.Position) (prefix, base string) {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return "", ""
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentifierRune(line[start-1]) {
		start--
	}
	prefix = string(line[start:col])

	if start > 0 && line[start-1] == '.' {
		end := start - 1
		baseStart := end
		for baseStart > 0 && isIdentifierRune(line[baseStart-1]) {
			baseStart--
		}
		base = string(line[baseStart:end])
	}
	return prefix, base
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func boolPtr(b bool) *bool {
	return &b
}
