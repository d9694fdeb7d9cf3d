// Package library describes the standard libraries a program can reference.
//
// The registry is built explicitly (NewRegistry or Parse) and passed to the
// binder, the language server and library implementations. It carries only
// signatures and flags; behavior lives behind the vm.Libraries contract.
package library

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed libraries.yaml
var standardLibraries []byte

// InputKind marks library methods that need host-supplied input.
type InputKind string

const (
	InputNone   InputKind = ""
	InputString InputKind = "string"
	InputNumber InputKind = "number"
)

// Member carries the fields shared by methods, properties and events.
type Member struct {
	Name               string `yaml:"name"`
	Description        string `yaml:"description"`
	UsesTextWindow     bool   `yaml:"usesTextWindow"`
	UsesGraphicsWindow bool   `yaml:"usesGraphicsWindow"`
	Deprecated         bool   `yaml:"deprecated"`
	NeedsDesktop       bool   `yaml:"needsDesktop"`
}

// Method is a callable library member.
type Method struct {
	Member       `yaml:",inline"`
	Parameters   []string  `yaml:"parameters"`
	ReturnsValue bool      `yaml:"returnsValue"`
	Input        InputKind `yaml:"input"`
}

// Arity returns the number of arguments the method takes.
func (m *Method) Arity() int { return len(m.Parameters) }

// Property is a readable, optionally writable, library value.
type Property struct {
	Member    `yaml:",inline"`
	HasSetter bool `yaml:"hasSetter"`
}

// Event is a library notification a sub-module can be assigned to.
type Event struct {
	Member `yaml:",inline"`
}

// Library is one named collection of members.
type Library struct {
	Name               string      `yaml:"name"`
	Description        string      `yaml:"description"`
	UsesTextWindow     bool        `yaml:"usesTextWindow"`
	UsesGraphicsWindow bool        `yaml:"usesGraphicsWindow"`
	Methods            []*Method   `yaml:"methods"`
	Properties         []*Property `yaml:"properties"`
	Events             []*Event    `yaml:"events"`

	methods    map[string]*Method
	properties map[string]*Property
	events     map[string]*Event
}

// Method looks up a method by name.
func (l *Library) Method(name string) (*Method, bool) {
	m, ok := l.methods[name]
	return m, ok
}

// Property looks up a property by name.
func (l *Library) Property(name string) (*Property, bool) {
	p, ok := l.properties[name]
	return p, ok
}

// Event looks up an event by name.
func (l *Library) Event(name string) (*Event, bool) {
	e, ok := l.events[name]
	return e, ok
}

// MemberNames returns every member name, sorted.
func (l *Library) MemberNames() []string {
	var names []string
	for _, m := range l.Methods {
		names = append(names, m.Name)
	}
	for _, p := range l.Properties {
		names = append(names, p.Name)
	}
	for _, e := range l.Events {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// UsesTextWindowFor reports whether using member opens the text window.
func (l *Library) UsesTextWindowFor(m Member) bool {
	return l.UsesTextWindow || m.UsesTextWindow
}

// UsesGraphicsWindowFor reports whether using member opens the graphics window.
func (l *Library) UsesGraphicsWindowFor(m Member) bool {
	return l.UsesGraphicsWindow || m.UsesGraphicsWindow
}

func (l *Library) index() error {
	l.methods = make(map[string]*Method, len(l.Methods))
	l.properties = make(map[string]*Property, len(l.Properties))
	l.events = make(map[string]*Event, len(l.Events))
	seen := make(map[string]bool)
	check := func(name string) error {
		if name == "" {
			return fmt.Errorf("library %s: member without a name", l.Name)
		}
		if seen[name] {
			return fmt.Errorf("library %s: duplicate member %s", l.Name, name)
		}
		seen[name] = true
		return nil
	}
	for _, m := range l.Methods {
		if err := check(m.Name); err != nil {
			return err
		}
		l.methods[m.Name] = m
	}
	for _, p := range l.Properties {
		if err := check(p.Name); err != nil {
			return err
		}
		l.properties[p.Name] = p
	}
	for _, e := range l.Events {
		if err := check(e.Name); err != nil {
			return err
		}
		l.events[e.Name] = e
	}
	return nil
}

// Registry maps library names to their descriptors.
type Registry struct {
	libraries map[string]*Library
	names     []string
}

// Parse builds a registry from a YAML descriptor document.
func Parse(data []byte) (*Registry, error) {
	var libs []*Library
	if err := yaml.Unmarshal(data, &libs); err != nil {
		return nil, fmt.Errorf("library: parse descriptors: %w", err)
	}
	r := &Registry{libraries: make(map[string]*Library, len(libs))}
	for _, lib := range libs {
		if lib.Name == "" {
			return nil, fmt.Errorf("library: descriptor without a name")
		}
		if _, dup := r.libraries[lib.Name]; dup {
			return nil, fmt.Errorf("library: duplicate library %s", lib.Name)
		}
		if err := lib.index(); err != nil {
			return nil, fmt.Errorf("library: %w", err)
		}
		r.libraries[lib.Name] = lib
		r.names = append(r.names, lib.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// NewRegistry returns a registry of the standard libraries.
func NewRegistry() *Registry {
	r, err := Parse(standardLibraries)
	if err != nil {
		panic(fmt.Sprintf("library: embedded descriptors are invalid: %v", err))
	}
	return r
}

// Lookup returns the library with the given name.
func (r *Registry) Lookup(name string) (*Library, bool) {
	lib, ok := r.libraries[name]
	return lib, ok
}

// Names returns all library names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
