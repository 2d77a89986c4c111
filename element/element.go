// Package element defines the normalized element tree the engine consumes.
// A language front end lowers source files into Elements; every other
// package operates on this representation and never on raw source text.
package element

import (
	"fmt"
)

// Kind classifies a documentable code unit.
type Kind string

const (
	KindModule   Kind = "module"
	KindClass    Kind = "class"
	KindMethod   Kind = "method"
	KindFunction Kind = "function"
)

// Valid returns true for the four recognized element kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindModule, KindClass, KindMethod, KindFunction:
		return true
	}
	return false
}

// Callable returns true for kinds that carry a parameter signature.
func (k Kind) Callable() bool {
	return k == KindMethod || k == KindFunction
}

// Param is one entry of a callable's signature, in declaration order.
type Param struct {
	Name       string
	Type       string // declared type descriptor, "" when unannotated
	HasDefault bool
}

// Attribute is one entry of a class signature.
type Attribute struct {
	Name string
	Type string
}

// Element is a documentable unit: module, class, method, or function.
// A parent exclusively owns its Children; children hold no back-pointer.
type Element struct {
	Kind Kind
	Name string

	// QualifiedPath is dotted (module.Class.method), unique within a tree,
	// and stable across re-parses of the same source revision. It is the
	// join key between old and new trees.
	QualifiedPath string

	// Params is the ordered signature for callables.
	Params []Param

	// Attributes is the ordered signature for classes.
	Attributes []Attribute

	// ReturnType is the declared return type descriptor, "" when absent
	// (modules, classes, unannotated callables).
	ReturnType string

	// Body is the lowered implementation the fact extractor reads.
	// nil means the front end could not read the body.
	Body *Body

	// DocText is the raw documentation currently attached, "" when absent.
	DocText string

	Children []*Element

	// Source location, carried through for reporting.
	Path      string
	StartLine int
	EndLine   int
	Language  string
}

// Walk visits el and every descendant depth-first in declaration order.
// Returning false from fn stops the walk.
func (el *Element) Walk(fn func(*Element) bool) bool {
	if !fn(el) {
		return false
	}
	for _, child := range el.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// Flatten returns el and all descendants in depth-first declaration order.
// This order is the canonical record order for a run's output.
func (el *Element) Flatten() []*Element {
	var out []*Element
	el.Walk(func(e *Element) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Validate checks tree-level invariants: recognized kinds and unique
// qualified paths. Front ends call this before handing a tree to the engine.
func (el *Element) Validate() error {
	seen := make(map[string]bool)
	var firstErr error
	el.Walk(func(e *Element) bool {
		if !e.Kind.Valid() {
			firstErr = fmt.Errorf("element %q: unrecognized kind %q", e.QualifiedPath, e.Kind)
			return false
		}
		if e.QualifiedPath == "" {
			firstErr = fmt.Errorf("element %q: empty qualified path", e.Name)
			return false
		}
		if seen[e.QualifiedPath] {
			firstErr = fmt.Errorf("duplicate qualified path %q", e.QualifiedPath)
			return false
		}
		seen[e.QualifiedPath] = true
		return true
	})
	return firstErr
}

// ParamNames returns the signature's parameter names in order, excluding
// the implicit receiver of methods.
func (el *Element) ParamNames() []string {
	names := make([]string, 0, len(el.Params))
	for _, p := range el.Params {
		if el.Kind == KindMethod && (p.Name == "self" || p.Name == "cls") {
			continue
		}
		names = append(names, p.Name)
	}
	return names
}

// ParamType returns the declared type descriptor for a parameter name,
// or "" when the parameter is absent or unannotated.
func (el *Element) ParamType(name string) string {
	for _, p := range el.Params {
		if p.Name == name {
			return p.Type
		}
	}
	return ""
}

// AttributeType returns the declared type descriptor for an attribute name.
func (el *Element) AttributeType(name string) string {
	for _, a := range el.Attributes {
		if a.Name == name {
			return a.Type
		}
	}
	return ""
}
