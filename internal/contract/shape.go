// Package contract parses contract type expressions into a closed set of
// shapes and derives the canonical map keys used by the registry.
package contract

import (
	"strings"
)

// Shape is a parsed contract type expression.
//
// The set of implementations is closed: Named, Generic, Wildcard, Union,
// Array and Pointer. Shapes are compared structurally with Equal.
type Shape interface {
	// String returns the canonical textual form. Parse(s.String()) is
	// structurally equal to s.
	String() string
	// Base returns the bare name of the outermost named type.
	Base() string

	shape()
}

// Named is a plain, non-generic type name such as `Logger` or `pkg.Logger`.
type Named struct {
	Name string
}

// Generic is a named type instantiated with type arguments, e.g. `Cache<User>`.
type Generic struct {
	Name string
	Args []Shape
}

// Wildcard stands for every instantiation of a generic family, e.g. `Cache<*>`.
// It is what a wildcard key decodes to.
type Wildcard struct {
	Name string
}

// Union is an alternation of two or more members, e.g. `A | B`.
type Union struct {
	Members []Shape
}

// Array is a list of Elem, written `T[]` (or `[]T` in Go notation).
type Array struct {
	Elem Shape
}

// Pointer is a pointer to Elem, written `*T`.
type Pointer struct {
	Elem Shape
}

func (Named) shape()    {}
func (Generic) shape()  {}
func (Wildcard) shape() {}
func (Union) shape()    {}
func (Array) shape()    {}
func (Pointer) shape()  {}

func (s Named) String() string { return s.Name }

func (s Generic) String() string {
	args := make([]string, 0, len(s.Args))
	for _, arg := range s.Args {
		args = append(args, arg.String())
	}

	return s.Name + "<" + strings.Join(args, ", ") + ">"
}

func (s Wildcard) String() string { return s.Name + "<*>" }

func (s Union) String() string {
	members := make([]string, 0, len(s.Members))
	for _, m := range s.Members {
		members = append(members, m.String())
	}

	return strings.Join(members, " | ")
}

func (s Array) String() string {
	if _, ok := s.Elem.(Union); ok {
		return "(" + s.Elem.String() + ")[]"
	}

	return s.Elem.String() + "[]"
}

func (s Pointer) String() string {
	switch s.Elem.(type) {
	case Union, Array:
		return "*(" + s.Elem.String() + ")"
	default:
		return "*" + s.Elem.String()
	}
}

func (s Named) Base() string    { return s.Name }
func (s Generic) Base() string  { return s.Name }
func (s Wildcard) Base() string { return s.Name }
func (s Union) Base() string    { return s.String() }
func (s Array) Base() string    { return s.Elem.Base() }
func (s Pointer) Base() string  { return s.Elem.Base() }

// IsGeneric reports whether s is a generic instantiation or a wildcard family.
func IsGeneric(s Shape) bool {
	switch s.(type) {
	case Generic, Wildcard:
		return true
	default:
		return false
	}
}

// Family returns the generic family name of s, or "" if s is not generic.
func Family(s Shape) string {
	switch s := s.(type) {
	case Generic:
		return s.Name
	case Wildcard:
		return s.Name
	default:
		return ""
	}
}

// Args returns the canonical text of each type argument of a generic shape.
func Args(s Shape) []string {
	g, ok := s.(Generic)
	if !ok {
		return nil
	}

	args := make([]string, 0, len(g.Args))
	for _, arg := range g.Args {
		args = append(args, arg.String())
	}

	return args
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Shape) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case Named:
		b, ok := b.(Named)
		return ok && a.Name == b.Name
	case Wildcard:
		b, ok := b.(Wildcard)
		return ok && a.Name == b.Name
	case Generic:
		b, ok := b.(Generic)
		return ok && a.Name == b.Name && equalAll(a.Args, b.Args)
	case Union:
		b, ok := b.(Union)
		return ok && equalAll(a.Members, b.Members)
	case Array:
		b, ok := b.(Array)
		return ok && Equal(a.Elem, b.Elem)
	case Pointer:
		b, ok := b.(Pointer)
		return ok && Equal(a.Elem, b.Elem)
	default:
		return false
	}
}

func equalAll(a, b []Shape) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}
