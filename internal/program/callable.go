package program

import (
	"qirgen/internal/source"
)

// CallableFlags encode visibility and linkage for quick checks.
type CallableFlags uint16

const (
	// CallablePublic marks a callable visible outside its package.
	CallablePublic CallableFlags = 1 << iota
	// CallableExternal marks a declaration whose body lives elsewhere.
	CallableExternal
)

// Has reports whether all bits of flag are set.
func (f CallableFlags) Has(flag CallableFlags) bool {
	return f&flag == flag
}

// Strings returns textual flag labels.
func (f CallableFlags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 2)
	if f&CallablePublic != 0 {
		labels = append(labels, "public")
	}
	if f&CallableExternal != 0 {
		labels = append(labels, "external")
	}
	return labels
}

// Param is one formal parameter of a callable.
type Param struct {
	Name source.StringID
	Type TypeKind
}

// Callable is one declaration from a program snapshot.
type Callable struct {
	Name   source.StringID
	Flags  CallableFlags
	File   source.FileID
	Span   source.Span
	Attrs  []Attribute
	Params []Param
	Result TypeKind
	Body   []Op
}

// HasAttr reports whether the callable carries an attribute of the given kind.
func (c *Callable) HasAttr(kind AttrKind) bool {
	for i := range c.Attrs {
		if c.Attrs[i].Kind == kind {
			return true
		}
	}
	return false
}

// Attr returns the first attribute of the given kind.
func (c *Callable) Attr(kind AttrKind) (Attribute, bool) {
	for i := range c.Attrs {
		if c.Attrs[i].Kind == kind {
			return c.Attrs[i], true
		}
	}
	return Attribute{}, false
}

// GloballyVisible reports whether the callable participates in entry point
// discovery: declared public and owned by this program.
func (c *Callable) GloballyVisible() bool {
	return c.Flags.Has(CallablePublic) && !c.Flags.Has(CallableExternal)
}
