package program

import (
	"slices"

	"qirgen/internal/source"
)

// AttrKind is the typed identity of a resolved attribute. Backend code
// compares kinds, never attribute spellings.
type AttrKind uint8

const (
	// AttrUnknown is any attribute the catalog does not know; the raw name
	// is preserved on the Attribute.
	AttrUnknown AttrKind = iota
	// AttrEntryPoint marks the callable the generated module starts from.
	AttrEntryPoint
	// AttrDeprecated marks a callable that should no longer be called.
	AttrDeprecated
	// AttrInline is a lowering hint; the backend is free to ignore it.
	AttrInline
)

func (k AttrKind) String() string {
	switch k {
	case AttrEntryPoint:
		return "EntryPoint"
	case AttrDeprecated:
		return "Deprecated"
	case AttrInline:
		return "Inline"
	default:
		return "unknown"
	}
}

// AttrSpec describes a well-known attribute.
type AttrSpec struct {
	Name      string
	Kind      AttrKind
	TakesArgs bool
}

var attrCatalog = map[string]AttrSpec{
	"EntryPoint": {Name: "EntryPoint", Kind: AttrEntryPoint},
	"Deprecated": {Name: "Deprecated", Kind: AttrDeprecated, TakesArgs: true},
	"Inline":     {Name: "Inline", Kind: AttrInline},
}

// LookupAttr resolves an attribute spelling. Matching is exact: attribute
// names are declared identifiers, not user input.
func LookupAttr(name string) (AttrSpec, bool) {
	spec, ok := attrCatalog[name]
	return spec, ok
}

// AttrSpecs returns all registered attribute specs sorted by name.
func AttrSpecs() []AttrSpec {
	names := make([]string, 0, len(attrCatalog))
	for name := range attrCatalog {
		names = append(names, name)
	}
	slices.Sort(names)
	result := make([]AttrSpec, 0, len(names))
	for _, name := range names {
		result = append(result, attrCatalog[name])
	}
	return result
}

// Attribute is one resolved attribute use on a callable.
type Attribute struct {
	Kind AttrKind
	// Raw is the spelling as written; the only way to identify an
	// AttrUnknown attribute.
	Raw  source.StringID
	Args []string
	Span source.Span
}
