package program

import (
	"fmt"

	"fortio.org/safecast"

	"qirgen/internal/source"
)

// Callables stores declarations in a compact slice-based arena,
// preserving snapshot declaration order.
type Callables struct {
	data []Callable
}

// NewCallables creates an arena with an optional capacity hint.
func NewCallables(capacity uint32) *Callables {
	if capacity == 0 {
		capacity = 16
	}
	return &Callables{
		data: make([]Callable, 1, capacity+1), // index 0 reserved for NoCallableID
	}
}

// New allocates a callable in the arena and returns its ID.
func (c *Callables) New(decl *Callable) CallableID {
	if decl == nil {
		panic("program: nil callable")
	}
	value, err := safecast.Conv[uint32](len(c.data))
	if err != nil {
		panic(fmt.Errorf("callable arena overflow: %w", err))
	}
	id := CallableID(value)
	c.data = append(c.data, *decl)
	return id
}

// Get returns a callable pointer or nil for an invalid ID.
func (c *Callables) Get(id CallableID) *Callable {
	if !id.IsValid() || int(id) >= len(c.data) {
		return nil
	}
	return &c.data[id]
}

// Len reports the number of stored callables excluding the sentinel.
func (c *Callables) Len() int { return len(c.data) - 1 }

// Program is the typed registry a snapshot decodes into. Callable and
// attribute names are interned in Strings.
type Program struct {
	Package   string
	Callables *Callables
	Strings   *source.Interner

	// byName maps a name to its first declaration; later duplicates are
	// kept in the arena and flagged by Validate.
	byName map[source.StringID]CallableID
}

// NewProgram creates an empty program registry.
func NewProgram(pkg string) *Program {
	return &Program{
		Package:   pkg,
		Callables: NewCallables(0),
		Strings:   source.NewInterner(),
		byName:    make(map[source.StringID]CallableID),
	}
}

// Add registers a callable and returns its ID. The first declaration of a
// name wins lookups.
func (p *Program) Add(decl *Callable) CallableID {
	id := p.Callables.New(decl)
	if _, exists := p.byName[decl.Name]; !exists {
		p.byName[decl.Name] = id
	}
	return id
}

// Lookup resolves a callable by interned name.
func (p *Program) Lookup(name source.StringID) (CallableID, bool) {
	id, ok := p.byName[name]
	return id, ok
}

// Name returns the spelling of a callable's name.
func (p *Program) Name(id CallableID) string {
	c := p.Callables.Get(id)
	if c == nil {
		return ""
	}
	return p.Strings.MustLookup(c.Name)
}

// EntryPoint returns the first globally visible callable carrying the entry
// point attribute, in declaration order.
func (p *Program) EntryPoint() (CallableID, bool) {
	for i := 1; i <= p.Callables.Len(); i++ {
		id, err := safecast.Conv[CallableID](i)
		if err != nil {
			panic(fmt.Errorf("callable index overflow: %w", err))
		}
		c := p.Callables.Get(id)
		if !c.GloballyVisible() {
			continue
		}
		if c.HasAttr(AttrEntryPoint) {
			return id, true
		}
	}
	return NoCallableID, false
}

// EntryPoints returns every globally visible entry point candidate in
// declaration order. More than one is legal; the first wins.
func (p *Program) EntryPoints() []CallableID {
	var out []CallableID
	for i := 1; i <= p.Callables.Len(); i++ {
		id, err := safecast.Conv[CallableID](i)
		if err != nil {
			panic(fmt.Errorf("callable index overflow: %w", err))
		}
		c := p.Callables.Get(id)
		if c.GloballyVisible() && c.HasAttr(AttrEntryPoint) {
			out = append(out, id)
		}
	}
	return out
}
