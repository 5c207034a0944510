package qir

import (
	"path/filepath"
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"

	"qirgen/internal/program"
	"qirgen/internal/source"
)

// DwarfVersion is the DWARF standard version recorded in module flags.
func DwarfVersion() int64 { return 4 }

// DebugMetadataVersion is LLVM's DEBUG_METADATA_VERSION.
func DebugMetadataVersion() int64 { return 3 }

// CodeViewVersion is the value of the CodeView module flag.
func CodeViewVersion() int64 { return 1 }

// CodeViewName is the name of the CodeView module flag.
func CodeViewName() string { return "CodeView" }

// debugSourcePath swaps the final extension of path for ".c". Debuggers pick
// their language mode from the extension, and the closest match for the
// generated IR is C.
func debugSourcePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".c"
}

// LocationStack tracks the source context during lowering. It starts empty;
// collaborators push a span before emitting an op's instructions and pop it
// after. Pop on an empty stack is a collaborator bug and panics.
type LocationStack struct {
	frames []source.Span
}

// Push enters a source context.
func (s *LocationStack) Push(sp source.Span) {
	s.frames = append(s.frames, sp)
}

// Pop leaves the innermost context and returns it.
func (s *LocationStack) Pop() source.Span {
	if len(s.frames) == 0 {
		panic("qir: Pop on empty location stack")
	}
	sp := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return sp
}

// Current returns the innermost context, if any.
func (s *LocationStack) Current() (source.Span, bool) {
	if len(s.frames) == 0 {
		return source.Span{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Depth reports how many contexts are on the stack.
func (s *LocationStack) Depth() int { return len(s.frames) }

// DebugInfo builds and owns the module's debug metadata: the compile unit,
// per-file DIFile nodes, subprograms, and the location stack collaborators
// use while lowering.
type DebugInfo struct {
	gen     *Generator
	enabled bool

	cu    *metadata.DICompileUnit
	files map[source.FileID]*metadata.DIFile
	locs  LocationStack

	// emptyTypes backs every subprogram's signature; type info beyond "a
	// function" is not modeled.
	emptyTypes *metadata.Tuple
}

func newDebugInfo(g *Generator, enabled bool) *DebugInfo {
	return &DebugInfo{
		gen:     g,
		enabled: enabled,
		files:   make(map[source.FileID]*metadata.DIFile),
	}
}

// Enabled reports whether debug metadata is being produced.
func (d *DebugInfo) Enabled() bool { return d.enabled }

// CompileUnit returns the module's compile unit; nil until CreateModule runs
// with debug symbols on.
func (d *DebugInfo) CompileUnit() *metadata.DICompileUnit { return d.cu }

// Locations returns the location context stack.
func (d *DebugInfo) Locations() *LocationStack { return &d.locs }

// addMetadataDef registers a metadata node in the module, handing out
// sequential IDs. Every node referenced anywhere in the module must pass
// through here exactly once.
func (g *Generator) addMetadataDef(def metadata.Definition) {
	def.SetID(int64(len(g.mod.MetadataDefs)))
	g.mod.MetadataDefs = append(g.mod.MetadataDefs, def)
}

// namedMetadata returns the named metadata definition, creating it on first
// use.
func (g *Generator) namedMetadata(name string) *metadata.NamedDef {
	if g.mod.NamedMetadataDefs == nil {
		g.mod.NamedMetadataDefs = make(map[string]*metadata.NamedDef)
	}
	def, ok := g.mod.NamedMetadataDefs[name]
	if !ok {
		def = &metadata.NamedDef{Name: name}
		g.mod.NamedMetadataDefs[name] = def
	}
	return def
}

// diFile returns the DIFile for a source file, creating and registering it
// on first use. The path is rewritten with the ".c" extension swap.
func (d *DebugInfo) diFile(id source.FileID) *metadata.DIFile {
	if f, ok := d.files[id]; ok {
		return f
	}
	path := debugSourcePath(d.gen.files.Get(id).Path)
	f := &metadata.DIFile{
		Filename:  filepath.Base(path),
		Directory: filepath.Dir(path),
	}
	d.gen.addMetadataDef(f)
	d.files[id] = f
	return f
}

// attachCompileUnit builds the compile unit over the entry point's rewritten
// source path and registers it under !llvm.dbg.cu.
func (d *DebugInfo) attachCompileUnit(producer string) {
	entry := d.gen.prog.Callables.Get(d.gen.entry)
	file := d.diFile(entry.File)

	d.cu = &metadata.DICompileUnit{
		Distinct:       true,
		Language:       enum.DwarfLangC99,
		File:           file,
		Producer:       producer,
		IsOptimized:    false,
		Flags:          "",
		RuntimeVersion: 0,
		EmissionKind:   enum.EmissionKindFullDebug,
	}
	d.gen.addMetadataDef(d.cu)

	named := d.gen.namedMetadata("llvm.dbg.cu")
	named.Nodes = append(named.Nodes, d.cu)
}

// attachIdent records the producer under !llvm.ident.
func (g *Generator) attachIdent(producer string) {
	tuple := &metadata.Tuple{
		Fields: []metadata.Field{&metadata.String{Value: producer}},
	}
	g.addMetadataDef(tuple)

	named := g.namedMetadata("llvm.ident")
	named.Nodes = append(named.Nodes, tuple)
}

// attachModuleFlags emits !llvm.module.flags in moduleFlags order.
func (g *Generator) attachModuleFlags() {
	named := g.namedMetadata("llvm.module.flags")
	for _, flag := range g.moduleFlags() {
		tuple := &metadata.Tuple{
			Fields: []metadata.Field{
				constant.NewInt(types.I32, int64(flag.Behavior)),
				&metadata.String{Value: flag.Name},
				constant.NewInt(types.I32, flag.Value),
			},
		}
		g.addMetadataDef(tuple)
		named.Nodes = append(named.Nodes, tuple)
	}
}

// subprogram builds the distinct DISubprogram for a callable and registers
// it. The scope line and line coincide: bodies are flat op sequences.
func (d *DebugInfo) subprogram(c *program.Callable, name string) *metadata.DISubprogram {
	if d.emptyTypes == nil {
		d.emptyTypes = &metadata.Tuple{}
		d.gen.addMetadataDef(d.emptyTypes)
	}
	sig := &metadata.DISubroutineType{Types: d.emptyTypes}
	d.gen.addMetadataDef(sig)

	file := d.diFile(c.File)
	start, _ := d.gen.files.Resolve(c.Span)
	sp := &metadata.DISubprogram{
		Distinct:  true,
		Name:      name,
		Scope:     file,
		File:      file,
		Line:      int64(start.Line),
		ScopeLine: int64(start.Line),
		Type:      sig,
		SPFlags:   enum.DISPFlagDefinition,
		Unit:      d.cu,
	}
	d.gen.addMetadataDef(sp)
	return sp
}

// location materializes a DILocation for the current top of the location
// stack inside scope. Returns nil when the stack is empty.
func (d *DebugInfo) location(scope *metadata.DISubprogram) *metadata.DILocation {
	sp, ok := d.locs.Current()
	if !ok {
		return nil
	}
	start, _ := d.gen.files.Resolve(sp)
	loc := &metadata.DILocation{
		Line:   int64(start.Line),
		Column: int64(start.Col),
		Scope:  scope,
	}
	d.gen.addMetadataDef(loc)
	return loc
}
