package qir

import (
	"errors"
	"strings"
	"testing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"

	"qirgen/internal/program"
	"qirgen/internal/source"
	"qirgen/internal/version"
)

// libContent is laid out so op spans resolve to known lines and columns:
// line starts at offsets 0, 3, 8, 13.
const libContent = "q0\nh q0\nm q0\nret\n"

func addSimple(p *program.Program, name string, file source.FileID, span source.Span, entry bool) program.CallableID {
	decl := &program.Callable{
		Name:   p.Strings.Intern(name),
		Flags:  program.CallablePublic,
		File:   file,
		Span:   span,
		Result: program.TypeUnit,
		Body: []program.Op{
			{Kind: program.OpRet},
		},
	}
	if entry {
		decl.Attrs = []program.Attribute{{
			Kind: program.AttrEntryPoint,
			Raw:  p.Strings.Intern("EntryPoint"),
			Span: span,
		}}
	}
	return p.Add(decl)
}

// twoFileProgram builds the discovery scenario: Main in src/main.src without
// the attribute, LibOp in src/lib.src with it.
func twoFileProgram(t *testing.T) (*program.Program, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	mainFile := fs.Add("src/main.src", []byte("main here\n"))
	libFile := fs.Add("src/lib.src", []byte(libContent))

	p := program.NewProgram("demo")
	addSimple(p, "Main", mainFile, source.Span{File: mainFile, Start: 0, End: 9}, false)

	p.Add(&program.Callable{
		Name:   p.Strings.Intern("LibOp"),
		Flags:  program.CallablePublic,
		File:   libFile,
		Span:   source.Span{File: libFile, Start: 0, End: 16},
		Result: program.TypeResult,
		Attrs: []program.Attribute{{
			Kind: program.AttrEntryPoint,
			Raw:  p.Strings.Intern("EntryPoint"),
			Span: source.Span{File: libFile, Start: 0, End: 2},
		}},
		Body: []program.Op{
			{Kind: program.OpAlloc, Dst: 1, Span: source.Span{File: libFile, Start: 0, End: 2}},
			{Kind: program.OpGate, Gate: p.Strings.Intern("h"), Args: []program.SlotID{1}, Span: source.Span{File: libFile, Start: 5, End: 7}},
			{Kind: program.OpMeasure, Dst: 2, Args: []program.SlotID{1}, Span: source.Span{File: libFile, Start: 8, End: 12}},
			{Kind: program.OpRelease, Args: []program.SlotID{1}, Span: source.Span{File: libFile, Start: 8, End: 12}},
			{Kind: program.OpRet, Args: []program.SlotID{2}, Span: source.Span{File: libFile, Start: 13, End: 16}},
		},
	})
	return p, fs
}

func TestCreateModuleDebugOff(t *testing.T) {
	p, fs := twoFileProgram(t)
	g := NewGenerator(p, fs, Config{DebugSymbols: false, TargetTriple: "x86_64-unknown-linux-gnu"})

	mod, err := g.CreateModule()
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	if mod.TargetTriple != "x86_64-unknown-linux-gnu" {
		t.Errorf("TargetTriple = %q", mod.TargetTriple)
	}
	if mod.SourceFilename != "" {
		t.Errorf("SourceFilename = %q, want empty with debug off", mod.SourceFilename)
	}
	if len(mod.NamedMetadataDefs) != 0 {
		t.Errorf("named metadata present with debug off: %v", mod.NamedMetadataDefs)
	}
	if len(mod.MetadataDefs) != 0 {
		t.Errorf("%d metadata defs with debug off", len(mod.MetadataDefs))
	}
	if g.Debug() == nil || g.Debug().Enabled() {
		t.Error("Debug() must be non-nil and disabled")
	}
	if g.Debug().CompileUnit() != nil {
		t.Error("compile unit present with debug off")
	}
}

func TestCreateModuleDebugOn(t *testing.T) {
	p, fs := twoFileProgram(t)
	g := NewGenerator(p, fs, Config{DebugSymbols: true})

	mod, err := g.CreateModule()
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}

	// Identifier comes from the entry point's file, extension intact.
	if mod.SourceFilename != "lib.src" {
		t.Errorf("SourceFilename = %q, want lib.src", mod.SourceFilename)
	}

	cu := g.Debug().CompileUnit()
	if cu == nil {
		t.Fatal("no compile unit")
	}
	if cu.File == nil || cu.File.Filename != "lib.c" || cu.File.Directory != "src" {
		t.Errorf("compile unit file = %+v, want lib.c in src", cu.File)
	}
	if cu.Language != enum.DwarfLangC99 {
		t.Errorf("language = %v, want DW_LANG_C99", cu.Language)
	}
	if cu.Producer != version.Producer() {
		t.Errorf("producer = %q, want %q", cu.Producer, version.Producer())
	}
	if cu.EmissionKind != enum.EmissionKindFullDebug {
		t.Errorf("emission kind = %v, want FullDebug", cu.EmissionKind)
	}
	if cu.IsOptimized || cu.Flags != "" || cu.RuntimeVersion != 0 {
		t.Errorf("compile unit extras set: optimized=%v flags=%q rt=%d",
			cu.IsOptimized, cu.Flags, cu.RuntimeVersion)
	}

	dbgCU, ok := mod.NamedMetadataDefs["llvm.dbg.cu"]
	if !ok || len(dbgCU.Nodes) != 1 {
		t.Fatalf("llvm.dbg.cu = %+v, want exactly the compile unit", dbgCU)
	}
}

func TestCreateModuleIdent(t *testing.T) {
	p, fs := twoFileProgram(t)
	g := NewGenerator(p, fs, Config{DebugSymbols: true})
	mod, err := g.CreateModule()
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}

	ident, ok := mod.NamedMetadataDefs["llvm.ident"]
	if !ok || len(ident.Nodes) != 1 {
		t.Fatalf("llvm.ident = %+v", ident)
	}
	tuple, ok := ident.Nodes[0].(*metadata.Tuple)
	if !ok || len(tuple.Fields) != 1 {
		t.Fatalf("ident node = %#v", ident.Nodes[0])
	}
	str, ok := tuple.Fields[0].(*metadata.String)
	if !ok || str.Value != version.Producer() {
		t.Fatalf("ident = %#v, want %q", tuple.Fields[0], version.Producer())
	}
}

func flagTuple(t *testing.T, node metadata.Node) (behavior int64, name string, value int64) {
	t.Helper()
	tuple, ok := node.(*metadata.Tuple)
	if !ok || len(tuple.Fields) != 3 {
		t.Fatalf("module flag node = %#v", node)
	}
	b, ok := tuple.Fields[0].(*constant.Int)
	if !ok {
		t.Fatalf("flag behavior = %#v", tuple.Fields[0])
	}
	n, ok := tuple.Fields[1].(*metadata.String)
	if !ok {
		t.Fatalf("flag name = %#v", tuple.Fields[1])
	}
	v, ok := tuple.Fields[2].(*constant.Int)
	if !ok {
		t.Fatalf("flag value = %#v", tuple.Fields[2])
	}
	return b.X.Int64(), n.Value, v.X.Int64()
}

func TestCreateModuleFlagOrder(t *testing.T) {
	p, fs := twoFileProgram(t)
	g := NewGenerator(p, fs, Config{DebugSymbols: true})
	mod, err := g.CreateModule()
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}

	flags, ok := mod.NamedMetadataDefs["llvm.module.flags"]
	if !ok {
		t.Fatal("no llvm.module.flags")
	}
	want := []struct {
		name  string
		value int64
	}{
		{"Dwarf Version", 4},
		{"Debug Info Version", 3},
		{"CodeView", 1},
	}
	if len(flags.Nodes) != len(want) {
		t.Fatalf("%d module flags, want %d", len(flags.Nodes), len(want))
	}
	for i, w := range want {
		behavior, name, value := flagTuple(t, flags.Nodes[i])
		if behavior != int64(FlagWarning) {
			t.Errorf("flag %d behavior = %d, want warning (%d)", i, behavior, FlagWarning)
		}
		if name != w.name || value != w.value {
			t.Errorf("flag %d = %q=%d, want %q=%d", i, name, value, w.name, w.value)
		}
	}
}

func TestFlagBehaviorValues(t *testing.T) {
	// Behaviors mirror LLVM's module flag behavior encoding.
	tests := []struct {
		name     string
		behavior FlagBehavior
		want     int64
	}{
		{"error", FlagError, 1},
		{"warning", FlagWarning, 2},
		{"require", FlagRequire, 3},
		{"override", FlagOverride, 4},
		{"append", FlagAppend, 5},
		{"append unique", FlagAppendUnique, 6},
		{"max", FlagMax, 7},
	}
	for _, tt := range tests {
		if int64(tt.behavior) != tt.want {
			t.Errorf("%s behavior = %d, want %d", tt.name, int64(tt.behavior), tt.want)
		}
	}
}

func TestRegisterTargetFlags(t *testing.T) {
	p, fs := twoFileProgram(t)
	g := NewGenerator(p, fs, Config{DebugSymbols: true, TargetTriple: "wasm32-unknown-unknown"})

	var seenTriple string
	g.RegisterTargetFlags(FlagProducerFunc(func(triple string) []ModuleFlag {
		seenTriple = triple
		return []ModuleFlag{{Behavior: FlagMax, Name: "wasm-feature", Value: 7}}
	}))
	g.RegisterTargetFlags(FlagProducerFunc(func(string) []ModuleFlag {
		return nil
	}))

	mod, err := g.CreateModule()
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	if seenTriple != "wasm32-unknown-unknown" {
		t.Errorf("producer saw triple %q", seenTriple)
	}
	flags := mod.NamedMetadataDefs["llvm.module.flags"]
	if len(flags.Nodes) != 4 {
		t.Fatalf("%d module flags, want 3 fixed + 1 produced", len(flags.Nodes))
	}
	behavior, name, value := flagTuple(t, flags.Nodes[3])
	if behavior != int64(FlagMax) || name != "wasm-feature" || value != 7 {
		t.Errorf("produced flag = %d %q=%d", behavior, name, value)
	}
}

func TestCreateModuleMissingEntryPoint(t *testing.T) {
	fs := source.NewFileSet()
	p := program.NewProgram("empty")
	g := NewGenerator(p, fs, Config{DebugSymbols: true})

	mod, err := g.CreateModule()
	if !errors.Is(err, ErrMissingEntryPoint) {
		t.Fatalf("err = %v, want ErrMissingEntryPoint", err)
	}
	if mod != nil || g.Module() != nil {
		t.Error("module produced despite missing entry point")
	}
}

func TestCreateModuleMissingEntryPointDebugOff(t *testing.T) {
	fs := source.NewFileSet()
	p := program.NewProgram("empty")
	g := NewGenerator(p, fs, Config{DebugSymbols: false})

	if _, err := g.CreateModule(); err != nil {
		t.Fatalf("debug off must not require an entry point: %v", err)
	}
}

func TestCreateModuleSingleInvocation(t *testing.T) {
	p, fs := twoFileProgram(t)
	g := NewGenerator(p, fs, Config{DebugSymbols: true})

	if _, err := g.CreateModule(); err != nil {
		t.Fatalf("first CreateModule: %v", err)
	}
	if _, err := g.CreateModule(); err == nil {
		t.Fatal("second CreateModule succeeded")
	}
}

func TestEntryPointFirstDeclarationWins(t *testing.T) {
	fs := source.NewFileSet()
	first := fs.Add("src/first.src", []byte("one\n"))
	second := fs.Add("src/second.src", []byte("two\n"))

	p := program.NewProgram("demo")
	addSimple(p, "First", first, source.Span{File: first, Start: 0, End: 3}, true)
	addSimple(p, "Second", second, source.Span{File: second, Start: 0, End: 3}, true)

	g := NewGenerator(p, fs, Config{DebugSymbols: true})
	mod, err := g.CreateModule()
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	if mod.SourceFilename != "first.src" {
		t.Errorf("SourceFilename = %q, want first.src", mod.SourceFilename)
	}
	if cu := g.Debug().CompileUnit(); cu.File.Filename != "first.c" {
		t.Errorf("debug file = %q, want first.c", cu.File.Filename)
	}
}

func TestMetadataIDsAreSequential(t *testing.T) {
	p, fs := twoFileProgram(t)
	g := NewGenerator(p, fs, Config{DebugSymbols: true})
	mod, err := g.CreateModule()
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	if err := g.LowerCallables(nil); err != nil {
		t.Fatalf("LowerCallables: %v", err)
	}
	for i, def := range mod.MetadataDefs {
		if def.ID() != int64(i) {
			t.Fatalf("metadata def %d has ID %d", i, def.ID())
		}
	}
}

func TestRenderModule(t *testing.T) {
	p, fs := twoFileProgram(t)
	g := NewGenerator(p, fs, Config{DebugSymbols: true})

	var before strings.Builder
	if err := g.Render(&before); err == nil {
		t.Fatal("Render before CreateModule succeeded")
	}

	if _, err := g.CreateModule(); err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	if err := g.LowerCallables(nil); err != nil {
		t.Fatalf("LowerCallables: %v", err)
	}

	var out strings.Builder
	if err := g.Render(&out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		`source_filename = "lib.src"`,
		"%Qubit = type opaque",
		"%Result = type opaque",
		"@__quantum__rt__qubit_allocate",
		"@__quantum__qis__h__body",
		"@__quantum__qis__m__body",
		`"entry_point"`,
		"!llvm.dbg.cu",
		"!llvm.module.flags",
		"!DICompileUnit(",
		"DW_LANG_C99",
		`!"Dwarf Version"`,
		version.Producer(),
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered IR missing %q\n%s", want, text)
		}
	}
}
