// Package qir turns a validated program registry into an LLVM module in QIR
// shape: opaque %Qubit/%Result types, quantum runtime calls, and optional
// DWARF-style debug metadata keyed off the entry point's source file.
package qir

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/llir/llvm/ir"

	"qirgen/internal/program"
	"qirgen/internal/source"
	"qirgen/internal/version"
)

// ErrMissingEntryPoint is returned by CreateModule when debug symbols are
// requested and no globally visible callable carries the entry point
// attribute.
var ErrMissingEntryPoint = errors.New("no entry point callable found")

// Config fixes the generator's behavior at construction time. There is no
// ambient toggle: whoever builds the generator decides about debug symbols
// and target identity here.
type Config struct {
	// DebugSymbols controls whether the module carries a compile unit,
	// module flags, ident metadata, and per-instruction locations.
	DebugSymbols bool

	// TargetTriple and DataLayout are copied onto the module verbatim when
	// non-empty.
	TargetTriple string
	DataLayout   string

	// TargetFlags are consulted in order after the fixed debug flags;
	// RegisterTargetFlags appends to this list.
	TargetFlags []FlagProducer
}

// ModuleFlag is one entry of !llvm.module.flags.
type ModuleFlag struct {
	Behavior FlagBehavior
	Name     string
	Value    int64
}

// FlagBehavior is the conflict behavior of a module flag, matching LLVM's
// ModFlagBehavior encoding.
type FlagBehavior int64

const (
	FlagError        FlagBehavior = 1
	FlagWarning      FlagBehavior = 2
	FlagRequire      FlagBehavior = 3
	FlagOverride     FlagBehavior = 4
	FlagAppend       FlagBehavior = 5
	FlagAppendUnique FlagBehavior = 6
	FlagMax          FlagBehavior = 7
)

// FlagProducer contributes target-dependent module flags. The triple is the
// one the module is being built for; an empty slice is a valid answer.
type FlagProducer interface {
	ModuleFlags(triple string) []ModuleFlag
}

// FlagProducerFunc adapts a function to the FlagProducer interface.
type FlagProducerFunc func(triple string) []ModuleFlag

func (f FlagProducerFunc) ModuleFlags(triple string) []ModuleFlag {
	return f(triple)
}

// Generator lowers one program registry into one LLVM module. It is
// single-shot: CreateModule may run once, LowerCallables once after it.
type Generator struct {
	cfg   Config
	prog  *program.Program
	files *source.FileSet

	mod     *ir.Module
	debug   *DebugInfo
	created bool

	entry program.CallableID

	funcs   map[program.CallableID]*ir.Func
	runtime *runtimeDecls
}

// NewGenerator builds a generator over a decoded program. The registry and
// file set must outlive the generator.
func NewGenerator(prog *program.Program, files *source.FileSet, cfg Config) *Generator {
	g := &Generator{
		cfg:   cfg,
		prog:  prog,
		files: files,
		entry: program.NoCallableID,
		funcs: make(map[program.CallableID]*ir.Func),
	}
	g.debug = newDebugInfo(g, cfg.DebugSymbols)
	g.runtime = newRuntimeDecls(g)
	return g
}

// Debug returns the debug-info builder. Never nil; check Enabled.
func (g *Generator) Debug() *DebugInfo { return g.debug }

// Module returns the module built by CreateModule, nil before it runs.
func (g *Generator) Module() *ir.Module { return g.mod }

// EntryPoint returns the callable selected during CreateModule, or the
// invalid ID when debug symbols are off or the module is not created yet.
func (g *Generator) EntryPoint() program.CallableID { return g.entry }

// RegisterTargetFlags appends a module-flag producer. Must be called before
// CreateModule; later registrations are not picked up.
func (g *Generator) RegisterTargetFlags(p FlagProducer) {
	if p != nil {
		g.cfg.TargetFlags = append(g.cfg.TargetFlags, p)
	}
}

// CreateModule initializes the LLVM module. With debug symbols off the
// module is bare: target identity only. With debug symbols on the module is
// named after the entry point's source file and carries the compile unit,
// ident, and module-flag metadata.
func (g *Generator) CreateModule() (*ir.Module, error) {
	if g.created {
		return nil, errors.New("qir: CreateModule already invoked")
	}
	g.created = true

	g.mod = ir.NewModule()
	g.mod.TargetTriple = g.cfg.TargetTriple
	g.mod.DataLayout = g.cfg.DataLayout

	if !g.cfg.DebugSymbols {
		return g.mod, nil
	}

	entry, ok := g.prog.EntryPoint()
	if !ok {
		g.mod = nil
		return nil, fmt.Errorf("qir: %w", ErrMissingEntryPoint)
	}
	g.entry = entry

	file := g.files.Get(g.prog.Callables.Get(entry).File)
	g.mod.SourceFilename = filepath.Base(file.Path)

	producer := version.Producer()
	g.debug.attachCompileUnit(producer)
	g.attachIdent(producer)
	g.attachModuleFlags()
	return g.mod, nil
}

// moduleFlags returns the flag list in emission order: the three fixed debug
// flags, then whatever the registered producers contribute.
func (g *Generator) moduleFlags() []ModuleFlag {
	flags := []ModuleFlag{
		{Behavior: FlagWarning, Name: "Dwarf Version", Value: DwarfVersion()},
		{Behavior: FlagWarning, Name: "Debug Info Version", Value: DebugMetadataVersion()},
		{Behavior: FlagWarning, Name: CodeViewName(), Value: CodeViewVersion()},
	}
	for _, p := range g.cfg.TargetFlags {
		flags = append(flags, p.ModuleFlags(g.cfg.TargetTriple)...)
	}
	return flags
}

// Render writes the textual IR of the created module.
func (g *Generator) Render(w io.Writer) error {
	if g.mod == nil {
		return errors.New("qir: module not created")
	}
	_, err := io.WriteString(w, g.mod.String())
	return err
}
