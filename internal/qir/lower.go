package qir

import (
	"errors"
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"fortio.org/safecast"

	"qirgen/internal/diag"
	"qirgen/internal/program"
)

// LowerCallables emits one LLVM function per callable into the created
// module. The program must have passed Validate; op shapes are trusted.
// Problems local to a callable (types with no value representation, gate
// arity drift) become diagnostics and the callable is skipped; the module
// stays usable for everything that lowered cleanly.
func (g *Generator) LowerCallables(reporter diag.Reporter) error {
	if g.mod == nil {
		return errors.New("qir: module not created")
	}

	entry, _ := g.prog.EntryPoint()

	for i := 1; i <= g.prog.Callables.Len(); i++ {
		id := callableIndex(i)
		g.declareCallable(id, id == entry, reporter)
	}

	for i := 1; i <= g.prog.Callables.Len(); i++ {
		id := callableIndex(i)
		c := g.prog.Callables.Get(id)
		f, ok := g.funcs[id]
		if !ok || c.Flags.Has(program.CallableExternal) {
			continue
		}
		fl := &funcLowerer{
			gen:      g,
			decl:     c,
			name:     g.prog.Strings.MustLookup(c.Name),
			f:        f,
			slots:    make(map[program.SlotID]value.Value, len(c.Params)+len(c.Body)),
			reporter: reporter,
		}
		fl.lower()
	}
	return nil
}

func callableIndex(i int) program.CallableID {
	id, err := safecast.Conv[program.CallableID](i)
	if err != nil {
		panic(fmt.Errorf("callable index overflow: %w", err))
	}
	return id
}

// declareCallable creates the function symbol for a callable. The entry
// point carries the "entry_point" string attribute, debug on or off.
func (g *Generator) declareCallable(id program.CallableID, isEntry bool, reporter diag.Reporter) {
	c := g.prog.Callables.Get(id)
	name := g.prog.Strings.MustLookup(c.Name)

	params := make([]*ir.Param, 0, len(c.Params))
	for _, p := range c.Params {
		typ, ok := g.valueType(p.Type)
		if !ok {
			diag.ReportError(reporter, diag.GenUnsupportedOp, c.Span,
				fmt.Sprintf("callable '%s': %s parameter '%s' has no value representation",
					name, p.Type, g.prog.Strings.MustLookup(p.Name))).Emit()
			return
		}
		params = append(params, ir.NewParam(g.prog.Strings.MustLookup(p.Name), typ))
	}

	var ret types.Type = types.Void
	if c.Result != program.TypeUnit {
		typ, ok := g.valueType(c.Result)
		if !ok {
			diag.ReportError(reporter, diag.GenUnsupportedOp, c.Span,
				fmt.Sprintf("callable '%s': unsupported result type %s", name, c.Result)).Emit()
			return
		}
		ret = typ
	}

	f := g.mod.NewFunc(name, ret, params...)
	if isEntry {
		f.FuncAttrs = append(f.FuncAttrs, ir.AttrString("entry_point"))
	}
	g.funcs[id] = f
}

// valueType maps a snapshot type to its LLVM value type. Unit has no value
// representation and reports false.
func (g *Generator) valueType(kind program.TypeKind) (types.Type, bool) {
	switch kind {
	case program.TypeQubit:
		return g.runtime.qubitType(), true
	case program.TypeResult:
		return g.runtime.resultType(), true
	case program.TypeBool:
		return types.I1, true
	case program.TypeInt:
		return types.I64, true
	case program.TypeDouble:
		return types.Double, true
	default:
		return nil, false
	}
}

// funcLowerer carries the per-callable state while filling its entry block.
type funcLowerer struct {
	gen      *Generator
	decl     *program.Callable
	name     string
	f        *ir.Func
	block    *ir.Block
	slots    map[program.SlotID]value.Value
	scope    *metadata.DISubprogram
	reporter diag.Reporter
}

// lower fills the entry block. Around every op it enters the op's source
// context on the location stack, emits the instruction with a location from
// the stack top, and leaves the context again.
func (fl *funcLowerer) lower() {
	g := fl.gen
	if g.debug.Enabled() {
		fl.scope = g.debug.subprogram(fl.decl, fl.name)
		fl.f.Metadata = append(fl.f.Metadata, &metadata.Attachment{Name: "dbg", Node: fl.scope})
	}

	fl.block = fl.f.NewBlock("entry")
	for i, p := range fl.f.Params {
		fl.slots[program.SlotID(i+1)] = p
	}

	locs := g.debug.Locations()
	terminated := false
	for i := range fl.decl.Body {
		op := &fl.decl.Body[i]
		locs.Push(op.Span)
		done := fl.lowerOp(op)
		locs.Pop()
		if done {
			terminated = true
			break
		}
	}

	if !terminated {
		if fl.decl.Result == program.TypeUnit {
			fl.block.NewRet(nil)
		} else {
			// Validation flags bodies that fall off a non-unit callable;
			// keep the IR well formed regardless.
			fl.block.NewUnreachable()
		}
	}
}

// lowerOp emits one op. Returns true when the op terminated the block.
func (fl *funcLowerer) lowerOp(op *program.Op) bool {
	g := fl.gen
	switch op.Kind {
	case program.OpAlloc:
		inst := fl.block.NewCall(g.runtime.qubitAllocate())
		fl.attachDbg(&inst.Metadata)
		fl.slots[op.Dst] = inst

	case program.OpRelease:
		v, ok := fl.arg(op, op.Args[0])
		if !ok {
			return false
		}
		inst := fl.block.NewCall(g.runtime.qubitRelease(), v)
		fl.attachDbg(&inst.Metadata)

	case program.OpGate:
		gate := g.prog.Strings.MustLookup(op.Gate)
		callee, err := g.runtime.gate(gate, len(op.Args))
		if err != nil {
			diag.ReportError(fl.reporter, diag.GenUnsupportedOp, op.Span,
				fmt.Sprintf("callable '%s': %v", fl.name, err)).Emit()
			return false
		}
		args, ok := fl.args(op)
		if !ok {
			return false
		}
		inst := fl.block.NewCall(callee, args...)
		fl.attachDbg(&inst.Metadata)

	case program.OpMeasure:
		v, ok := fl.arg(op, op.Args[0])
		if !ok {
			return false
		}
		inst := fl.block.NewCall(g.runtime.measure(), v)
		fl.attachDbg(&inst.Metadata)
		fl.slots[op.Dst] = inst

	case program.OpCall:
		calleeID, _ := g.prog.Lookup(op.Callee)
		callee, ok := g.funcs[calleeID]
		if !ok {
			diag.ReportError(fl.reporter, diag.GenUnsupportedOp, op.Span,
				fmt.Sprintf("callable '%s': callee '%s' was not lowered", fl.name,
					g.prog.Strings.MustLookup(op.Callee))).Emit()
			return false
		}
		args, ok := fl.args(op)
		if !ok {
			return false
		}
		inst := fl.block.NewCall(callee, args...)
		fl.attachDbg(&inst.Metadata)
		if op.Dst.IsValid() {
			fl.slots[op.Dst] = inst
		}

	case program.OpRet:
		var term *ir.TermRet
		if fl.decl.Result == program.TypeUnit {
			term = fl.block.NewRet(nil)
		} else {
			v, ok := fl.arg(op, op.Args[0])
			if !ok {
				return false
			}
			term = fl.block.NewRet(v)
		}
		fl.attachDbg(&term.Metadata)
		return true
	}
	return false
}

// arg resolves one slot operand to its lowered value.
func (fl *funcLowerer) arg(op *program.Op, slot program.SlotID) (value.Value, bool) {
	v, ok := fl.slots[slot]
	if !ok {
		diag.ReportError(fl.reporter, diag.GenUnsupportedOp, op.Span,
			fmt.Sprintf("callable '%s': slot %%%d has no lowered value", fl.name, slot)).Emit()
	}
	return v, ok
}

// args resolves the whole operand list, failing as a unit.
func (fl *funcLowerer) args(op *program.Op) ([]value.Value, bool) {
	out := make([]value.Value, 0, len(op.Args))
	for _, id := range op.Args {
		v, ok := fl.arg(op, id)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// attachDbg appends a !dbg attachment for the current location context.
// No-op with debug symbols off or outside any context.
func (fl *funcLowerer) attachDbg(attachments *ir.Metadata) {
	if fl.scope == nil {
		return
	}
	loc := fl.gen.debug.location(fl.scope)
	if loc == nil {
		return
	}
	*attachments = append(*attachments, &metadata.Attachment{Name: "dbg", Node: loc})
}
