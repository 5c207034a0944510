package program

import (
	"fmt"

	"fortio.org/safecast"

	"qirgen/internal/diag"
	"qirgen/internal/source"
)

// Validate checks the whole program against the rules the backend relies
// on: unique names, resolved attributes, and well-typed single-assignment
// bodies. Errors mean codegen must not run; warnings are advisory.
func Validate(prog *Program, reporter diag.Reporter) {
	v := &validator{prog: prog, reporter: reporter}
	for i := 1; i <= prog.Callables.Len(); i++ {
		id, err := safecast.Conv[CallableID](i)
		if err != nil {
			panic(fmt.Errorf("callable index overflow: %w", err))
		}
		v.checkCallable(id)
	}
	v.checkEntryPoints()
}

type validator struct {
	prog     *Program
	reporter diag.Reporter
}

func (v *validator) errorf(code diag.Code, sp source.Span, format string, args ...any) *diag.ReportBuilder {
	return diag.ReportError(v.reporter, code, sp, fmt.Sprintf(format, args...))
}

func (v *validator) warnf(code diag.Code, sp source.Span, format string, args ...any) *diag.ReportBuilder {
	return diag.ReportWarning(v.reporter, code, sp, fmt.Sprintf(format, args...))
}

func (v *validator) checkCallable(id CallableID) {
	c := v.prog.Callables.Get(id)
	name := v.prog.Strings.MustLookup(c.Name)

	if first, ok := v.prog.Lookup(c.Name); ok && first != id {
		v.errorf(diag.ProgDuplicateCallable, c.Span,
			"callable '%s' is declared more than once", name).
			WithNote(v.prog.Callables.Get(first).Span, "first declared here").
			Emit()
	}

	v.checkAttrs(c, name)

	if c.Flags.Has(CallableExternal) {
		if len(c.Body) > 0 {
			v.errorf(diag.ProgExternalBody, c.Span,
				"external callable '%s' declares a body", name).Emit()
		}
		return
	}
	v.checkBody(c, name)
}

func (v *validator) checkAttrs(c *Callable, name string) {
	for i := range c.Attrs {
		attr := &c.Attrs[i]
		raw := v.prog.Strings.MustLookup(attr.Raw)
		if attr.Kind == AttrUnknown {
			v.warnf(diag.ProgUnknownAttr, attr.Span,
				"unknown attribute '%s' on callable '%s'", raw, name).Emit()
			continue
		}
		if spec, ok := LookupAttr(raw); ok && !spec.TakesArgs && len(attr.Args) > 0 {
			v.warnf(diag.ProgAttrArgsIgnored, attr.Span,
				"attribute '%s' takes no arguments; %d ignored", raw, len(attr.Args)).Emit()
		}
		if attr.Kind == AttrEntryPoint && !c.GloballyVisible() {
			v.warnf(diag.ProgEntryNotVisible, attr.Span,
				"entry point attribute on '%s' is ignored: callable is not globally visible", name).Emit()
		}
	}
}

// checkBody walks the op sequence tracking slot definitions. Slots are
// single-assignment: params occupy 1..len(params), every defining op must
// pick a fresh slot.
func (v *validator) checkBody(c *Callable, name string) {
	slots := make(map[SlotID]TypeKind, len(c.Params)+len(c.Body))
	for i, p := range c.Params {
		slots[SlotID(i+1)] = p.Type
	}

	sawRet := false
	for i := range c.Body {
		op := &c.Body[i]
		if sawRet {
			v.errorf(diag.ProgMalformedOp, op.Span,
				"unreachable op after ret in '%s'", name).Emit()
			break
		}
		switch op.Kind {
		case OpAlloc:
			v.checkNoArgs(op, name)
			v.define(slots, op, TypeQubit, name)
		case OpRelease:
			v.checkNoDst(op, name)
			if v.checkArgCount(op, 1, name) {
				v.useSlot(slots, op, op.Args[0], TypeQubit, name)
			}
		case OpGate:
			v.checkNoDst(op, name)
			if op.Gate == source.NoStringID {
				v.errorf(diag.ProgMalformedOp, op.Span,
					"gate op in '%s' has no gate name", name).Emit()
			}
			if len(op.Args) == 0 {
				v.errorf(diag.ProgMalformedOp, op.Span,
					"gate op in '%s' has no qubit operands", name).Emit()
			}
			for _, arg := range op.Args {
				v.useSlot(slots, op, arg, TypeQubit, name)
			}
		case OpMeasure:
			if v.checkArgCount(op, 1, name) {
				v.useSlot(slots, op, op.Args[0], TypeQubit, name)
			}
			v.define(slots, op, TypeResult, name)
		case OpCall:
			v.checkCall(slots, op, name)
		case OpRet:
			v.checkRet(slots, c, op, name)
			sawRet = true
		}
	}

	if c.Result != TypeUnit && !sawRet {
		v.errorf(diag.ProgRetTypeMismatch, c.Span,
			"callable '%s' returns %s but its body has no ret", name, c.Result).Emit()
	}
}

func (v *validator) checkCall(slots map[SlotID]TypeKind, op *Op, name string) {
	if op.Callee == source.NoStringID {
		v.errorf(diag.ProgMalformedOp, op.Span,
			"call op in '%s' has no callee", name).Emit()
		return
	}
	callee := v.prog.Strings.MustLookup(op.Callee)
	calleeID, ok := v.prog.Lookup(op.Callee)
	if !ok {
		v.errorf(diag.ProgUnknownCallee, op.Span,
			"'%s' calls unknown callable '%s'", name, callee).Emit()
		return
	}
	target := v.prog.Callables.Get(calleeID)

	if len(op.Args) != len(target.Params) {
		v.errorf(diag.ProgArityMismatch, op.Span,
			"call to '%s' passes %d arguments, expected %d",
			callee, len(op.Args), len(target.Params)).
			WithNote(target.Span, "declared here").
			Emit()
	}
	for i, arg := range op.Args {
		if i >= len(target.Params) {
			break
		}
		v.useSlot(slots, op, arg, target.Params[i].Type, name)
	}

	if target.Result == TypeUnit {
		if op.Dst.IsValid() {
			v.errorf(diag.ProgMalformedOp, op.Span,
				"call to unit callable '%s' cannot bind a result", callee).Emit()
		}
		return
	}
	// Discarding a non-unit result is allowed; binding it defines a slot.
	if op.Dst.IsValid() {
		v.define(slots, op, target.Result, name)
	}
}

func (v *validator) checkRet(slots map[SlotID]TypeKind, c *Callable, op *Op, name string) {
	v.checkNoDst(op, name)
	if c.Result == TypeUnit {
		if len(op.Args) > 0 {
			v.errorf(diag.ProgRetTypeMismatch, op.Span,
				"'%s' returns unit but ret carries a value", name).Emit()
		}
		return
	}
	if len(op.Args) != 1 {
		v.errorf(diag.ProgRetTypeMismatch, op.Span,
			"'%s' returns %s but ret carries %d values", name, c.Result, len(op.Args)).Emit()
		return
	}
	v.useSlot(slots, op, op.Args[0], c.Result, name)
}

// define records op.Dst with the produced type, flagging missing and
// redefined slots.
func (v *validator) define(slots map[SlotID]TypeKind, op *Op, produced TypeKind, name string) {
	if !op.Dst.IsValid() {
		v.errorf(diag.ProgMalformedOp, op.Span,
			"%s op in '%s' needs a destination slot", op.Kind, name).Emit()
		return
	}
	if _, defined := slots[op.Dst]; defined {
		v.errorf(diag.ProgSlotRedefined, op.Span,
			"slot %%%d in '%s' is assigned more than once", op.Dst, name).Emit()
		return
	}
	slots[op.Dst] = produced
}

// useSlot checks a slot read against the type the op expects.
func (v *validator) useSlot(slots map[SlotID]TypeKind, op *Op, slot SlotID, want TypeKind, name string) {
	if !slot.IsValid() {
		v.errorf(diag.ProgMalformedOp, op.Span,
			"%s op in '%s' references the zero slot", op.Kind, name).Emit()
		return
	}
	got, defined := slots[slot]
	if !defined {
		v.errorf(diag.ProgSlotUndefined, op.Span,
			"%s op in '%s' reads slot %%%d before it is defined", op.Kind, name, slot).Emit()
		return
	}
	if got != want {
		v.errorf(diag.ProgSlotTypeMismatch, op.Span,
			"%s op in '%s' needs %s in slot %%%d, found %s", op.Kind, name, want, slot, got).Emit()
	}
}

func (v *validator) checkArgCount(op *Op, want int, name string) bool {
	if len(op.Args) != want {
		v.errorf(diag.ProgMalformedOp, op.Span,
			"%s op in '%s' takes %d operand(s), found %d", op.Kind, name, want, len(op.Args)).Emit()
		return false
	}
	return true
}

func (v *validator) checkNoArgs(op *Op, name string) {
	if len(op.Args) > 0 {
		v.errorf(diag.ProgMalformedOp, op.Span,
			"%s op in '%s' takes no operands, found %d", op.Kind, name, len(op.Args)).Emit()
	}
}

func (v *validator) checkNoDst(op *Op, name string) {
	if op.Dst.IsValid() {
		v.errorf(diag.ProgMalformedOp, op.Span,
			"%s op in '%s' does not produce a value", op.Kind, name).Emit()
	}
}

// checkEntryPoints warns when several callables compete for entry point;
// declaration order decides the winner.
func (v *validator) checkEntryPoints() {
	entries := v.prog.EntryPoints()
	if len(entries) < 2 {
		return
	}
	winner := v.prog.Callables.Get(entries[0])
	b := v.warnf(diag.ProgMultipleEntry, winner.Span,
		"%d callables carry the entry point attribute; '%s' wins by declaration order",
		len(entries), v.prog.Strings.MustLookup(winner.Name))
	for _, id := range entries[1:] {
		c := v.prog.Callables.Get(id)
		b.WithNote(c.Span, fmt.Sprintf("'%s' also marked here", v.prog.Strings.MustLookup(c.Name)))
	}
	b.Emit()
}
