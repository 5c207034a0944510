package qir

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// Runtime symbol names follow the QIR convention: runtime lifecycle calls
// under __quantum__rt__, intrinsic gate bodies under __quantum__qis__.
const (
	rtQubitAllocate = "__quantum__rt__qubit_allocate"
	rtQubitRelease  = "__quantum__rt__qubit_release"
	qisMeasureBody  = "__quantum__qis__m__body"
)

func qisGateBody(gate string) string {
	return fmt.Sprintf("__quantum__qis__%s__body", gate)
}

// runtimeDecls creates quantum runtime declarations and the opaque value
// types on first use, so modules without quantum ops stay free of them.
type runtimeDecls struct {
	gen *Generator

	qubitPtr  types.Type
	resultPtr types.Type

	decls map[string]*ir.Func
}

func newRuntimeDecls(g *Generator) *runtimeDecls {
	return &runtimeDecls{gen: g, decls: make(map[string]*ir.Func)}
}

// qubitType returns %Qubit*, defining the opaque %Qubit on first use.
func (r *runtimeDecls) qubitType() types.Type {
	if r.qubitPtr == nil {
		def := r.gen.mod.NewTypeDef("Qubit", &types.StructType{Opaque: true})
		r.qubitPtr = types.NewPointer(def)
	}
	return r.qubitPtr
}

// resultType returns %Result*, defining the opaque %Result on first use.
func (r *runtimeDecls) resultType() types.Type {
	if r.resultPtr == nil {
		def := r.gen.mod.NewTypeDef("Result", &types.StructType{Opaque: true})
		r.resultPtr = types.NewPointer(def)
	}
	return r.resultPtr
}

// declare returns the cached runtime declaration, creating it on first use.
func (r *runtimeDecls) declare(name string, ret types.Type, params ...*ir.Param) *ir.Func {
	if f, ok := r.decls[name]; ok {
		return f
	}
	f := r.gen.mod.NewFunc(name, ret, params...)
	r.decls[name] = f
	return f
}

func (r *runtimeDecls) qubitAllocate() *ir.Func {
	return r.declare(rtQubitAllocate, r.qubitType())
}

func (r *runtimeDecls) qubitRelease() *ir.Func {
	return r.declare(rtQubitRelease, types.Void, ir.NewParam("", r.qubitType()))
}

func (r *runtimeDecls) measure() *ir.Func {
	return r.declare(qisMeasureBody, r.resultType(), ir.NewParam("", r.qubitType()))
}

// gate returns the intrinsic body declaration for a named gate. The arity is
// fixed by the first use; later uses must agree or the declaration would be
// invalid.
func (r *runtimeDecls) gate(name string, arity int) (*ir.Func, error) {
	symbol := qisGateBody(name)
	if f, ok := r.decls[symbol]; ok {
		if len(f.Params) != arity {
			return nil, fmt.Errorf("gate %q used with %d qubits, previously %d", name, arity, len(f.Params))
		}
		return f, nil
	}
	params := make([]*ir.Param, arity)
	for i := range params {
		params[i] = ir.NewParam("", r.qubitType())
	}
	return r.declare(symbol, types.Void, params...), nil
}
