package program

import (
	"qirgen/internal/source"
)

// OpKind classifies one instruction in a callable body. Bodies are flat,
// single-assignment op sequences; there is no control flow.
type OpKind uint8

const (
	OpInvalid OpKind = iota
	// OpAlloc allocates a fresh qubit into Dst.
	OpAlloc
	// OpRelease returns the qubit in Args[0] to the runtime.
	OpRelease
	// OpGate applies the named intrinsic gate to the qubits in Args.
	OpGate
	// OpMeasure measures the qubit in Args[0] into the result Dst.
	OpMeasure
	// OpCall invokes another callable; Dst binds the value for non-unit results.
	OpCall
	// OpRet leaves the callable, returning Args[0] when the result is non-unit.
	OpRet
)

func (k OpKind) String() string {
	switch k {
	case OpAlloc:
		return "alloc"
	case OpRelease:
		return "release"
	case OpGate:
		return "gate"
	case OpMeasure:
		return "measure"
	case OpCall:
		return "call"
	case OpRet:
		return "ret"
	default:
		return "invalid"
	}
}

// parseOpKind resolves the wire spelling of an op kind.
func parseOpKind(s string) (OpKind, bool) {
	switch s {
	case "alloc":
		return OpAlloc, true
	case "release":
		return OpRelease, true
	case "gate":
		return OpGate, true
	case "measure":
		return OpMeasure, true
	case "call":
		return OpCall, true
	case "ret":
		return OpRet, true
	default:
		return OpInvalid, false
	}
}

// Op is one body instruction. Gate is set for OpGate, Callee for OpCall;
// both are NoStringID otherwise.
type Op struct {
	Kind   OpKind
	Gate   source.StringID
	Callee source.StringID
	Dst    SlotID
	Args   []SlotID
	Span   source.Span
}
