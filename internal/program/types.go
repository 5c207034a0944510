package program

// TypeKind is the closed set of value types a snapshot can mention.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypeUnit
	TypeQubit
	TypeResult
	TypeBool
	TypeInt
	TypeDouble
)

func (k TypeKind) String() string {
	switch k {
	case TypeUnit:
		return "unit"
	case TypeQubit:
		return "qubit"
	case TypeResult:
		return "result"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeDouble:
		return "double"
	default:
		return "invalid"
	}
}

// parseTypeKind resolves the wire spelling of a type kind.
func parseTypeKind(s string) (TypeKind, bool) {
	switch s {
	case "unit", "":
		return TypeUnit, true
	case "qubit":
		return TypeQubit, true
	case "result":
		return TypeResult, true
	case "bool":
		return TypeBool, true
	case "int":
		return TypeInt, true
	case "double":
		return TypeDouble, true
	default:
		return TypeInvalid, false
	}
}
