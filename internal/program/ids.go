package program

// CallableID identifies a callable inside the registry arena.
type CallableID uint32

const (
	// NoCallableID marks the absence of a callable reference.
	NoCallableID CallableID = 0
)

// IsValid reports whether the ID refers to an allocated callable.
func (id CallableID) IsValid() bool { return id != NoCallableID }

// SlotID is a virtual register inside a callable body. Parameters occupy
// slots 1..len(params); ops define fresh slots. 0 means "no slot".
type SlotID uint32

const (
	// NoSlotID marks the absence of a slot operand.
	NoSlotID SlotID = 0
)

// IsValid reports whether the slot carries a value.
func (id SlotID) IsValid() bool { return id != NoSlotID }
