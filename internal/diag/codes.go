package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Snapshot loading and decoding
	SnapInfo            Code = 1000
	SnapReadError       Code = 1001
	SnapDecodeError     Code = 1002
	SnapSchemaMismatch  Code = 1003
	SnapBadFileRef      Code = 1004
	SnapContentCorrupt  Code = 1005
	SnapEmptyProgram    Code = 1006
	SnapDuplicatePath   Code = 1007

	// Program validation
	ProgInfo               Code = 2000
	ProgDuplicateCallable  Code = 2001
	ProgUnknownCallee      Code = 2002
	ProgArityMismatch      Code = 2003
	ProgSlotUndefined      Code = 2004
	ProgSlotTypeMismatch   Code = 2005
	ProgSlotRedefined      Code = 2006
	ProgRetTypeMismatch    Code = 2007
	ProgUnknownAttr        Code = 2008
	ProgAttrArgsIgnored    Code = 2009
	ProgMultipleEntry      Code = 2010
	ProgEntryNotVisible    Code = 2011
	ProgMalformedOp        Code = 2012
	ProgExternalBody       Code = 2013

	// Code generation
	GenInfo             Code = 3000
	GenMissingEntry     Code = 3001
	GenUnsupportedOp    Code = 3002
)

var codeDescription = map[Code]string{
	UnknownCode: "unknown error",

	SnapInfo:           "snapshot information",
	SnapReadError:      "failed to read snapshot file",
	SnapDecodeError:    "failed to decode snapshot payload",
	SnapSchemaMismatch: "snapshot schema version is not supported",
	SnapBadFileRef:     "callable references a file index outside the snapshot",
	SnapContentCorrupt: "embedded file content does not match its recorded hash",
	SnapEmptyProgram:   "snapshot contains no callables",
	SnapDuplicatePath:  "snapshot contains the same file path twice",

	ProgInfo:              "program information",
	ProgDuplicateCallable: "duplicate callable name",
	ProgUnknownCallee:     "call targets an unknown callable",
	ProgArityMismatch:     "call argument count does not match callee parameters",
	ProgSlotUndefined:     "op reads a slot that was never defined",
	ProgSlotTypeMismatch:  "slot type does not match its use",
	ProgSlotRedefined:     "slot is assigned more than once",
	ProgRetTypeMismatch:   "return value does not match the declared result type",
	ProgUnknownAttr:       "unknown attribute",
	ProgAttrArgsIgnored:   "attribute does not take arguments",
	ProgMultipleEntry:     "multiple entry point callables",
	ProgEntryNotVisible:   "entry point attribute on a callable that is not globally visible",
	ProgMalformedOp:       "op operands do not match its kind",
	ProgExternalBody:      "external callable declares a body",

	GenInfo:          "code generation information",
	GenMissingEntry:  "no entry point callable found",
	GenUnsupportedOp: "op kind is not supported by the backend",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SNP%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("PRG%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("GEN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
