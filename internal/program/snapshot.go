package program

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"qirgen/internal/diag"
	"qirgen/internal/source"
)

// Current schema version - increment when the snapshot format changes.
const snapshotSchemaVersion uint16 = 1

// snapshotPayload is the wire form of a program snapshot. Frontends write it,
// this backend reads it. Kinds travel as strings so payloads stay readable
// across schema bumps.
type snapshotPayload struct {
	Schema    uint16
	Package   string
	Files     []filePayload
	Callables []callablePayload
}

type filePayload struct {
	Path    string
	Content []byte
	// Hash of Content as produced by the frontend; zero means unverified.
	Hash [32]byte
}

type callablePayload struct {
	Name     string
	Public   bool
	External bool
	File     uint32
	Start    uint32
	End      uint32
	Attrs    []attrPayload
	Params   []paramPayload
	Result   string
	Body     []opPayload
}

type attrPayload struct {
	Name  string
	Args  []string
	Start uint32
	End   uint32
}

type paramPayload struct {
	Name string
	Type string
}

type opPayload struct {
	Kind   string
	Gate   string
	Callee string
	Dst    uint32
	Args   []uint32
	Start  uint32
	End    uint32
}

// Load reads a snapshot file into a Program, registering embedded sources in
// fs. Diagnostics go to the reporter; the returned error is non-nil whenever
// the snapshot cannot be trusted.
func Load(path string, fs *source.FileSet, reporter diag.Reporter) (*Program, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		diag.ReportError(reporter, diag.SnapReadError, source.Span{},
			fmt.Sprintf("failed to read snapshot %s: %v", path, err)).Emit()
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return Decode(data, fs, reporter)
}

// Decode unpacks snapshot bytes into a Program.
func Decode(data []byte, fs *source.FileSet, reporter diag.Reporter) (*Program, error) {
	var payload snapshotPayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		diag.ReportError(reporter, diag.SnapDecodeError, source.Span{},
			fmt.Sprintf("failed to decode snapshot: %v", err)).Emit()
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if payload.Schema != snapshotSchemaVersion {
		diag.ReportError(reporter, diag.SnapSchemaMismatch, source.Span{},
			fmt.Sprintf("snapshot schema %d is not supported (want %d)", payload.Schema, snapshotSchemaVersion)).Emit()
		return nil, fmt.Errorf("snapshot schema %d unsupported", payload.Schema)
	}

	var zeroHash [32]byte
	fileIDs := make([]source.FileID, len(payload.Files))
	seenPaths := make(map[string]struct{}, len(payload.Files))
	for i, f := range payload.Files {
		if _, dup := seenPaths[f.Path]; dup {
			diag.ReportError(reporter, diag.SnapDuplicatePath, source.Span{},
				fmt.Sprintf("snapshot lists %s twice", f.Path)).Emit()
			return nil, fmt.Errorf("duplicate snapshot path %s", f.Path)
		}
		seenPaths[f.Path] = struct{}{}

		if f.Hash != zeroHash && sha256.Sum256(f.Content) != f.Hash {
			diag.ReportError(reporter, diag.SnapContentCorrupt, source.Span{},
				fmt.Sprintf("content of %s does not match its recorded hash", f.Path)).Emit()
			return nil, fmt.Errorf("snapshot content corrupt: %s", f.Path)
		}
		fileIDs[i] = fs.Add(f.Path, f.Content)
	}

	prog := NewProgram(payload.Package)
	for ci := range payload.Callables {
		c := &payload.Callables[ci]
		if int(c.File) >= len(payload.Files) {
			diag.ReportError(reporter, diag.SnapBadFileRef, source.Span{},
				fmt.Sprintf("callable %s references file %d outside the snapshot", c.Name, c.File)).Emit()
			return nil, fmt.Errorf("callable %s: bad file index %d", c.Name, c.File)
		}
		fileID := fileIDs[c.File]

		decl, err := decodeCallable(c, fileID, prog.Strings)
		if err != nil {
			diag.ReportError(reporter, diag.SnapDecodeError, source.Span{File: fileID, Start: c.Start, End: c.End},
				err.Error()).Emit()
			return nil, fmt.Errorf("callable %s: %w", c.Name, err)
		}
		prog.Add(decl)
	}

	if prog.Callables.Len() == 0 {
		diag.ReportWarning(reporter, diag.SnapEmptyProgram, source.Span{},
			"snapshot contains no callables").Emit()
	}
	return prog, nil
}

func decodeCallable(c *callablePayload, fileID source.FileID, interner *source.Interner) (*Callable, error) {
	var flags CallableFlags
	if c.Public {
		flags |= CallablePublic
	}
	if c.External {
		flags |= CallableExternal
	}

	result, ok := parseTypeKind(c.Result)
	if !ok {
		return nil, fmt.Errorf("unknown result type %q", c.Result)
	}

	decl := &Callable{
		Name:   interner.Intern(c.Name),
		Flags:  flags,
		File:   fileID,
		Span:   source.Span{File: fileID, Start: c.Start, End: c.End},
		Result: result,
	}

	for _, a := range c.Attrs {
		attr := Attribute{
			Raw:  interner.Intern(a.Name),
			Args: a.Args,
			Span: source.Span{File: fileID, Start: a.Start, End: a.End},
		}
		if spec, known := LookupAttr(a.Name); known {
			attr.Kind = spec.Kind
		}
		decl.Attrs = append(decl.Attrs, attr)
	}

	for _, p := range c.Params {
		kind, ok := parseTypeKind(p.Type)
		if !ok {
			return nil, fmt.Errorf("param %s: unknown type %q", p.Name, p.Type)
		}
		decl.Params = append(decl.Params, Param{Name: interner.Intern(p.Name), Type: kind})
	}

	for _, o := range c.Body {
		kind, ok := parseOpKind(o.Kind)
		if !ok {
			return nil, fmt.Errorf("unknown op kind %q", o.Kind)
		}
		op := Op{
			Kind: kind,
			Dst:  SlotID(o.Dst),
			Span: source.Span{File: fileID, Start: o.Start, End: o.End},
		}
		if o.Gate != "" {
			op.Gate = interner.Intern(o.Gate)
		}
		if o.Callee != "" {
			op.Callee = interner.Intern(o.Callee)
		}
		for _, a := range o.Args {
			op.Args = append(op.Args, SlotID(a))
		}
		decl.Body = append(decl.Body, op)
	}

	// Frontends may omit the declaration span; fall back to covering the
	// attributes and body.
	if decl.Span.Empty() {
		sp := decl.Span
		for i := range decl.Attrs {
			sp = sp.Cover(decl.Attrs[i].Span)
		}
		for i := range decl.Body {
			sp = sp.Cover(decl.Body[i].Span)
		}
		decl.Span = sp
	}
	return decl, nil
}

// Write serializes a program back into snapshot form, atomically replacing
// path. The FileSet must contain every file the program references.
func Write(path string, prog *Program, fs *source.FileSet) error {
	payload := snapshotPayload{
		Schema:  snapshotSchemaVersion,
		Package: prog.Package,
	}

	fileIndex := make(map[source.FileID]uint32, fs.Len())
	for i := 0; i < fs.Len(); i++ {
		f := fs.Get(source.FileID(i))
		fileIndex[f.ID] = uint32(len(payload.Files))
		payload.Files = append(payload.Files, filePayload{
			Path:    f.Path,
			Content: f.Content,
			Hash:    f.Hash,
		})
	}

	for i := 1; i <= prog.Callables.Len(); i++ {
		c := prog.Callables.Get(CallableID(i))
		payload.Callables = append(payload.Callables, encodeCallable(c, fileIndex, prog.Strings))
	}

	data, err := msgpack.Marshal(&payload)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func encodeCallable(c *Callable, fileIndex map[source.FileID]uint32, interner *source.Interner) callablePayload {
	out := callablePayload{
		Name:     interner.MustLookup(c.Name),
		Public:   c.Flags.Has(CallablePublic),
		External: c.Flags.Has(CallableExternal),
		File:     fileIndex[c.File],
		Start:    c.Span.Start,
		End:      c.Span.End,
		Result:   c.Result.String(),
	}
	for _, a := range c.Attrs {
		out.Attrs = append(out.Attrs, attrPayload{
			Name:  interner.MustLookup(a.Raw),
			Args:  a.Args,
			Start: a.Span.Start,
			End:   a.Span.End,
		})
	}
	for _, p := range c.Params {
		out.Params = append(out.Params, paramPayload{
			Name: interner.MustLookup(p.Name),
			Type: p.Type.String(),
		})
	}
	for _, o := range c.Body {
		op := opPayload{
			Kind:  o.Kind.String(),
			Dst:   uint32(o.Dst),
			Start: o.Span.Start,
			End:   o.Span.End,
		}
		if o.Gate != source.NoStringID {
			op.Gate = interner.MustLookup(o.Gate)
		}
		if o.Callee != source.NoStringID {
			op.Callee = interner.MustLookup(o.Callee)
		}
		for _, a := range o.Args {
			op.Args = append(op.Args, uint32(a))
		}
		out.Body = append(out.Body, op)
	}
	return out
}
