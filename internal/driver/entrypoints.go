package driver

import (
	"qirgen/internal/program"
	"qirgen/internal/source"
)

// EntrypointInfo describes an entry point candidate discovered in a program.
type EntrypointInfo struct {
	Name     string
	FilePath string
	Span     source.Span
	Line     uint32
	Col      uint32
}

// Entrypoints returns entry point metadata for every globally visible
// candidate, in declaration order. The first entry is the one emission
// selects.
func Entrypoints(prog *program.Program, fs *source.FileSet) []EntrypointInfo {
	if prog == nil {
		return nil
	}
	ids := prog.EntryPoints()
	entries := make([]EntrypointInfo, 0, len(ids))
	for _, id := range ids {
		c := prog.Callables.Get(id)
		name, _ := prog.Strings.Lookup(c.Name)
		info := EntrypointInfo{
			Name: name,
			Span: c.Span,
		}
		if fs != nil && fs.Len() > 0 {
			// Decoded snapshots guarantee the file ref is valid.
			info.FilePath = fs.Get(c.File).Path
			start, _ := fs.Resolve(c.Span)
			info.Line, info.Col = start.Line, start.Col
		}
		entries = append(entries, info)
	}
	return entries
}
