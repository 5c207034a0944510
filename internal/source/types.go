package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags records normalization applied when a file was added.
	FileFlags uint8
)

const (
	// FileHadBOM marks content that arrived with a UTF-8 BOM.
	FileHadBOM FileFlags = 1 << iota
	// FileNormalizedCRLF marks content that had \r\n endings rewritten to \n.
	FileNormalizedCRLF
)

// File holds the content of one source file carried by a program snapshot.
// Content is normalized (no BOM, \n endings) so byte offsets in spans are
// stable across platforms.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a 1-based human-readable position in a file.
type LineCol struct {
	Line uint32
	Col  uint32
}
