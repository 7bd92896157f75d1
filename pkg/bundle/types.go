package bundle

// FileRecord references one eligible file. RelPath is slash-separated and
// relative to the bundling root.
type FileRecord struct {
	AbsPath string
	RelPath string
	Size    int64
}

// Candidate is one plain file produced by Walk, before filtering.
// MatchPath is the slash path that ignore patterns are tested against; it
// equals RelPath unless Traverse was given a wider match root.
type Candidate struct {
	AbsPath   string
	RelPath   string
	MatchPath string
	Size      int64
}

// Result describes a finished bundle. The caller owns ArchivePath and must
// remove it after upload.
type Result struct {
	ArchivePath      string // Temporary zip file.
	Checksum         string // Base64 SHA-256 of the archive bytes.
	TotalSizeBytes   int64  // Sum of the uncompressed sizes written.
	FileCount        int    // Entries written to the archive.
	ArchiveSizeBytes int64  // Size of the zip file itself.
}

// DefaultBatchSize is the number of files read per scheduling unit.
const DefaultBatchSize = 50
