// Package ingest discovers PDF documents under a directory tree.
package ingest

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned uint32 // entries visited
	Matched uint32 // PDFs returned
	Skipped uint32 // hidden entries pruned
	Failed  uint32 // entries that could not be read
}

// Options tunes discovery.
type Options struct {
	SkipHidden bool
}
