package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
)

// IsPDF reports whether path has a .pdf extension in any case.
func IsPDF(path string) bool {
	return constants.IsPDFExt(filepath.Ext(path))
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
