package constants

import "strings"

// PDFExt is the only extension picked up by directory discovery.
const PDFExt = "pdf"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDFExt reports whether ext (with or without the dot, any case) names a PDF.
func IsPDFExt(ext string) bool {
	return NormalizeExt(ext) == PDFExt
}
