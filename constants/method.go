package constants

// Method is the canonical extraction_method stored with every result.
type Method string

// Stable values (store these exact strings in DB).
const (
	MethodDirect Method = "direct" // text layer read without rendering
	MethodOCR    Method = "ocr"    // rendered pages recognized by the OCR engine
	MethodError  Method = "error"  // terminal failure for this attempt
)

// Valid reports whether m is one of the stored method values.
func (m Method) Valid() bool {
	switch m {
	case MethodDirect, MethodOCR, MethodError:
		return true
	}
	return false
}

// HashAlgorithm names a fingerprint hash.
type HashAlgorithm string

const (
	HashSHA256  HashAlgorithm = "sha256"
	HashBLAKE2b HashAlgorithm = "blake2b"
)

// HashMode selects how much of the file feeds the fingerprint.
type HashMode string

const (
	HashModeFull HashMode = "full"
	HashModeFast HashMode = "fast" // size + first and last KiB
)
