// Package strategy decides how a document is extracted.
package strategy

import (
	"strings"
	"unicode/utf8"
)

// Plan is the extraction route for one document.
type Plan int

const (
	// UseDirect reads the text layer only.
	UseDirect Plan = iota
	// UseOCR renders and recognizes every page, skipping the text layer.
	UseOCR
	// UseBoth tries the text layer first and falls back to OCR on low yield or failure.
	UseBoth
)

func (p Plan) String() string {
	switch p {
	case UseDirect:
		return "direct"
	case UseOCR:
		return "ocr"
	case UseBoth:
		return "direct+ocr"
	default:
		return "unknown"
	}
}

// Select picks the plan for the run flags. ocrOnly wins over textOnly;
// config validation rejects setting both.
func Select(textOnly, ocrOnly bool) Plan {
	switch {
	case ocrOnly:
		return UseOCR
	case textOnly:
		return UseDirect
	default:
		return UseBoth
	}
}

// FallsBack reports whether the plan allows OCR after the text layer.
func (p Plan) FallsBack() bool {
	return p == UseBoth
}

// Default minimum yield.
const (
	DefaultMinTextChars    = 50
	DefaultMinCharsPerPage = 10
)

// Thresholds is the minimum-yield check for direct text.
type Thresholds struct {
	MinTextChars    int
	MinCharsPerPage int
}

// Required is the number of non-space runes needed for a document with pages pages.
func (t Thresholds) Required(pages int) int {
	need := t.MinTextChars
	if pages > 0 && t.MinCharsPerPage*pages > need {
		need = t.MinCharsPerPage * pages
	}
	return need
}

// Sufficient reports whether trimmed text meets the yield for its page count.
// Text of exactly the required length is sufficient.
func (t Thresholds) Sufficient(text string, pages int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n == 0 {
		return false
	}
	return n >= t.Required(pages)
}
