// Package extract defines the capabilities a worker needs to turn a PDF into text.
// Concrete implementations live in internal/ocr; tests supply fakes.
package extract

import "context"

// Document is the text of a PDF plus how many pages it has.
type Document struct {
	Text  string
	Pages int
}

// Image is one rendered page on disk.
type Image struct {
	Path string
	Page int // 1-based
}

// DirectExtractor reads the embedded text layer without rendering.
type DirectExtractor interface {
	ExtractText(ctx context.Context, path string) (Document, error)
}

// PageRenderer rasterizes pages into scratchDir for recognition.
type PageRenderer interface {
	PageCount(ctx context.Context, path string) (int, error)
	RenderPage(ctx context.Context, path string, page int, scratchDir string) (Image, error)
}

// Recognizer turns a rendered page into text.
type Recognizer interface {
	Recognize(ctx context.Context, img Image) (string, error)
}
