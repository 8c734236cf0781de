package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// PageHeader opens each recognized page in OCR text. Pages that fail are
// left out, so the number is explicit rather than implied by position.
func PageHeader(page int) string {
	return fmt.Sprintf("--- Page %d (OCR) ---\n", page)
}

// OCRResult is the outcome of recognizing a document page by page.
type OCRResult struct {
	Text       string
	Pages      int // pages in the document
	Recognized int // pages that produced text
	Warnings   []string
}

// OCRAdapter drives a PageRenderer and a Recognizer over a whole document.
type OCRAdapter struct {
	renderer   PageRenderer
	recognizer Recognizer
	maxPages   int
	logger     *slog.Logger
}

func NewOCRAdapter(r PageRenderer, rec Recognizer, maxPages int, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{
		renderer:   r,
		recognizer: rec,
		maxPages:   maxPages,
		logger:     logger,
	}
}

// Extract renders and recognizes each page inside scratchDir and writes every
// recognized page under its PageHeader. A page that fails to render or
// recognize becomes a warning and is left out; the call fails only when no
// page produced text. Each rendered image is removed once recognized.
func (a *OCRAdapter) Extract(ctx context.Context, path, scratchDir string) (OCRResult, error) {
	pages, err := a.renderer.PageCount(ctx, path)
	if err != nil {
		return OCRResult{}, fmt.Errorf("page count: %w", err)
	}
	out := OCRResult{Pages: pages}
	if pages == 0 {
		return out, fmt.Errorf("document has no pages")
	}

	limit := pages
	if a.maxPages > 0 && limit > a.maxPages {
		limit = a.maxPages
		out.Warnings = append(out.Warnings, fmt.Sprintf("ocr limited to first %d of %d pages", limit, pages))
	}

	var b strings.Builder
	for page := 1; page <= limit; page++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		txt, err := a.page(ctx, path, page, scratchDir)
		if err != nil {
			a.logger.Warn("ocr page failed", "path", path, "page", page, "error", err)
			out.Warnings = append(out.Warnings, fmt.Sprintf("page %d: %v", page, err))
			continue
		}
		b.WriteString(PageHeader(page))
		b.WriteString(strings.TrimRight(txt, "\n"))
		b.WriteString("\n")
		out.Recognized++
	}

	if out.Recognized == 0 {
		return out, fmt.Errorf("ocr failed on all %d pages: %s", limit, strings.Join(out.Warnings, "; "))
	}
	out.Text = b.String()
	return out, nil
}

func (a *OCRAdapter) page(ctx context.Context, path string, page int, scratchDir string) (string, error) {
	img, err := a.renderer.RenderPage(ctx, path, page, scratchDir)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	defer func() {
		if err := os.Remove(img.Path); err != nil && !os.IsNotExist(err) {
			a.logger.Debug("failed to remove rendered page", "image", img.Path, "error", err)
		}
	}()
	txt, err := a.recognizer.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return txt, nil
}
