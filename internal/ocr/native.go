package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
)

// NativeExtractor reads the text layer in-process with ledongthuc/pdf, so
// direct extraction works on hosts without poppler.
type NativeExtractor struct {
	logger *slog.Logger
}

var _ extract.DirectExtractor = (*NativeExtractor)(nil)

func NewNativeExtractor(logger *slog.Logger) *NativeExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &NativeExtractor{logger: logger}
}

// ExtractText reads every page; pages whose content stream cannot be decoded
// are skipped. The reader panics on some malformed files, which is reported as an error.
func (n *NativeExtractor) ExtractText(ctx context.Context, path string) (doc extract.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return extract.Document{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	doc.Pages = r.NumPage()
	var b strings.Builder
	for i := 1; i <= doc.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return extract.Document{}, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			n.logger.Debug("skipping unreadable page", "path", path, "page", i, "error", err)
			continue
		}
		if i > 1 {
			b.WriteString("\f")
		}
		b.WriteString(strings.TrimRight(text, " \n"))
	}
	doc.Text = strings.TrimRight(b.String(), "\f\n")
	return doc, nil
}
