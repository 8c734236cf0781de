package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
)

var rePdfinfoPages = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

// Poppler reads text layers with pdftotext and renders pages with pdftoppm.
type Poppler struct {
	tool
}

var (
	_ extract.DirectExtractor = (*Poppler)(nil)
	_ extract.PageRenderer    = (*Poppler)(nil)
)

func NewPoppler(cfg Config, logger *slog.Logger, opts ...Option) *Poppler {
	return &Poppler{tool: newTool(cfg, logger, opts)}
}

// ExtractText runs pdftotext and counts pages by form feeds.
func (p *Poppler) ExtractText(ctx context.Context, path string) (extract.Document, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.logger, p.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return extract.Document{}, commandError(p.cfg.Pdftotext, errb, err)
	}
	return splitPages(string(out)), nil
}

// splitPages counts the form feeds pdftotext emits after each page.
func splitPages(text string) extract.Document {
	pages := strings.Count(text, "\f")
	text = strings.TrimRight(text, "\f\n")
	if pages == 0 && strings.TrimSpace(text) != "" {
		pages = 1
	}
	return extract.Document{Text: text, Pages: pages}
}

// PageCount asks pdfcpu first and falls back to pdfinfo for files pdfcpu is too strict to read.
func (p *Poppler) PageCount(ctx context.Context, path string) (int, error) {
	n, err := pdfcpuPageCount(path)
	if err == nil {
		return n, nil
	}
	p.logger.Debug("pdfcpu page count failed, trying pdfinfo", "path", path, "error", err)

	out, errb, rerr := p.runner.Run(ctx, p.logger, p.cfg.Pdfinfo, path)
	if rerr != nil {
		return 0, fmt.Errorf("page count: %v; %w", err, commandError(p.cfg.Pdfinfo, errb, rerr))
	}
	m := rePdfinfoPages.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("page count: pdfinfo printed no page count")
	}
	return strconv.Atoi(string(m[1]))
}

// RenderPage rasterizes one page to <scratchDir>/page-<n>.png.
func (p *Poppler) RenderPage(ctx context.Context, path string, page int, scratchDir string) (extract.Image, error) {
	prefix := filepath.Join(scratchDir, fmt.Sprintf("page-%d", page))
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <scratch/page-N>
	_, errb, err := p.runner.Run(ctx, p.logger, p.cfg.Pdftoppm,
		"-r", strconv.Itoa(p.cfg.DPI),
		"-png",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		path, prefix)
	if err != nil {
		return extract.Image{}, commandError(p.cfg.Pdftoppm, errb, err)
	}
	img := prefix + ".png"
	if _, err := os.Stat(img); err != nil {
		return extract.Image{}, fmt.Errorf("pdftoppm produced no image for page %d: %w", page, err)
	}
	return extract.Image{Path: img, Page: page}, nil
}

func pdfcpuPageCount(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(f, conf)
}
