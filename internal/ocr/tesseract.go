package ocr

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
)

// Tesseract recognizes page images with the tesseract CLI.
type Tesseract struct {
	tool
	gpuOnce sync.Once
}

var _ extract.Recognizer = (*Tesseract)(nil)

func NewTesseract(cfg Config, logger *slog.Logger, opts ...Option) *Tesseract {
	return &Tesseract{tool: newTool(cfg, logger, opts)}
}

// Recognize runs `tesseract <img> stdout -l <lang>` and normalizes the output.
func (t *Tesseract) Recognize(ctx context.Context, img extract.Image) (string, error) {
	if t.cfg.GPU {
		t.gpuOnce.Do(func() {
			t.logger.Warn("gpu requested but tesseract runs on cpu only; ignoring")
		})
	}
	args := []string{img.Path, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	out, errb, err := t.runner.Run(ctx, t.logger, t.cfg.Tesseract, args...)
	if err != nil {
		return "", commandError(t.cfg.Tesseract, errb, err)
	}
	return Normalize(string(out)), nil
}
