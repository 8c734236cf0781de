//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
)

// GosseractAvailable reports whether this binary links libtesseract.
const GosseractAvailable = true

// GosseractRecognizer runs libtesseract in-process through cgo.
// A client is created per call since gosseract clients are not goroutine safe.
type GosseractRecognizer struct {
	cfg    Config
	logger *slog.Logger
}

var _ extract.Recognizer = (*GosseractRecognizer)(nil)

func NewGosseractRecognizer(cfg Config, logger *slog.Logger) (*GosseractRecognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GPU {
		logger.Warn("gpu requested but tesseract runs on cpu only; ignoring")
	}
	return &GosseractRecognizer{cfg: cfg.withDefaults(), logger: logger}, nil
}

func (g *GosseractRecognizer) Recognize(ctx context.Context, img extract.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := gosseract.NewClient()
	defer c.Close()

	if g.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(g.cfg.TessdataDir); err != nil {
			return "", fmt.Errorf("set tessdata: %w", err)
		}
	}
	if err := c.SetLanguage(g.cfg.TesseractLang); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if g.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
			return "", fmt.Errorf("set psm: %w", err)
		}
	}
	if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(g.cfg.DPI)); err != nil {
		return "", fmt.Errorf("set dpi: %w", err)
	}
	if err := c.SetImage(img.Path); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return Normalize(text), nil
}
