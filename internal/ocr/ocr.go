// Package ocr adapts poppler, tesseract and pure-Go PDF readers to the
// extract capability interfaces.
package ocr

import (
	"log/slog"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Pdfinfo   string // binary name or absolute path; if empty -> "pdfinfo"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	TessdataDir   string

	PSM int // e.g., 6 is good for uniform block of text; 0 = tesseract default
	GPU bool
}

// ConfigFrom maps application OCR settings onto a Config.
func ConfigFrom(c common.OCRConfig, gpu bool) Config {
	return Config{
		Pdftotext:     c.Pdftotext,
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TesseractLang: c.Lang,
		DPI:           c.DPI,
		TessdataDir:   c.TessdataDir,
		GPU:           gpu,
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return cfg
}

// Option customises a tool adapter.
type Option func(*tool)

// WithRunner replaces the command runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(t *tool) {
		if r != nil {
			t.runner = r
		}
	}
}

// tool is the state shared by every command-backed adapter.
type tool struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func newTool(cfg Config, logger *slog.Logger, opts []Option) tool {
	if logger == nil {
		logger = slog.Default()
	}
	t := tool{cfg: cfg.withDefaults(), runner: execRunner{}, logger: logger}
	for _, o := range opts {
		o(&t)
	}
	return t
}
