package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

// Availability records which external tools could be started.
type Availability struct {
	Pdftotext bool
	Pdftoppm  bool
	Tesseract bool
	Missing   []string
}

// OCR reports whether both rendering and recognition tools exist.
func (a Availability) OCR() bool {
	return a.Pdftoppm && a.Tesseract
}

// Probe starts each tool with a version flag. A tool that runs but exits
// non-zero still counts as present; only a failure to start marks it missing.
func Probe(ctx context.Context, cfg Config, logger *slog.Logger, opts ...Option) Availability {
	t := newTool(cfg, logger, opts)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var a Availability
	check := func(name string, args ...string) bool {
		_, _, err := t.runner.Run(ctx, t.logger, name, args...)
		var exitErr *exec.ExitError
		if err == nil || errors.As(err, &exitErr) {
			return true
		}
		a.Missing = append(a.Missing, name)
		return false
	}
	a.Pdftotext = check(t.cfg.Pdftotext, "-v")
	a.Pdftoppm = check(t.cfg.Pdftoppm, "-v")
	a.Tesseract = check(t.cfg.Tesseract, "--version")

	if len(a.Missing) > 0 {
		t.logger.Warn("external tools not available", "missing", a.Missing)
	}
	return a
}
