package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/core/strategy"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
)

// Fingerprinter hashes a document.
type Fingerprinter interface {
	File(path string) (entity.Fingerprint, error)
}

// DedupChecker answers whether a (path, hash) key already succeeded.
type DedupChecker interface {
	ExistsSuccessful(ctx context.Context, path, hash string) (bool, error)
}

// PageOCR recognizes a whole document page by page inside scratchDir.
type PageOCR interface {
	Extract(ctx context.Context, path, scratchDir string) (extract.OCRResult, error)
}

// Outcome is what a worker hands back for one document.
type Outcome struct {
	Path    string
	Result  entity.ExtractionResult
	Skipped bool // key already has a successful record
}

// ProcessorConfig holds the per-run knobs of a Processor.
type ProcessorConfig struct {
	Plan       strategy.Plan
	Thresholds strategy.Thresholds
	Force      bool
	Timeout    time.Duration // per document; 0 = none
	ScratchDir string        // parent of per-document scratch dirs; "" = os.TempDir()
}

// Processor turns one document into an ExtractionResult. It holds no
// per-document state, so one Processor serves every worker.
type Processor struct {
	logger *slog.Logger
	hasher Fingerprinter
	dedup  DedupChecker
	direct extract.DirectExtractor
	ocr    PageOCR
	cfg    ProcessorConfig
}

// NewProcessor wires the capabilities for one run. Zero Thresholds mean the
// package defaults (50 chars, 10 per page); a nil dedup checker never skips.
func NewProcessor(
	logger *slog.Logger,
	hasher Fingerprinter,
	dedup DedupChecker,
	direct extract.DirectExtractor,
	ocr PageOCR,
	cfg ProcessorConfig,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Thresholds == (strategy.Thresholds{}) {
		cfg.Thresholds = strategy.Thresholds{
			MinTextChars:    strategy.DefaultMinTextChars,
			MinCharsPerPage: strategy.DefaultMinCharsPerPage,
		}
	}
	return &Processor{
		logger: logger,
		hasher: hasher,
		dedup:  dedup,
		direct: direct,
		ocr:    ocr,
		cfg:    cfg,
	}
}

// Process fingerprints path, skips it when its key already succeeded, and
// otherwise extracts it. It never returns a document-level error: every
// failure, panic or timeout becomes a method=error result.
func (p *Processor) Process(ctx context.Context, path string) (out Outcome) {
	start := time.Now()
	out.Path = path
	logger := p.logger.With("path", path)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("processor panic", "panic", rec)
			out.Skipped = false
			out.Result = entity.NewFailure(path, fingerprintOf(out.Result), fmt.Sprintf("panic: %v", rec), time.Since(start))
		}
	}()

	fp, err := p.hasher.File(path)
	if err != nil {
		logger.Warn("fingerprint failed", "error", err)
		out.Result = entity.NewFailure(path, nil, err.Error(), time.Since(start))
		return out
	}
	// fingerprint kept on the result so a later panic can still report it
	out.Result = entity.ExtractionResult{FilePath: path, FileHash: &fp.Hash, FileSize: &fp.Size}

	if !p.cfg.Force && p.dedup != nil {
		done, err := p.dedup.ExistsSuccessful(ctx, path, fp.Hash)
		if err != nil {
			logger.Warn("dedup check failed, processing anyway", "error", err)
		} else if done {
			logger.Debug("already processed", "hash", fp.Hash)
			out.Skipped = true
			return out
		}
	}

	dctx, cancel := common.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	out.Result = p.extract(dctx, logger, path, &fp, start)
	if !out.Result.Success && errors.Is(dctx.Err(), context.DeadlineExceeded) {
		terr := common.NewAppError(common.CodeTimeout, fmt.Sprintf("no result after %s", p.cfg.Timeout), dctx.Err())
		out.Result = entity.NewFailure(path, &fp, terr.Error(), time.Since(start))
	}

	logger.Debug("processor document done",
		"method", out.Result.Method,
		"success", out.Result.Success,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (p *Processor) extract(ctx context.Context, logger *slog.Logger, path string, fp *entity.Fingerprint, start time.Time) entity.ExtractionResult {
	plan := p.cfg.Plan

	var (
		doc       extract.Document
		directErr error
	)
	if plan != strategy.UseOCR {
		doc, directErr = p.direct.ExtractText(ctx, path)
		switch {
		case directErr != nil && !plan.FallsBack():
			return entity.NewFailure(path, fp, "direct extraction failed: "+directErr.Error(), time.Since(start))
		case directErr != nil:
			logger.Info("direct extraction failed, falling back to ocr", "error", directErr)
		case !plan.FallsBack(), doc.Pages == 0, p.cfg.Thresholds.Sufficient(doc.Text, doc.Pages):
			return entity.NewSuccess(path, fp, constants.MethodDirect, doc.Text, doc.Pages, time.Since(start))
		default:
			logger.Info("direct text below minimum yield, falling back to ocr",
				"chars", utf8.RuneCountInString(strings.TrimSpace(doc.Text)),
				"pages", doc.Pages,
				"required", p.cfg.Thresholds.Required(doc.Pages),
			)
		}
	}

	res, ocrErr := p.runOCR(ctx, path)
	if ocrErr == nil {
		r := entity.NewSuccess(path, fp, constants.MethodOCR, res.Text, res.Pages, time.Since(start))
		r.Warnings = res.Warnings
		return r
	}
	logger.Warn("ocr failed", "error", ocrErr)

	var msgs []string
	switch {
	case directErr != nil:
		msgs = append(msgs, "direct extraction failed: "+directErr.Error())
	case plan != strategy.UseOCR:
		msgs = append(msgs, fmt.Sprintf("direct text below minimum yield (%d/%d chars)",
			utf8.RuneCountInString(strings.TrimSpace(doc.Text)), p.cfg.Thresholds.Required(doc.Pages)))
	}
	msgs = append(msgs, "ocr failed: "+ocrErr.Error())
	return entity.NewFailure(path, fp, strings.Join(msgs, "; "), time.Since(start))
}

// runOCR owns the scratch directory for one document and removes it on every path.
func (p *Processor) runOCR(ctx context.Context, path string) (extract.OCRResult, error) {
	if p.ocr == nil {
		return extract.OCRResult{}, common.NewExtractionError("ocr unavailable", nil)
	}
	scratch, err := os.MkdirTemp(p.cfg.ScratchDir, "pdfx-*")
	if err != nil {
		return extract.OCRResult{}, common.NewIOError("create scratch dir", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			p.logger.Warn("failed to remove scratch dir", "dir", scratch, "error", err)
		}
	}()
	return p.ocr.Extract(ctx, path, scratch)
}

func fingerprintOf(r entity.ExtractionResult) *entity.Fingerprint {
	if r.FileHash == nil || r.FileSize == nil {
		return nil
	}
	return &entity.Fingerprint{Hash: *r.FileHash, Size: *r.FileSize}
}
