package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/core"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/core/strategy"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/export"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/fingerprint"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/ocr"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/pipeline"
	repo "github.com/joseph-ayodele/pdf-text-extractor/internal/repository"
)

// Exit codes.
const (
	exitOK          = 0
	exitFatal       = 1
	exitUsage       = 2
	exitWithErrors  = 3
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	config       string
	dir          string
	workers      int
	db           string
	force        bool
	textOnly     bool
	ocrOnly      bool
	gpu          bool
	exportTxt    string
	hash         string
	fastHash     bool
	timeout      time.Duration
	direct       string
	engine       string
	lang         string
	dpi          int
	maxPages     int
	logLevel     string
	logFormat    string
	listFailures bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, *flag.FlagSet, error) {
	f := &flags{}
	fs := flag.NewFlagSet("pdf-extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pdf-extract [flags] <input-dir>\n\nExtract text from every PDF under a directory into the result store.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&f.config, "config", "", "YAML config file")
	fs.StringVar(&f.dir, "dir", "", "directory to scan for PDFs (or pass it as the first argument)")
	fs.IntVar(&f.workers, "workers", 0, "parallel workers (default 4)")
	fs.StringVar(&f.db, "db", "", "store: SQLite file path or postgres:// URL (default pdf_extraction.db)")
	fs.BoolVar(&f.force, "force", false, "reprocess documents that already succeeded")
	fs.BoolVar(&f.textOnly, "text-only", false, "never run OCR")
	fs.BoolVar(&f.ocrOnly, "ocr-only", false, "skip the text layer and OCR every document")
	fs.BoolVar(&f.gpu, "gpu", false, "request GPU OCR where the engine supports it")
	fs.StringVar(&f.exportTxt, "export-txt", "", "write a text report of the whole store to this path after the run")
	fs.StringVar(&f.hash, "hash", "", "fingerprint algorithm: sha256 | blake2b")
	fs.BoolVar(&f.fastHash, "fast-hash", false, "fingerprint size plus first and last KiB instead of the whole file")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-document timeout (0 = none)")
	fs.StringVar(&f.direct, "direct", "", "text layer reader: pdftotext | native")
	fs.StringVar(&f.engine, "engine", "", "ocr engine: tesseract | gosseract")
	fs.StringVar(&f.lang, "lang", "", "tesseract language(s), e.g. eng+deu")
	fs.IntVar(&f.dpi, "dpi", 0, "render resolution for OCR")
	fs.IntVar(&f.maxPages, "max-pages", 0, "OCR at most this many pages per document (0 = all)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug | info | warn | error")
	fs.StringVar(&f.logFormat, "log-format", "", "json | text")
	fs.BoolVar(&f.listFailures, "list-failures", false, "print every failed document after the summary")
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if f.dir == "" && fs.NArg() > 0 {
		f.dir = fs.Arg(0)
	}
	return f, fs, nil
}

// apply overlays the flags the user actually set onto cfg.
func (f *flags) apply(fs *flag.FlagSet, cfg *common.Config) {
	if f.dir != "" {
		cfg.Pipeline.InputDir = f.dir
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "workers":
			cfg.Pipeline.Workers = f.workers
		case "db":
			cfg.Database.DSN = f.db
		case "force":
			cfg.Pipeline.Force = f.force
		case "text-only":
			cfg.Pipeline.TextOnly = f.textOnly
		case "ocr-only":
			cfg.Pipeline.OCROnly = f.ocrOnly
		case "gpu":
			cfg.Pipeline.GPU = f.gpu
		case "export-txt":
			cfg.Pipeline.ExportText = f.exportTxt
		case "hash":
			cfg.Pipeline.HashAlgorithm = f.hash
		case "fast-hash":
			if f.fastHash {
				cfg.Pipeline.HashMode = string(constants.HashModeFast)
			}
		case "timeout":
			cfg.Pipeline.DocumentTimeout = f.timeout
		case "direct":
			cfg.OCR.Direct = f.direct
		case "engine":
			cfg.OCR.Engine = f.engine
		case "lang":
			cfg.OCR.Lang = f.lang
		case "dpi":
			cfg.OCR.DPI = f.dpi
		case "max-pages":
			cfg.OCR.MaxPages = f.maxPages
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "log-format":
			cfg.Log.Format = f.logFormat
		}
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := common.LoadConfig(f.config)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	f.apply(fs, cfg)
	if cfg.Pipeline.InputDir == "" {
		fmt.Fprintf(stderr, "Error: an input directory is required\n")
		fs.Usage()
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	logger := common.NewLogger(cfg.Log, stderr)

	db, err := repo.Open(ctx, repo.ConfigFrom(cfg.Database), logger)
	if err != nil {
		logger.Error("failed to open result store", "error", err)
		fmt.Fprintf(stderr, "Error: cannot open result store: %v\n", err)
		return exitFatal
	}
	defer db.Close()
	results := repo.NewResultRepository(db, logger)

	proc, err := buildProcessor(ctx, cfg, results, logger)
	if err != nil {
		logger.Error("failed to set up extraction", "error", err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	orch := pipeline.NewOrchestrator(proc, results, pipeline.NewLogSink(logger, 25), pipeline.Options{
		InputDir:      cfg.Pipeline.InputDir,
		SkipHidden:    cfg.Pipeline.SkipHidden,
		Workers:       cfg.Pipeline.Workers,
		QueueSize:     cfg.Pipeline.QueueSize,
		BatchSize:     cfg.Pipeline.BatchSize,
		FlushInterval: cfg.Pipeline.FlushInterval,
	}, logger)

	stats, err := orch.Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	printSummary(stdout, stats, f.listFailures)

	if path := cfg.Pipeline.ExportText; path != "" {
		if err := exportText(context.WithoutCancel(ctx), results, path, logger); err != nil {
			logger.Error("text export failed", "path", path, "error", err)
			fmt.Fprintf(stderr, "Error: export to %s failed: %v\n", path, err)
			return exitFatal
		}
		fmt.Fprintf(stdout, "Results exported to: %s\n", path)
	}

	switch {
	case stats.Cancelled:
		return exitInterrupted
	case stats.Failed > 0:
		return exitWithErrors
	default:
		return exitOK
	}
}

// buildProcessor picks the capabilities for this run. Missing OCR tools turn
// the run into text-only unless OCR was explicitly required.
func buildProcessor(ctx context.Context, cfg *common.Config, results repo.ResultRepository, logger *slog.Logger) (*core.Processor, error) {
	hasher, err := fingerprint.New(cfg.Pipeline.HashAlgorithm, cfg.Pipeline.HashMode)
	if err != nil {
		return nil, err
	}

	ocrCfg := ocr.ConfigFrom(cfg.OCR, cfg.Pipeline.GPU)
	poppler := ocr.NewPoppler(ocrCfg, logger)
	avail := ocr.Probe(ctx, ocrCfg, logger)

	var direct extract.DirectExtractor = poppler
	if cfg.OCR.Direct == "native" || !avail.Pdftotext {
		if cfg.OCR.Direct != "native" {
			logger.Warn("pdftotext not found, reading text layers with the built-in parser")
		}
		direct = ocr.NewNativeExtractor(logger)
	}

	textOnly := cfg.Pipeline.TextOnly
	var pageOCR core.PageOCR
	if !textOnly {
		recognizer, err := buildRecognizer(cfg, ocrCfg, avail, logger)
		switch {
		case err == nil && avail.Pdftoppm:
			pageOCR = extract.NewOCRAdapter(poppler, recognizer, cfg.OCR.MaxPages, logger)
		case cfg.Pipeline.OCROnly:
			if err == nil {
				err = fmt.Errorf("pdftoppm not found")
			}
			return nil, fmt.Errorf("ocr-only run but OCR is unavailable: %w", err)
		default:
			logger.Warn("OCR unavailable, falling back to text-only extraction", "missing", avail.Missing, "error", err)
			textOnly = true
		}
	}

	return core.NewProcessor(logger, hasher, results, direct, pageOCR, core.ProcessorConfig{
		Plan: strategy.Select(textOnly, cfg.Pipeline.OCROnly),
		Thresholds: strategy.Thresholds{
			MinTextChars:    cfg.Pipeline.MinTextChars,
			MinCharsPerPage: cfg.Pipeline.MinCharsPerPage,
		},
		Force:      cfg.Pipeline.Force,
		Timeout:    cfg.Pipeline.DocumentTimeout,
		ScratchDir: cfg.OCR.ScratchDir,
	}), nil
}

func buildRecognizer(cfg *common.Config, ocrCfg ocr.Config, avail ocr.Availability, logger *slog.Logger) (extract.Recognizer, error) {
	if cfg.OCR.Engine == "gosseract" {
		g, err := ocr.NewGosseractRecognizer(ocrCfg, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	if !avail.Tesseract {
		return nil, fmt.Errorf("tesseract not found")
	}
	return ocr.NewTesseract(ocrCfg, logger), nil
}

func exportText(ctx context.Context, results repo.ResultRepository, path string, logger *slog.Logger) error {
	out, err := os.Create(path)
	if err != nil {
		return common.NewIOError("create export file", err)
	}
	if _, err := export.NewService(results, logger).Write(ctx, out, export.FormatText, export.Options{}); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func printSummary(w io.Writer, s entity.RunStats, listFailures bool) {
	fmt.Fprintf(w, "\nExtraction %s\n", map[bool]string{true: "interrupted", false: "complete"}[s.Cancelled])
	fmt.Fprintf(w, "- Run ID:            %s\n", s.RunID)
	fmt.Fprintf(w, "- Discovered:        %d\n", s.Discovered)
	fmt.Fprintf(w, "- Succeeded (direct): %d\n", s.SucceededDirect)
	fmt.Fprintf(w, "- Succeeded (OCR):   %d\n", s.SucceededOCR)
	fmt.Fprintf(w, "- Skipped:           %d\n", s.Skipped)
	fmt.Fprintf(w, "- Failed:            %d\n", s.Failed)
	fmt.Fprintf(w, "- Duration:          %s\n", s.Duration.Round(time.Millisecond))
	if s.Failed == 0 {
		return
	}
	if !listFailures {
		fmt.Fprintf(w, "Run with -list-failures (or `pdf-query failures`) to see failed documents.\n")
		return
	}
	fmt.Fprintf(w, "\nFailed documents:\n")
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  %s\n    %s\n", f.Path, f.Message)
	}
}
