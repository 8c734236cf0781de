package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/core"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/core/strategy"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/fingerprint"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/ocr"
)

// runocr extracts a single PDF with the same strategy as pdf-extract and
// prints the result as JSON. Nothing is written to the store.
func main() {
	configPath := flag.String("config", "", "YAML config file")
	ocrOnly := flag.Bool("ocr-only", false, "skip the text layer")
	timeout := flag.Duration("timeout", 2*time.Minute, "give up after this long")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [-config file] [-ocr-only] <file.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	hasher, err := fingerprint.New(cfg.Pipeline.HashAlgorithm, cfg.Pipeline.HashMode)
	if err != nil {
		logger.Error("fingerprint setup", "error", err)
		os.Exit(1)
	}

	ocrCfg := ocr.ConfigFrom(cfg.OCR, cfg.Pipeline.GPU)
	poppler := ocr.NewPoppler(ocrCfg, logger)
	avail := ocr.Probe(ctx, ocrCfg, logger)

	var direct extract.DirectExtractor = poppler
	if cfg.OCR.Direct == "native" || !avail.Pdftotext {
		direct = ocr.NewNativeExtractor(logger)
	}
	var pageOCR core.PageOCR
	if avail.OCR() {
		pageOCR = extract.NewOCRAdapter(poppler, ocr.NewTesseract(ocrCfg, logger), cfg.OCR.MaxPages, logger)
	} else if *ocrOnly {
		logger.Error("OCR tools not available", "missing", avail.Missing)
		os.Exit(1)
	}

	proc := core.NewProcessor(logger, hasher, nil, direct, pageOCR, core.ProcessorConfig{
		Plan: strategy.Select(pageOCR == nil, *ocrOnly),
		Thresholds: strategy.Thresholds{
			MinTextChars:    cfg.Pipeline.MinTextChars,
			MinCharsPerPage: cfg.Pipeline.MinCharsPerPage,
		},
		Force:      true,
		ScratchDir: cfg.OCR.ScratchDir,
	})

	out := proc.Process(ctx, path)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out.Result); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	if !out.Result.Success {
		os.Exit(3)
	}
}
