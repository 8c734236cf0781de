package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
)

// Source streams stored results in ascending id order.
type Source interface {
	Export(ctx context.Context, fn func(entity.ExtractionResult) error) error
}

// Format names an export encoding.
type Format string

const (
	FormatText  Format = "txt"
	FormatJSONL Format = "jsonl"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat accepts a format name or a file name with a known extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	switch Format(s) {
	case FormatText, "text":
		return FormatText, nil
	case FormatJSONL, "ndjson":
		return FormatJSONL, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Options tune an export.
type Options struct {
	IncludeText bool // jsonl only; txt always carries text
}

// Service writes the store out in one of the supported formats.
type Service struct {
	source Source
	logger *slog.Logger
}

func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger}
}

// Write encodes every stored record to w and returns how many were written.
func (s *Service) Write(ctx context.Context, w io.Writer, format Format, opts Options) (int, error) {
	start := time.Now()
	var (
		n   int
		err error
	)
	switch format {
	case FormatText:
		n, err = s.writeText(ctx, w)
	case FormatJSONL:
		n, err = s.writeJSONL(ctx, w, opts.IncludeText)
	case FormatXLSX:
		n, err = s.writeXLSX(ctx, w)
	default:
		return 0, fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return n, err
	}
	s.logger.Info("export complete",
		"format", string(format),
		"rows", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return n, nil
}
