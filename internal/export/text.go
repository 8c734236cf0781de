package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
)

var rule = strings.Repeat("=", 80)

// writeText produces the plain-text report: a title, then one block per
// record with its metadata and either the text or the error.
func (s *Service) writeText(ctx context.Context, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "PDF Text Extraction Results\n%s\n\n", rule)

	n := 0
	err := s.source.Export(ctx, func(r entity.ExtractionResult) error {
		fmt.Fprintf(bw, "FILE: %s\n", r.FilePath)
		fmt.Fprintf(bw, "METHOD: %s\n", r.Method)
		fmt.Fprintf(bw, "SUCCESS: %t\n", r.Success)
		fmt.Fprintf(bw, "TIMESTAMP: %s\n", r.Timestamp.UTC().Format(time.RFC3339))
		fmt.Fprintf(bw, "%s\n", rule)
		switch {
		case r.Success && r.TextOrEmpty() != "":
			bw.WriteString(r.TextOrEmpty())
		case r.ErrorMessage != nil:
			fmt.Fprintf(bw, "ERROR: %s\n", *r.ErrorMessage)
		}
		fmt.Fprintf(bw, "\n%s\n\n", rule)
		n++
		return ctx.Err()
	})
	if err != nil {
		return n, err
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("write text export: %w", err)
	}
	return n, nil
}
