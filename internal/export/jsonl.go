package export

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
)

//go:embed record.schema.json
var recordSchema []byte

// writeJSONL writes one JSON object per line. Each line is checked against
// the record schema so consumers can rely on its shape.
func (s *Service) writeJSONL(ctx context.Context, w io.Writer, includeText bool) (int, error) {
	schema, err := common.CompileSchema("record.schema.json", recordSchema)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(w)

	n := 0
	err = s.source.Export(ctx, func(r entity.ExtractionResult) error {
		if !includeText {
			r.Text = nil
		}
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", r.ID, err)
		}
		if err := schema.ValidateJSON(line); err != nil {
			return common.NewAppError(common.CodeStore, fmt.Sprintf("record %d", r.ID), err)
		}
		bw.Write(line)
		bw.WriteByte('\n')
		n++
		return ctx.Err()
	})
	if err != nil {
		return n, err
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("write jsonl export: %w", err)
	}
	return n, nil
}
