package export

import (
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
)

// maxCellChars is the most characters Excel keeps in one cell.
const maxCellChars = 32767

const sheet = "Results"

var headers = []string{
	"ID",
	"File Path",
	"Method",
	"Success",
	"Pages",
	"Seconds",
	"Timestamp",
	"Error",
	"Text",
}

// writeXLSX writes a workbook with one row per record.
func (s *Service) writeXLSX(ctx context.Context, w io.Writer) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return 0, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	err := s.source.Export(ctx, func(r entity.ExtractionResult) error {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.ID)
		write(2, r.FilePath)
		write(3, string(r.Method))
		write(4, r.Success)
		if r.PageCount != nil {
			write(5, *r.PageCount)
		}
		write(6, r.ProcessingTimeSeconds)
		write(7, r.Timestamp.UTC().Format(time.RFC3339))
		write(8, r.ErrorOrEmpty())
		write(9, truncate(r.TextOrEmpty(), maxCellChars))
		row++
		return ctx.Err()
	})
	if err != nil {
		return row - 2, err
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 60)
	_ = f.SetColWidth(sheet, "C", "F", 10)
	_ = f.SetColWidth(sheet, "G", "G", 22)
	_ = f.SetColWidth(sheet, "H", "H", 40)
	_ = f.SetColWidth(sheet, "I", "I", 80)

	if _, err := f.WriteTo(w); err != nil {
		return row - 2, fmt.Errorf("xlsx write: %w", err)
	}
	return row - 2, nil
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 1 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-1]) + "…"
}
