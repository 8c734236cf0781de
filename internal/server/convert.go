package server

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
)

// previewChars is how much text a search hit carries unless the caller asks for all of it.
const previewChars = 200

func resultToStruct(r entity.ExtractionResult, textLimit int) (*structpb.Struct, error) {
	m := map[string]any{
		"id":                      float64(r.ID),
		"file_path":               r.FilePath,
		"extraction_method":       string(r.Method),
		"processing_time_seconds": r.ProcessingTimeSeconds,
		"timestamp":               r.Timestamp.UTC().Format(time.RFC3339Nano),
		"success":                 r.Success,
	}
	if r.FileHash != nil {
		m["file_hash"] = *r.FileHash
	}
	if r.FileSize != nil {
		m["file_size"] = float64(*r.FileSize)
	}
	if r.PageCount != nil {
		m["page_count"] = float64(*r.PageCount)
	}
	if r.Text != nil {
		m["extracted_text"] = preview(*r.Text, textLimit)
	}
	if r.ErrorMessage != nil {
		m["error_message"] = *r.ErrorMessage
	}
	return structpb.NewStruct(m)
}

func resultsToStruct(rs []entity.ExtractionResult, textLimit int) (*structpb.Struct, error) {
	items := make([]any, 0, len(rs))
	for _, r := range rs {
		s, err := resultToStruct(r, textLimit)
		if err != nil {
			return nil, err
		}
		items = append(items, s.AsMap())
	}
	return structpb.NewStruct(map[string]any{"results": items})
}

func structToResult(s *structpb.Struct) (entity.ExtractionResult, error) {
	f := s.GetFields()
	r := entity.ExtractionResult{
		ID:                    int64(f["id"].GetNumberValue()),
		FilePath:              f["file_path"].GetStringValue(),
		Method:                constants.Method(f["extraction_method"].GetStringValue()),
		ProcessingTimeSeconds: f["processing_time_seconds"].GetNumberValue(),
		Success:               f["success"].GetBoolValue(),
	}
	if ts := f["timestamp"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return r, fmt.Errorf("timestamp %q: %w", ts, err)
		}
		r.Timestamp = t
	}
	if v, ok := f["file_hash"]; ok {
		h := v.GetStringValue()
		r.FileHash = &h
	}
	if v, ok := f["file_size"]; ok {
		n := int64(v.GetNumberValue())
		r.FileSize = &n
	}
	if v, ok := f["page_count"]; ok {
		n := int(v.GetNumberValue())
		r.PageCount = &n
	}
	if v, ok := f["extracted_text"]; ok {
		t := v.GetStringValue()
		r.Text = &t
	}
	if v, ok := f["error_message"]; ok {
		e := v.GetStringValue()
		r.ErrorMessage = &e
	}
	return r, nil
}

func structToResults(s *structpb.Struct) ([]entity.ExtractionResult, error) {
	list := s.GetFields()["results"].GetListValue().GetValues()
	out := make([]entity.ExtractionResult, 0, len(list))
	for _, v := range list {
		r, err := structToResult(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func statsToStruct(st entity.StoreStats) (*structpb.Struct, error) {
	byMethod := map[string]any{}
	for m, n := range st.ByMethod {
		byMethod[string(m)] = float64(n)
	}
	return structpb.NewStruct(map[string]any{
		"total":                  float64(st.Total),
		"successful":             float64(st.Successful),
		"failed":                 float64(st.Failed),
		"success_rate":           st.SuccessRate(),
		"avg_processing_seconds": st.AvgProcessingSeconds,
		"by_method":              byMethod,
	})
}

func structToStats(s *structpb.Struct) entity.StoreStats {
	f := s.GetFields()
	st := entity.StoreStats{
		Total:                int64(f["total"].GetNumberValue()),
		Successful:           int64(f["successful"].GetNumberValue()),
		Failed:               int64(f["failed"].GetNumberValue()),
		AvgProcessingSeconds: f["avg_processing_seconds"].GetNumberValue(),
		ByMethod:             map[constants.Method]int64{},
	}
	for k, v := range f["by_method"].GetStructValue().GetFields() {
		st.ByMethod[constants.Method(k)] = int64(v.GetNumberValue())
	}
	return st
}

// intField reads an optional whole number from a request.
func intField(s *structpb.Struct, name string) (int, bool) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, true
	}
	n := v.GetNumberValue()
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum || n != math.Trunc(n) {
		return 0, false
	}
	return int(n), true
}

func preview(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
