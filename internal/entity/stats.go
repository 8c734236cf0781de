package entity

import (
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
)

// Failure names a document whose attempt ended with method=error.
type Failure struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// RunStats are the counters for one run. Only the orchestrator goroutine mutates them.
type RunStats struct {
	RunID           string        `json:"run_id"`
	Discovered      int           `json:"discovered"`
	Processed       int           `json:"processed"`
	Skipped         int           `json:"skipped"`
	SucceededDirect int           `json:"succeeded_direct"`
	SucceededOCR    int           `json:"succeeded_ocr"`
	Failed          int           `json:"failed"`
	Failures        []Failure     `json:"failures,omitempty"`
	Cancelled       bool          `json:"cancelled"`
	Duration        time.Duration `json:"duration"`
}

// Record accounts for a committed result.
func (s *RunStats) Record(r ExtractionResult) {
	s.Processed++
	switch {
	case r.Success && r.Method == constants.MethodOCR:
		s.SucceededOCR++
	case r.Success:
		s.SucceededDirect++
	default:
		s.Failed++
		s.Failures = append(s.Failures, Failure{Path: r.FilePath, Message: r.ErrorOrEmpty()})
	}
}

// Succeeded is direct plus OCR successes.
func (s RunStats) Succeeded() int {
	return s.SucceededDirect + s.SucceededOCR
}

// StoreStats summarizes everything in the store.
type StoreStats struct {
	Total                int64                      `json:"total"`
	Successful           int64                      `json:"successful"`
	Failed               int64                      `json:"failed"`
	ByMethod             map[constants.Method]int64 `json:"by_method"`
	AvgProcessingSeconds float64                    `json:"avg_processing_seconds"`
}

// SuccessRate is Successful/Total as a percentage; 0 for an empty store.
func (s StoreStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Total) * 100
}
