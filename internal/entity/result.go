package entity

import (
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
)

// ExtractionResult is one attempt at extracting text from a document.
// It is built by a worker, handed to the store writer and never mutated after.
type ExtractionResult struct {
	ID                    int64            `json:"id,omitempty"`
	FilePath              string           `json:"file_path"`
	FileHash              *string          `json:"file_hash,omitempty"`
	FileSize              *int64           `json:"file_size,omitempty"`
	Method                constants.Method `json:"extraction_method"`
	Text                  *string          `json:"extracted_text,omitempty"`
	PageCount             *int             `json:"page_count,omitempty"`
	ProcessingTimeSeconds float64          `json:"processing_time_seconds"`
	Timestamp             time.Time        `json:"timestamp"`
	Success               bool             `json:"success"`
	ErrorMessage          *string          `json:"error_message,omitempty"`

	// Warnings are per-page problems that did not fail the document. Not persisted.
	Warnings []string `json:"-"`
}

// Fingerprint identifies document content.
type Fingerprint struct {
	Hash string
	Size int64
}

// NewSuccess builds a successful result.
func NewSuccess(path string, fp *Fingerprint, method constants.Method, text string, pages int, elapsed time.Duration) ExtractionResult {
	r := ExtractionResult{
		FilePath:              path,
		Method:                method,
		Text:                  &text,
		PageCount:             &pages,
		ProcessingTimeSeconds: elapsed.Seconds(),
		Timestamp:             time.Now().UTC(),
		Success:               true,
	}
	r.setFingerprint(fp)
	return r
}

// NewFailure builds a method=error result. fp may be nil when hashing itself failed.
func NewFailure(path string, fp *Fingerprint, msg string, elapsed time.Duration) ExtractionResult {
	r := ExtractionResult{
		FilePath:              path,
		Method:                constants.MethodError,
		ProcessingTimeSeconds: elapsed.Seconds(),
		Timestamp:             time.Now().UTC(),
		ErrorMessage:          &msg,
	}
	r.setFingerprint(fp)
	return r
}

func (r *ExtractionResult) setFingerprint(fp *Fingerprint) {
	if fp == nil {
		return
	}
	h, s := fp.Hash, fp.Size
	r.FileHash = &h
	r.FileSize = &s
}

// TextOrEmpty returns the extracted text or "".
func (r ExtractionResult) TextOrEmpty() string {
	if r.Text == nil {
		return ""
	}
	return *r.Text
}

// ErrorOrEmpty returns the error message or "".
func (r ExtractionResult) ErrorOrEmpty() string {
	if r.ErrorMessage == nil {
		return ""
	}
	return *r.ErrorMessage
}

// HashOrEmpty returns the content hash or "".
func (r ExtractionResult) HashOrEmpty() string {
	if r.FileHash == nil {
		return ""
	}
	return *r.FileHash
}

// Demote turns a result into a failure, keeping its identity and timing.
// Used when the store refuses to persist a record.
func (r ExtractionResult) Demote(msg string) ExtractionResult {
	out := r
	out.Method = constants.MethodError
	out.Success = false
	out.Text = nil
	out.ErrorMessage = &msg
	return out
}
