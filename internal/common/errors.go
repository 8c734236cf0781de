package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel that belongs to e.Code, so errors.Is(err, ErrIO)
// holds for an IO_ERROR whose cause is an *fs.PathError.
func (e *AppError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

// Error codes
const (
	CodeIO         = "IO_ERROR"
	CodeExtraction = "EXTRACTION_ERROR"
	CodeStore      = "STORE_ERROR"
	CodeConfig     = "CONFIG_ERROR"
	CodeTimeout    = "TIMEOUT"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrIO           = errors.New("io error")
	ErrExtraction   = errors.New("extraction failed")
	ErrStore        = errors.New("store error")
	ErrTimeout      = errors.New("document timed out")
)

var codeSentinels = map[string]error{
	CodeIO:         ErrIO,
	CodeExtraction: ErrExtraction,
	CodeStore:      ErrStore,
	CodeConfig:     ErrInvalidInput,
	CodeTimeout:    ErrTimeout,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NewIOError(message string, cause error) *AppError {
	return NewAppError(CodeIO, message, cause)
}

func NewExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtraction, message, cause)
}

func NewStoreError(message string, cause error) *AppError {
	return NewAppError(CodeStore, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}
