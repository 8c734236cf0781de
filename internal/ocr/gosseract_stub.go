//go:build !gosseract

package ocr

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
)

// GosseractAvailable reports whether this binary links libtesseract.
const GosseractAvailable = false

// ErrNoGosseract is returned when the in-process engine is requested from a
// binary built without the gosseract tag.
var ErrNoGosseract = errors.New("ocr engine gosseract requires building with -tags gosseract")

type GosseractRecognizer struct{}

func NewGosseractRecognizer(Config, *slog.Logger) (*GosseractRecognizer, error) {
	return nil, ErrNoGosseract
}

func (*GosseractRecognizer) Recognize(context.Context, extract.Image) (string, error) {
	return "", ErrNoGosseract
}
