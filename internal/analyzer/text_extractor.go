package analyzer

import (
	"context"
	"errors"
	"image"
)

// ErrOCRUnavailable is returned when the binary was built without tesseract support
var ErrOCRUnavailable = errors.New("OCR support not compiled in (build with -tags ocr)")

// TextExtractor reads visible text out of a screenshot
type TextExtractor interface {
	ExtractText(ctx context.Context, img image.Image) (string, error)
	Close() error
}

type noopExtractor struct{}

// NewNoopExtractor returns an extractor that finds no text
func NewNoopExtractor() TextExtractor {
	return noopExtractor{}
}

func (noopExtractor) ExtractText(context.Context, image.Image) (string, error) { return "", nil }

func (noopExtractor) Close() error { return nil }
