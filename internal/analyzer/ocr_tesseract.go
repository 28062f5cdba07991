//go:build ocr

package analyzer

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/anime-shed/webcritic-go/internal/storage"
)

// tesseractExtractor wraps a single gosseract client. The client is not safe
// for concurrent use, so calls are serialised.
type tesseractExtractor struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewOCRExtractor creates a tesseract backed extractor for language
func NewOCRExtractor(language string) (TextExtractor, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("set OCR language %q: %w", language, err)
	}
	return &tesseractExtractor{client: client}, nil
}

func (t *tesseractExtractor) ExtractText(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := storage.EncodePNG(img)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("load image into tesseract: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract text extraction: %w", err)
	}
	return text, nil
}

func (t *tesseractExtractor) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
