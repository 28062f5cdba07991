package storage

import (
	"context"
	"image"
	"os"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
)

// FileImageSource reads screenshots from the local filesystem
type FileImageSource struct{}

// NewFileImageSource creates a local file source
func NewFileImageSource() *FileImageSource {
	return &FileImageSource{}
}

func (FileImageSource) FetchImage(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("screenshot not found", err)
		}
		return nil, apperrors.NewInternalError("failed to open screenshot", err)
	}
	defer f.Close()

	img, _, err := DecodeImage(f)
	return img, err
}
