package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
)

// DecodeImage decodes any registered raster format (png, jpeg, gif)
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", apperrors.NewEncodingError("failed to decode image", err)
	}
	return img, format, nil
}

// EncodePNG serializes an image as PNG
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, apperrors.NewEncodingError("no image to encode", nil)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperrors.NewEncodingError("failed to encode image as PNG", err)
	}
	return buf.Bytes(), nil
}

// EncodePNGBase64 is the transport encoding sent to the model
func EncodePNGBase64(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePNGBase64 reverses EncodePNGBase64
func DecodePNGBase64(encoded string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.NewEncodingError("invalid base64 image payload", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewEncodingError("invalid PNG payload", err)
	}
	return img, nil
}

// Placeholder is the blank image a session starts with
func Placeholder() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 10, 10))
}

func describeBounds(img image.Image) string {
	b := img.Bounds()
	return fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
}
