//go:build !ocr

package analyzer

// NewOCRExtractor reports that OCR is unavailable in this build
func NewOCRExtractor(language string) (TextExtractor, error) {
	return nil, ErrOCRUnavailable
}
