// Package strategy selects how much work the inspector does per screenshot.
package strategy

import (
	"fmt"
	"strings"

	"github.com/anime-shed/webcritic-go/internal/analyzer"
	"github.com/anime-shed/webcritic-go/internal/logger"
)

// Inspection modes accepted by ForMode
const (
	ModeStandard = "standard"
	ModeOCR      = "ocr"
	ModeFast     = "fast"
)

// InspectionStrategy defines the interface for different inspection strategies
type InspectionStrategy interface {
	Options() analyzer.InspectOptions
	GetStrategyName() string
}

// StandardInspectionStrategy measures the screenshot and checks the feedback
type StandardInspectionStrategy struct{}

// NewStandardInspectionStrategy creates a new standard inspection strategy
func NewStandardInspectionStrategy() InspectionStrategy {
	return &StandardInspectionStrategy{}
}

func (s *StandardInspectionStrategy) Options() analyzer.InspectOptions {
	return analyzer.DefaultOptions()
}

// GetStrategyName returns the strategy name
func (s *StandardInspectionStrategy) GetStrategyName() string {
	return "standard_inspection"
}

// OCRInspectionStrategy also extracts the page text
type OCRInspectionStrategy struct {
	language string
}

// NewOCRInspectionStrategy creates a new OCR inspection strategy
func NewOCRInspectionStrategy(language string) InspectionStrategy {
	return &OCRInspectionStrategy{language: language}
}

func (s *OCRInspectionStrategy) Options() analyzer.InspectOptions {
	return analyzer.OCROptions().WithOCR(s.language)
}

// GetStrategyName returns the strategy name
func (s *OCRInspectionStrategy) GetStrategyName() string {
	return "ocr_inspection"
}

// FastInspectionStrategy samples fewer pixels and skips the feedback checks
type FastInspectionStrategy struct{}

// NewFastInspectionStrategy creates a new fast inspection strategy
func NewFastInspectionStrategy() InspectionStrategy {
	return &FastInspectionStrategy{}
}

func (s *FastInspectionStrategy) Options() analyzer.InspectOptions {
	return analyzer.DefaultOptions().WithFastMode()
}

// GetStrategyName returns the strategy name
func (s *FastInspectionStrategy) GetStrategyName() string {
	return "fast_inspection"
}

// ForMode maps a configured mode name onto a strategy
func ForMode(mode, ocrLanguage string) (InspectionStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeStandard:
		return NewStandardInspectionStrategy(), nil
	case ModeOCR:
		return NewOCRInspectionStrategy(ocrLanguage), nil
	case ModeFast:
		return NewFastInspectionStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown inspection mode %q (want %s, %s or %s)", mode, ModeStandard, ModeOCR, ModeFast)
	}
}

// ExtractorFactory builds a text extractor for a tesseract language
type ExtractorFactory func(language string) (analyzer.TextExtractor, error)

// NewInspector builds an inspector for the strategy. When OCR is requested but
// the extractor cannot be created, it falls back to the standard strategy.
func NewInspector(s InspectionStrategy, newExtractor ExtractorFactory) (*analyzer.Inspector, InspectionStrategy) {
	opts := s.Options()
	if !opts.OCRMode {
		return analyzer.NewInspector(opts, nil), s
	}

	extractor, err := newExtractor(opts.OCRLanguage)
	if err != nil {
		logger.WithError(err).WithField("strategy", s.GetStrategyName()).
			Warn("OCR requested but unavailable, continuing without it")
		fallback := NewStandardInspectionStrategy()
		return analyzer.NewInspector(fallback.Options(), nil), fallback
	}
	return analyzer.NewInspector(opts, extractor), s
}
