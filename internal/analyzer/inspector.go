// Package analyzer gathers insights about a screenshot and the critique it received.
package analyzer

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/webcritic-go/internal/logger"
	"github.com/anime-shed/webcritic-go/pkg/models"
	"github.com/anime-shed/webcritic-go/pkg/validation"
)

// Inspector produces the Inspection shown alongside a critique
type Inspector struct {
	opts      InspectOptions
	extractor TextExtractor
	validator *validation.ScoreValidator
}

// NewInspector creates an inspector. A nil extractor disables OCR.
func NewInspector(opts InspectOptions, extractor TextExtractor) *Inspector {
	if extractor == nil || !opts.OCRMode {
		extractor = NewNoopExtractor()
	}
	return &Inspector{
		opts:      opts,
		extractor: extractor,
		validator: validation.NewScoreValidator(),
	}
}

// InspectScreenshot measures the image and, when enabled, extracts its text.
// OCR failures are logged and reported as warnings, never returned.
func (i *Inspector) InspectScreenshot(ctx context.Context, img image.Image) models.Inspection {
	var insp models.Inspection
	if img == nil {
		return insp
	}

	b := img.Bounds()
	insp.Width, insp.Height = b.Dx(), b.Dy()

	m := calculateMetrics(img, i.opts.MaxSampledPixels)
	insp.Luminance = round3(m.luminance)
	insp.Contrast = round3(m.contrast)
	insp.Saturation = round3(m.saturation)

	for _, issue := range i.validator.ValidateScreenshot(insp.Width, insp.Height) {
		insp.Warnings = append(insp.Warnings, issue.Message)
	}
	if m.luminance < i.opts.DarkLuminance {
		insp.Warnings = append(insp.Warnings, "Screenshot is very dark")
	}
	if m.contrast < i.opts.FlatContrast {
		insp.Warnings = append(insp.Warnings, "Screenshot is almost a single flat colour")
	}

	if i.opts.OCRMode {
		text, err := i.extractor.ExtractText(ctx, img)
		if err != nil {
			logger.WithError(err).Warn("Screenshot text extraction failed")
			insp.Warnings = append(insp.Warnings, "Text extraction failed")
		} else {
			words := strings.Fields(text)
			insp.TextWords = len(words)
			insp.TextExcerpt = excerpt(words, i.opts.ExcerptWords)
		}
	}

	return insp
}

// InspectCritique adds feedback checks to an inspection produced by InspectScreenshot
func (i *Inspector) InspectCritique(insp models.Inspection, result models.CritiqueResult, previousFeedback string) models.Inspection {
	issues := i.validator.ValidateCritique(result)
	if len(issues) > 0 {
		entry := logger.WithFields(logrus.Fields{
			"issues": len(issues),
			"scores": fmt.Sprintf("%d/%d/%d/%d", result.Design, result.Usability, result.Originality, result.Overall),
		})
		if i.validator.HasCriticalIssues(issues) {
			entry.Error("Critique outside the expected shape")
		} else {
			entry.Warn("Critique outside the expected shape")
		}
	}
	insp.Warnings = append(insp.Warnings, i.validator.ConvertIssuesToMessages(issues)...)

	if !i.opts.SkipClicheCheck {
		insp.ClicheHits = DetectCliches(result.Feedback, i.opts.Cliches, i.opts.ClicheTolerance)
		if len(insp.ClicheHits) > 0 {
			insp.Warnings = append(insp.Warnings,
				fmt.Sprintf("Feedback used a banned cliche: %s", strings.Join(insp.ClicheHits, ", ")))
		}
	}

	if !i.opts.SkipRepeatCheck && previousFeedback != "" {
		insp.RepeatRatio = round3(RepeatRatio(previousFeedback, result.Feedback))
		if insp.RepeatRatio > i.opts.RepeatWarnAbove {
			insp.Warnings = append(insp.Warnings, "Feedback largely repeats the previous critique")
		}
	}

	return insp
}

// Close releases the text extractor
func (i *Inspector) Close() error {
	return i.extractor.Close()
}

func excerpt(words []string, n int) string {
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " ..."
}

func round3(f float64) float64 {
	return float64(int64(f*1000+0.5)) / 1000
}
