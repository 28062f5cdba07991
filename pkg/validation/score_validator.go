package validation

import (
	"fmt"

	"github.com/anime-shed/webcritic-go/pkg/models"
)

// ScoreThresholds defines the nominal score scale and screenshot limits
type ScoreThresholds struct {
	MinScore int
	MaxScore int

	// Screenshots smaller than this are unlikely to show a real page
	MinWidth  int
	MinHeight int

	MinFeedbackChars int
}

// DefaultScoreThresholds returns the 1-10 scale used by the persona prompt
func DefaultScoreThresholds() ScoreThresholds {
	return ScoreThresholds{
		MinScore:         1,
		MaxScore:         10,
		MinWidth:         200,
		MinHeight:        150,
		MinFeedbackChars: 1,
	}
}

// ScoreValidator reports critiques that stray from the expected shape.
// It never rejects a critique; issues are surfaced as warnings.
type ScoreValidator struct {
	thresholds ScoreThresholds
}

// NewScoreValidator creates a score validator with default thresholds
func NewScoreValidator() *ScoreValidator {
	return NewScoreValidatorWithThresholds(DefaultScoreThresholds())
}

// NewScoreValidatorWithThresholds creates a score validator with custom thresholds
func NewScoreValidatorWithThresholds(thresholds ScoreThresholds) *ScoreValidator {
	return &ScoreValidator{thresholds: thresholds}
}

// QualityIssue represents a validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error", "warning", "info"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// ValidateCritique checks each score against the scale and the feedback for content
func (sv *ScoreValidator) ValidateCritique(result models.CritiqueResult) []QualityIssue {
	var issues []QualityIssue

	for _, s := range result.Scores() {
		switch {
		case s.Value < 0:
			issues = append(issues, QualityIssue{
				Type:        "score_negative",
				Message:     fmt.Sprintf("%s score %d is negative", s.Label, s.Value),
				Severity:    "error",
				ActualValue: float64(s.Value),
			})
		case s.Value < sv.thresholds.MinScore:
			issues = append(issues, QualityIssue{
				Type:        "score_below_range",
				Message:     fmt.Sprintf("%s score %d is below the %d-%d scale", s.Label, s.Value, sv.thresholds.MinScore, sv.thresholds.MaxScore),
				Severity:    "warning",
				ActualValue: float64(s.Value),
				Threshold:   float64(sv.thresholds.MinScore),
			})
		case s.Value > sv.thresholds.MaxScore:
			issues = append(issues, QualityIssue{
				Type:        "score_above_range",
				Message:     fmt.Sprintf("%s score %d is above the %d-%d scale", s.Label, s.Value, sv.thresholds.MinScore, sv.thresholds.MaxScore),
				Severity:    "warning",
				ActualValue: float64(s.Value),
				Threshold:   float64(sv.thresholds.MaxScore),
			})
		}
	}

	if len([]rune(result.Feedback)) < sv.thresholds.MinFeedbackChars {
		issues = append(issues, QualityIssue{
			Type:      "empty_feedback",
			Message:   "Feedback is empty",
			Severity:  "warning",
			Threshold: float64(sv.thresholds.MinFeedbackChars),
		})
	}

	return issues
}

// ValidateScreenshot flags screenshots too small to critique meaningfully
func (sv *ScoreValidator) ValidateScreenshot(width, height int) []QualityIssue {
	var issues []QualityIssue
	if width < sv.thresholds.MinWidth || height < sv.thresholds.MinHeight {
		issues = append(issues, QualityIssue{
			Type:        "low_resolution",
			Message:     fmt.Sprintf("Screenshot is only %dx%d; the critique may be guesswork", width, height),
			Severity:    "info",
			ActualValue: float64(width * height),
			Threshold:   float64(sv.thresholds.MinWidth * sv.thresholds.MinHeight),
		})
	}
	return issues
}

// ConvertIssuesToMessages converts issues to plain messages
func (sv *ScoreValidator) ConvertIssuesToMessages(issues []QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any error severity issues
func (sv *ScoreValidator) HasCriticalIssues(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}
