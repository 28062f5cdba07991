// Package critique turns the model's loosely formatted reply into a CritiqueResult.
package critique

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
	"github.com/anime-shed/webcritic-go/pkg/models"
)

const (
	labelDesign      = "design"
	labelUsability   = "usability"
	labelOriginality = "originality"
	labelOverall     = "overall"
	labelFeedback    = "feedback"
)

var scoreLabels = []string{labelDesign, labelUsability, labelOriginality, labelOverall}

type line struct {
	label string
	value string
	ok    bool
}

// Parse extracts the four scores and the feedback text from a model reply.
//
// Lines are matched by label, not position, so reordering and markdown
// decoration such as "**Design:** 4" are tolerated. Score values are not
// range checked.
func Parse(text string) (models.CritiqueResult, error) {
	var result models.CritiqueResult

	if strings.TrimSpace(text) == "" {
		return result, apperrors.NewParseError("empty reply", nil)
	}

	rawLines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if countNonBlank(rawLines) < 4 {
		return result, apperrors.NewParseError(
			fmt.Sprintf("reply has %d lines, expected at least 4", countNonBlank(rawLines)), nil)
	}

	scores := make(map[string]int, len(scoreLabels))
	var feedback []string
	inFeedback := false
	sawFeedback := false

	for _, raw := range rawLines {
		l := splitLine(raw)

		if inFeedback {
			if l.ok && isScoreLabel(l.label) {
				if _, seen := scores[l.label]; !seen {
					if v, err := strconv.Atoi(scoreValue(l.value)); err == nil {
						scores[l.label] = v
						inFeedback = false
						continue
					}
				}
			}
			feedback = append(feedback, raw)
			continue
		}

		if !l.ok {
			continue
		}

		switch {
		case isScoreLabel(l.label):
			if _, seen := scores[l.label]; seen {
				continue
			}
			v, err := strconv.Atoi(scoreValue(l.value))
			if err != nil {
				return result, apperrors.NewParseError(
					fmt.Sprintf("%s score %q is not an integer", titleCase(l.label), l.value), err)
			}
			scores[l.label] = v
		case l.label == labelFeedback && !sawFeedback:
			sawFeedback = true
			inFeedback = true
			feedback = append(feedback, l.value)
		}
	}

	for _, label := range scoreLabels {
		if _, ok := scores[label]; !ok {
			return result, apperrors.NewParseError(fmt.Sprintf("missing %s score", titleCase(label)), nil)
		}
	}
	if !sawFeedback {
		return result, apperrors.NewParseError("missing Feedback: marker", nil)
	}

	result.Design = scores[labelDesign]
	result.Usability = scores[labelUsability]
	result.Originality = scores[labelOriginality]
	result.Overall = scores[labelOverall]
	result.Feedback = strings.TrimSpace(strings.Join(feedback, "\n"))
	return result, nil
}

// splitLine strips decoration and splits a line on its first colon
func splitLine(raw string) line {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "*-#> \t")
	idx := strings.Index(s, ":")
	if idx < 0 {
		return line{}
	}
	label := strings.ToLower(strings.Trim(strings.TrimSpace(s[:idx]), "*_ "))
	value := strings.TrimSpace(strings.TrimLeft(s[idx+1:], "*_ \t"))
	return line{label: label, value: value, ok: true}
}

func scoreValue(value string) string {
	return strings.TrimSpace(strings.TrimRight(value, "*_ \t"))
}

func isScoreLabel(label string) bool {
	for _, l := range scoreLabels {
		if l == label {
			return true
		}
	}
	return false
}

func countNonBlank(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

func titleCase(label string) string {
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
