// Package ui renders critiques for the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/anime-shed/webcritic-go/pkg/models"
)

const (
	DefaultWidth = 72
	minWidth     = 40
	maxScore     = 10
)

// RenderSnapshot draws the score cards, feedback, inspection notes and last error
func RenderSnapshot(snap models.StateSnapshot, width int) string {
	if width < minWidth {
		width = DefaultWidth
	}
	inner := width - 4

	var sections []string
	sections = append(sections, titleStyle.Render("webcritic"))

	if snap.Processing {
		sections = append(sections, mutedStyle.Render("Processing..."))
	}

	if snap.Critique != nil {
		sections = append(sections, renderScores(*snap.Critique, inner))
		sections = append(sections, cardStyle.Width(inner).Render(
			feedbackStyle.Width(inner-2).Render(snap.Critique.Feedback)))
	} else if !snap.Processing && snap.LastError == nil {
		sections = append(sections, mutedStyle.Render("No critique yet."))
	}

	if snap.Inspection != nil {
		if notes := renderInspection(*snap.Inspection); notes != "" {
			sections = append(sections, notes)
		}
	}

	if snap.LastError != nil {
		sections = append(sections, errorStyle.Render(
			fmt.Sprintf("Error (%s): %s", snap.LastError.Type, snap.LastError.Message)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderScores(result models.CritiqueResult, width int) string {
	barWidth := width - 12 - 8
	bar := progress.New(
		progress.WithGradient("#EF4444", "#10B981"),
		progress.WithoutPercentage(),
		progress.WithWidth(barWidth),
	)

	rows := make([]string, 0, 4)
	for _, s := range result.Scores() {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center,
			labelStyle.Render(s.Label),
			bar.ViewAs(gaugeFraction(s.Value)),
			scoreStyle(s.Value).Render(fmt.Sprintf(" %2d/%d", s.Value, maxScore)),
		))
	}
	return cardStyle.Width(width).Render(strings.Join(rows, "\n"))
}

// gaugeFraction clamps a score to 0..10 for drawing only; the value shown is unchanged
func gaugeFraction(score int) float64 {
	switch {
	case score < 0:
		return 0
	case score > maxScore:
		return 1
	default:
		return float64(score) / maxScore
	}
}

func renderInspection(insp models.Inspection) string {
	var lines []string
	if insp.Width > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Screenshot %dx%d", insp.Width, insp.Height)))
	}
	if insp.TextExcerpt != "" {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Text (%d words): %s", insp.TextWords, insp.TextExcerpt)))
	}
	for _, w := range insp.Warnings {
		lines = append(lines, warningStyle.Render("! "+w))
	}
	return strings.Join(lines, "\n")
}

// RenderPlain is the colourless form used when output is not a terminal
func RenderPlain(snap models.StateSnapshot) string {
	var b strings.Builder
	if snap.Critique != nil {
		for _, s := range snap.Critique.Scores() {
			fmt.Fprintf(&b, "%s: %d\n", s.Label, s.Value)
		}
		fmt.Fprintf(&b, "Feedback: %s\n", snap.Critique.Feedback)
	}
	if snap.Inspection != nil {
		for _, w := range snap.Inspection.Warnings {
			fmt.Fprintf(&b, "warning: %s\n", w)
		}
	}
	if snap.LastError != nil {
		fmt.Fprintf(&b, "error (%s): %s\n", snap.LastError.Type, snap.LastError.Message)
	}
	return b.String()
}
