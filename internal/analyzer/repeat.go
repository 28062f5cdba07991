package analyzer

import (
	"github.com/codycollier/wer"
)

// RepeatRatio measures how much of current repeats previous, as one minus
// the word error rate of current against previous. 0 means nothing in common
// or no previous feedback; 1 means identical.
func RepeatRatio(previous, current string) float64 {
	ref := tokenize(previous)
	cand := tokenize(current)
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}

	rate, _ := wer.WER(ref, cand)
	ratio := 1 - float64(rate)
	if ratio < 0 {
		return 0
	}
	return ratio
}
