package models

import "time"

// CritiqueResult is the structured form of one model reply.
// Scores are nominally 1-10 but are carried exactly as the model wrote them.
type CritiqueResult struct {
	Design      int    `json:"design"`
	Usability   int    `json:"usability"`
	Originality int    `json:"originality"`
	Overall     int    `json:"overall"`
	Feedback    string `json:"feedback"`
}

// Scores returns the four scores in display order
func (c CritiqueResult) Scores() []Score {
	return []Score{
		{Label: "Design", Value: c.Design},
		{Label: "Usability", Value: c.Usability},
		{Label: "Originality", Value: c.Originality},
		{Label: "Overall", Value: c.Overall},
	}
}

// Score is a labelled score used by presenters
type Score struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Inspection holds insights gathered about the screenshot and the reply
type Inspection struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Luminance   float64  `json:"luminance"`
	Contrast    float64  `json:"contrast"`
	Saturation  float64  `json:"saturation"`
	TextWords   int      `json:"text_words,omitempty"`
	TextExcerpt string   `json:"text_excerpt,omitempty"`
	ClicheHits  []string `json:"cliche_hits,omitempty"`
	RepeatRatio float64  `json:"repeat_ratio,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// ErrorInfo is the user visible form of the last failure
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StateSnapshot is a consistent copy of a session's state at one moment
type StateSnapshot struct {
	SessionID     string          `json:"session_id"`
	Processing    bool            `json:"processing"`
	Critique      *CritiqueResult `json:"critique,omitempty"`
	Inspection    *Inspection     `json:"inspection,omitempty"`
	LastError     *ErrorInfo      `json:"last_error,omitempty"`
	ImageWidth    int             `json:"image_width"`
	ImageHeight   int             `json:"image_height"`
	CritiqueCount int             `json:"critique_count"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
