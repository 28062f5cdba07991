package analyzer

// InspectOptions configures screenshot and critique inspection
type InspectOptions struct {
	// OCR
	OCRMode      bool
	OCRLanguage  string
	ExcerptWords int

	// Metrics are computed on at most this many sampled pixels
	MaxSampledPixels int

	// Screenshot thresholds
	DarkLuminance float64
	FlatContrast  float64

	// Feedback checks
	Cliches         []string
	ClicheTolerance float64 // allowed edit distance as a fraction of the phrase length
	RepeatWarnAbove float64
	SkipRepeatCheck bool
	SkipClicheCheck bool
}

// DefaultOptions returns default inspection options
func DefaultOptions() InspectOptions {
	return InspectOptions{
		OCRMode:          false,
		OCRLanguage:      "eng",
		ExcerptWords:     30,
		MaxSampledPixels: 250000,
		DarkLuminance:    0.15,
		FlatContrast:     0.02,
		Cliches:          DefaultCliches(),
		ClicheTolerance:  0.2,
		RepeatWarnAbove:  0.6,
	}
}

// OCROptions returns options with text extraction enabled
func OCROptions() InspectOptions {
	return DefaultOptions().WithOCR("eng")
}

// WithOCR enables text extraction in the given tesseract language
func (opts InspectOptions) WithOCR(language string) InspectOptions {
	opts.OCRMode = true
	if language != "" {
		opts.OCRLanguage = language
	}
	return opts
}

// WithFastMode skips the feedback checks
func (opts InspectOptions) WithFastMode() InspectOptions {
	opts.SkipRepeatCheck = true
	opts.SkipClicheCheck = true
	opts.MaxSampledPixels = 20000
	return opts
}
