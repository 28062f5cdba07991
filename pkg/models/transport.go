package models

import "time"

// SourceRequest selects a remote screenshot instead of a multipart upload.
// Exactly one of URL or BlobURL must be set.
type SourceRequest struct {
	URL     string `json:"url,omitempty"`
	BlobURL string `json:"blob_url,omitempty"`
}

// SessionResponse is returned when a session is created
type SessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// CritiqueResponse wraps a snapshot with the processing time of a waited request
type CritiqueResponse struct {
	Snapshot          StateSnapshot `json:"snapshot"`
	ProcessingTimeSec float64       `json:"processing_time_sec,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}
