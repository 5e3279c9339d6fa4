package types

import (
	"github.com/killallgit/lectra-api/internal/models"
	"github.com/killallgit/lectra-api/internal/services/pipeline"
)

// Status values carried by every response body
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is returned for 4xx (status "fail") and 5xx (status "error")
type ErrorResponse struct {
	Status  string `json:"status" example:"fail"`
	Message string `json:"message" example:"Transcription not found"`
}

// HealthResponse is returned by the liveness probes
type HealthResponse struct {
	Status    string `json:"status" example:"success"`
	Message   string `json:"message" example:"Transcription service is running"`
	Timestamp string `json:"timestamp" example:"2025-01-01T00:00:00Z"`
}

// TranscribeResponse is returned by POST /api/transcription/transcribe.
// ID is omitted when nothing was persisted.
type TranscribeResponse struct {
	Status        string             `json:"status" example:"success"`
	Message       string             `json:"message,omitempty" example:"No speech detected in the audio file"`
	Transcription string             `json:"transcription" example:"hello world"`
	ID            string             `json:"id,omitempty" example:"3f1c2a9e-8d7b-4c6a-9e1f-2b3c4d5e6f70"`
	AudioURL      *string            `json:"audioUrl"`
	Metadata      *pipeline.Metadata `json:"metadata,omitempty"`
	Warning       string             `json:"warning,omitempty"`
}

// NewTranscribeResponse shapes a pipeline result
func NewTranscribeResponse(r *pipeline.Result) TranscribeResponse {
	return TranscribeResponse{
		Status:        StatusSuccess,
		Message:       r.Message,
		Transcription: r.Transcription,
		ID:            r.ID,
		AudioURL:      r.AudioURL,
		Metadata:      r.Metadata,
		Warning:       r.Warning,
	}
}

// Pagination describes one offset window
type Pagination struct {
	Limit   int   `json:"limit" example:"20"`
	Offset  int   `json:"offset" example:"0"`
	Total   int64 `json:"total" example:"25"`
	HasMore bool  `json:"hasMore" example:"true"`
}

// NewPagination computes hasMore from the requested window
func NewPagination(limit, offset int, total int64) Pagination {
	return Pagination{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasMore: int64(offset+limit) < total,
	}
}

// HistoryResponse is a page of transcriptions
type HistoryResponse struct {
	Status     string                 `json:"status" example:"success"`
	Data       []models.Transcription `json:"data"`
	Pagination Pagination             `json:"pagination"`
	Query      string                 `json:"query,omitempty"`
}

// TranscriptionResponse wraps a single transcription
type TranscriptionResponse struct {
	Status string                `json:"status" example:"success"`
	Data   *models.Transcription `json:"data"`
}

// UpdateTranscriptionRequest is the PUT body. At least one field is required.
type UpdateTranscriptionRequest struct {
	TranscriptionText *string `json:"transcription_text,omitempty" example:"corrected text"`
	LanguageCode      *string `json:"language_code,omitempty" example:"en-US"`
	Status            *string `json:"status,omitempty" example:"completed"`
}
