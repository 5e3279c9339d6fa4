package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/lectra-api/api/types"
	"github.com/killallgit/lectra-api/internal/services/pipeline"
	"github.com/killallgit/lectra-api/pkg/audio"
)

// Health handles the transcription liveness probe
// @Summary      Transcription service health
// @Description  Liveness probe for the transcription routes. Always 200 when reachable.
// @Tags         transcription
// @Produce      json
// @Success      200 {object} types.HealthResponse
// @Router       /api/transcription/health [get]
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, types.HealthResponse{
			Status:    types.StatusSuccess,
			Message:   "Transcription service is running",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Transcribe handles audio uploads
// @Summary      Transcribe an audio file
// @Description  Upload an audio file as multipart field "audio". The file is recognized, stored, and a history row
// @Description  is created. Empty recognition results are returned with an explanatory message and are not stored.
// @Description  When the row cannot be stored the text is still returned together with a warning.
// @Tags         transcription
// @Accept       multipart/form-data
// @Produce      json
// @Param        audio formData file true "Audio file (max 10MB)"
// @Param        language_code formData string false "BCP-47 language code" default(en-US)
// @Success      200 {object} types.TranscribeResponse
// @Failure      400 {object} types.ErrorResponse "Missing, empty or unsupported file, or invalid language code"
// @Failure      413 {object} types.ErrorResponse "File too large"
// @Failure      429 {object} types.ErrorResponse "Rate limit exceeded"
// @Failure      500 {object} types.ErrorResponse "Recognition failed"
// @Router       /api/transcription/transcribe [post]
func Transcribe(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps == nil || deps.Pipeline == nil {
			types.SendInternalError(c, "Transcription service not available")
			return
		}

		upload, ok := readUpload(c)
		if !ok {
			return
		}

		// A client hanging up does not cancel the pipeline
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), deps.TranscribeTimeoutOrDefault())
		defer cancel()

		result, err := deps.Pipeline.Process(ctx, upload)
		if err != nil {
			var verr *pipeline.ValidationError
			if errors.As(err, &verr) {
				types.SendFail(c, verr.StatusCode, verr.Message)
				return
			}
			log.Printf("[ERROR] Transcription of %s failed: %v", upload.FileName, err)
			types.SendInternalError(c, "Failed to transcribe audio")
			return
		}

		c.JSON(http.StatusOK, types.NewTranscribeResponse(result))
	}
}

func readUpload(c *gin.Context) (*pipeline.Upload, bool) {
	header, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			types.SendFail(c, http.StatusRequestEntityTooLarge, tooLargeMessage())
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			types.SendBadRequest(c, "No audio file uploaded")
		default:
			types.SendBadRequest(c, fmt.Sprintf("File upload error: %v", err))
		}
		return nil, false
	}

	if audio.TooLarge(header.Size) {
		types.SendFail(c, http.StatusRequestEntityTooLarge, tooLargeMessage())
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		types.SendBadRequest(c, fmt.Sprintf("File upload error: %v", err))
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		types.SendBadRequest(c, fmt.Sprintf("File upload error: %v", err))
		return nil, false
	}

	return &pipeline.Upload{
		FileName:     header.Filename,
		MimeType:     audio.DetectMimeType(header.Header.Get("Content-Type"), data),
		Data:         data,
		LanguageCode: c.PostForm("language_code"),
	}, true
}

func tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB", audio.MaxUploadBytes/(1024*1024))
}
