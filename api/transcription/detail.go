package transcription

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/lectra-api/api/types"
	"github.com/killallgit/lectra-api/internal/languages"
	"github.com/killallgit/lectra-api/internal/services/transcriptions"
)

// Get returns one transcription
// @Summary      Get a transcription
// @Tags         transcription
// @Produce      json
// @Param        id path string true "Transcription ID"
// @Success      200 {object} types.TranscriptionResponse
// @Failure      404 {object} types.ErrorResponse "Not found or deleted"
// @Failure      500 {object} types.ErrorResponse
// @Router       /api/transcription/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := requireStore(c, deps)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()

		row, err := store.FindByID(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, transcriptions.ErrNotFound) {
				types.SendNotFound(c, "Transcription not found")
				return
			}
			log.Printf("[ERROR] Failed to fetch transcription %s: %v", c.Param("id"), err)
			types.SendInternalError(c, "Failed to fetch transcription")
			return
		}

		c.JSON(http.StatusOK, types.TranscriptionResponse{Status: types.StatusSuccess, Data: row})
	}
}

// Update edits text, language or status
// @Summary      Update a transcription
// @Description  Partial update. At least one of transcription_text, language_code or status is required.
// @Description  Changing the text recomputes the word count.
// @Tags         transcription
// @Accept       json
// @Produce      json
// @Param        id path string true "Transcription ID"
// @Param        request body types.UpdateTranscriptionRequest true "Fields to change"
// @Success      200 {object} types.TranscriptionResponse
// @Failure      400 {object} types.ErrorResponse "No fields or invalid language code"
// @Failure      404 {object} types.ErrorResponse "Not found or deleted"
// @Failure      500 {object} types.ErrorResponse
// @Router       /api/transcription/{id} [put]
func Update(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := requireStore(c, deps)
		if !ok {
			return
		}

		var req types.UpdateTranscriptionRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		patch, msg := toPatch(req)
		if msg != "" {
			types.SendBadRequest(c, msg)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()

		row, err := store.Update(ctx, c.Param("id"), patch)
		if err != nil {
			if errors.Is(err, transcriptions.ErrNotFound) {
				types.SendNotFound(c, "Transcription not found or could not be updated")
				return
			}
			log.Printf("[ERROR] Failed to update transcription %s: %v", c.Param("id"), err)
			types.SendInternalError(c, "Failed to update transcription")
			return
		}

		c.JSON(http.StatusOK, types.TranscriptionResponse{Status: types.StatusSuccess, Data: row})
	}
}

// toPatch returns a non-empty message when the request is invalid. Empty
// strings count as absent except for the text, which may be cleared when
// another field is present.
func toPatch(req types.UpdateTranscriptionRequest) (transcriptions.Patch, string) {
	if isBlank(req.TranscriptionText) && isBlank(req.LanguageCode) && isBlank(req.Status) {
		return transcriptions.Patch{}, "At least one field must be provided for update"
	}

	var patch transcriptions.Patch
	patch.TranscriptionText = req.TranscriptionText

	if !isBlank(req.LanguageCode) {
		if !languages.IsSupported(*req.LanguageCode) {
			return transcriptions.Patch{}, "Invalid language code: " + *req.LanguageCode
		}
		patch.LanguageCode = req.LanguageCode
	}
	if !isBlank(req.Status) {
		patch.Status = req.Status
	}
	return patch, ""
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

// Delete soft-deletes a transcription. The audio blob is kept.
// @Summary      Delete a transcription
// @Description  Soft delete. The row disappears from every read; deleting it again returns 404.
// @Tags         transcription
// @Produce      json
// @Param        id path string true "Transcription ID"
// @Success      200 {object} types.BaseResponse
// @Failure      404 {object} types.ErrorResponse "Not found or already deleted"
// @Failure      500 {object} types.ErrorResponse "Failed to delete transcription"
// @Router       /api/transcription/{id} [delete]
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := requireStore(c, deps)
		if !ok {
			return
		}

		id := c.Param("id")
		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()

		if _, err := store.FindByID(ctx, id); err != nil {
			if errors.Is(err, transcriptions.ErrNotFound) {
				types.SendNotFound(c, "Transcription not found")
				return
			}
			log.Printf("[ERROR] Failed to fetch transcription %s before delete: %v", id, err)
			types.SendInternalError(c, "Failed to delete transcription")
			return
		}

		if err := store.SoftDelete(ctx, id); err != nil {
			log.Printf("[ERROR] Failed to delete transcription %s: %v", id, err)
			types.SendInternalError(c, "Failed to delete transcription")
			return
		}

		log.Printf("[INFO] Soft-deleted transcription %s", id)
		c.JSON(http.StatusOK, types.BaseResponse{
			Status:  types.StatusSuccess,
			Message: "Transcription deleted successfully",
		})
	}
}
