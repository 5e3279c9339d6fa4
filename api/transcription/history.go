package transcription

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/lectra-api/api/types"
	"github.com/killallgit/lectra-api/internal/models"
	"github.com/killallgit/lectra-api/internal/services/transcriptions"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	storeTimeout    = 10 * time.Second
)

// History returns a page of active transcriptions, newest first
// @Summary      List transcription history
// @Description  Offset-paginated list of transcriptions that have not been deleted, newest first.
// @Tags         transcription
// @Produce      json
// @Param        limit query int false "Page size" default(20) minimum(1) maximum(100)
// @Param        offset query int false "Rows to skip" default(0) minimum(0)
// @Success      200 {object} types.HistoryResponse
// @Failure      400 {object} types.ErrorResponse "Limit or offset out of range"
// @Failure      500 {object} types.ErrorResponse
// @Router       /api/transcription/history [get]
func History(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := requireStore(c, deps)
		if !ok {
			return
		}

		limit, offset, ok := types.ParsePagination(c, defaultPageSize, maxPageSize)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()

		page, err := store.FindAll(ctx, limit, offset)
		if err != nil {
			log.Printf("[ERROR] Failed to list transcriptions: %v", err)
			types.SendInternalError(c, "Failed to fetch transcription history")
			return
		}

		c.JSON(http.StatusOK, types.HistoryResponse{
			Status:     types.StatusSuccess,
			Data:       rowsOrEmpty(page.Rows),
			Pagination: types.NewPagination(limit, offset, page.Total),
		})
	}
}

// Search matches transcriptions by text
// @Summary      Search transcriptions
// @Description  Case-insensitive substring search over transcription text. Same pagination as history.
// @Tags         transcription
// @Produce      json
// @Param        q query string true "Search term"
// @Param        limit query int false "Page size" default(20) minimum(1) maximum(100)
// @Param        offset query int false "Rows to skip" default(0) minimum(0)
// @Success      200 {object} types.HistoryResponse
// @Failure      400 {object} types.ErrorResponse "Missing query or bad pagination"
// @Failure      500 {object} types.ErrorResponse
// @Router       /api/transcription/search [get]
func Search(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := requireStore(c, deps)
		if !ok {
			return
		}

		term := strings.TrimSpace(c.Query("q"))
		if term == "" {
			types.SendBadRequest(c, "Search query is required")
			return
		}

		limit, offset, ok := types.ParsePagination(c, defaultPageSize, maxPageSize)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()

		page, err := store.Search(ctx, term, limit, offset)
		if err != nil {
			log.Printf("[ERROR] Failed to search transcriptions for %q: %v", term, err)
			types.SendInternalError(c, "Failed to search transcriptions")
			return
		}

		c.JSON(http.StatusOK, types.HistoryResponse{
			Status:     types.StatusSuccess,
			Data:       rowsOrEmpty(page.Rows),
			Pagination: types.NewPagination(limit, offset, page.Total),
			Query:      term,
		})
	}
}

func requireStore(c *gin.Context, deps *types.Dependencies) (transcriptions.Repository, bool) {
	if deps == nil || deps.Transcriptions == nil {
		types.SendInternalError(c, "Transcript store not available")
		return nil, false
	}
	return deps.Transcriptions, true
}

func rowsOrEmpty(rows []models.Transcription) []models.Transcription {
	if rows == nil {
		return []models.Transcription{}
	}
	return rows
}
