package types

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler utility functions to reduce duplication across handlers

// ParsePagination reads limit and offset query parameters. Missing, zero or
// non-numeric limits fall back to defaultLimit. Sends a 400 and returns false
// when the window is out of range.
func ParsePagination(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int, ok bool) {
	limit = queryIntOr(c, "limit", defaultLimit)
	offset = queryIntOr(c, "offset", 0)

	if limit < 1 || limit > maxLimit {
		SendFail(c, http.StatusBadRequest, "Limit must be between 1 and "+strconv.Itoa(maxLimit))
		return 0, 0, false
	}
	if offset < 0 {
		SendFail(c, http.StatusBadRequest, "Offset must be non-negative")
		return 0, 0, false
	}
	return limit, offset, true
}

func queryIntOr(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value == 0 {
		return fallback
	}
	return value
}

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		SendFail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// SendFail sends a client error with status "fail"
func SendFail(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Status: StatusFail, Message: message})
}

// SendBadRequest sends a standardized bad request response
func SendBadRequest(c *gin.Context, message string) {
	SendFail(c, http.StatusBadRequest, message)
}

// SendNotFound sends a standardized not found response
func SendNotFound(c *gin.Context, message string) {
	SendFail(c, http.StatusNotFound, message)
}

// SendInternalError sends a standardized internal server error response
func SendInternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Status: StatusError, Message: message})
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}
