package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Get handles version requests
// @Summary      API name and version
// @Tags         system
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       / [get]
func Get(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "success",
			"name":        "Lectra Transcription API",
			"version":     version,
			"description": "Voice note transcription and history API",
		})
	}
}
