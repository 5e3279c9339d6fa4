package transcription

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/lectra-api/api/types"
)

// RegisterRoutes registers transcription routes on a /api/transcription group.
// uploadLimit wraps the upload route and bodyLimit the JSON update route.
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies, uploadLimit, bodyLimit gin.HandlerFunc) {
	router.GET("/health", Health())
	router.POST("/transcribe", uploadLimit, Transcribe(deps))
	router.GET("/history", History(deps))
	router.GET("/search", Search(deps))
	router.GET("/:id", Get(deps))
	router.PUT("/:id", bodyLimit, Update(deps))
	router.DELETE("/:id", Delete(deps))
}
