package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/lectra-api/api/types"
	"github.com/killallgit/lectra-api/pkg/config"
)

// Get handles health check requests
// @Summary      Server health
// @Description  Process liveness including the transcript store status. Always 200 when reachable.
// @Tags         system
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /health [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		environment := config.GetString("environment")
		if environment == "" {
			environment = "development"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      types.StatusSuccess,
			"message":     "Lectra backend server is running",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": environment,
			"database":    getDatabaseStatus(deps),
		})
	}
}

// getDatabaseStatus reports the sqlite connection or the Supabase handle
func getDatabaseStatus(deps *types.Dependencies) gin.H {
	if deps == nil {
		return gin.H{"status": "not configured"}
	}

	if deps.DB != nil && deps.DB.DB != nil {
		if err := deps.DB.HealthCheck(); err != nil {
			return gin.H{"status": "unhealthy", "backend": "sqlite", "error": err.Error()}
		}
		return gin.H{"status": "healthy", "backend": "sqlite"}
	}

	if deps.Supabase != nil {
		if err := deps.Supabase.Err(); err != nil {
			return gin.H{"status": "unhealthy", "backend": "supabase", "error": err.Error()}
		}
		return gin.H{"status": "healthy", "backend": "supabase"}
	}

	return gin.H{"status": "not configured"}
}
