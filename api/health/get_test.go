package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/lectra-api/api/types"
	"github.com/killallgit/lectra-api/internal/database"
	"github.com/killallgit/lectra-api/internal/supabase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name             string
		setupDeps        func() *types.Dependencies
		expectedDBStatus string
	}{
		{
			name: "healthy with database",
			setupDeps: func() *types.Dependencies {
				db, err := database.Initialize(":memory:", false)
				require.NoError(t, err)
				return &types.Dependencies{DB: db}
			},
			expectedDBStatus: "healthy",
		},
		{
			name: "without database",
			setupDeps: func() *types.Dependencies {
				return &types.Dependencies{}
			},
			expectedDBStatus: "not configured",
		},
		{
			name: "closed database",
			setupDeps: func() *types.Dependencies {
				db, err := database.Initialize(":memory:", false)
				require.NoError(t, err)
				require.NoError(t, db.Close())
				return &types.Dependencies{DB: db}
			},
			expectedDBStatus: "unhealthy",
		},
		{
			name: "closed supabase handle",
			setupDeps: func() *types.Dependencies {
				handle, err := supabase.Open(supabase.Config{URL: "http://localhost:54321", Key: "anon"})
				require.NoError(t, err)
				require.NoError(t, handle.Close())
				return &types.Dependencies{Supabase: handle}
			},
			expectedDBStatus: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			deps := tt.setupDeps()
			Get(deps)(c)

			assert.Equal(t, http.StatusOK, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "success", response["status"])

			dbStatus, ok := response["database"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.expectedDBStatus, dbStatus["status"])

			if deps.DB != nil {
				deps.DB.Close()
			}
		})
	}
}
