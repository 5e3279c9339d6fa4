package version

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	router := gin.New()
	RegisterRoutes(router, "1.2.3")
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	expected := map[string]interface{}{
		"status":  "success",
		"name":    "Lectra Transcription API",
		"version": "1.2.3",
	}
	for key, value := range expected {
		assert.Equal(t, value, response[key], "Key: %s", key)
	}
}
