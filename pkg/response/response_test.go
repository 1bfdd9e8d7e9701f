package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		write   func(c *gin.Context)
		status  int
		success bool
		errMsg  string
	}{
		{"ok", func(c *gin.Context) { OK(c, gin.H{"a": 1}) }, http.StatusOK, true, ""},
		{"created", func(c *gin.Context) { Created(c, nil) }, http.StatusCreated, true, ""},
		{"bad request", func(c *gin.Context) { BadRequest(c, "nope") }, http.StatusBadRequest, false, "nope"},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "Unauthorized") }, http.StatusForbidden, false, "Unauthorized"},
		{"not found", func(c *gin.Context) { NotFound(c, "Video not found") }, http.StatusNotFound, false, "Video not found"},
		{"bad gateway", func(c *gin.Context) { BadGateway(c, "upstream") }, http.StatusBadGateway, false, "upstream"},
		{"internal", func(c *gin.Context) { Internal(c, "boom") }, http.StatusInternalServerError, false, "boom"},
		{"conflict", func(c *gin.Context) { Conflict(c, "taken") }, http.StatusConflict, false, "taken"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tc.write(c)

			assert.Equal(t, tc.status, w.Code)
			var body Body
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.success, body.Success)
			assert.Equal(t, tc.errMsg, body.Error)
		})
	}
}
