package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bindTarget struct {
	Name    string `json:"name" binding:"required"`
	Payment string `json:"payment" binding:"omitempty,oneof=wallet gateway"`
}

func bindRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bind", func(c *gin.Context) {
		var req bindTarget
		if err := c.ShouldBindJSON(&req); err != nil {
			BindFailed(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestBindFailed_FieldErrors(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/bind", bytes.NewBufferString(`{"payment":"cash"}`))
	req.Header.Set("Content-Type", "application/json")
	bindRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body ValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_request", body.Code)
	require.Len(t, body.Details, 2)
	assert.Equal(t, "Name is required", body.Details[0].Message)
	assert.Equal(t, "Payment must be one of: wallet gateway", body.Details[1].Message)
}

func TestBindFailed_MalformedJSON(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/bind", bytes.NewBufferString(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	bindRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	assert.Empty(t, body.Code)
}
