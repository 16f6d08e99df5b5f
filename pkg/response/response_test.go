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

func render(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestParamError_IncludesFields(t *testing.T) {
	w, body := render(t, func(c *gin.Context) {
		ParamError(c, "参数校验失败", FieldError{Field: "email", Message: "格式错误"})
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "参数校验失败", body["message"])
	assert.Len(t, body["errors"], 1)
}

func TestError_MessageOnly(t *testing.T) {
	w, body := render(t, func(c *gin.Context) { Conflict(c, "已审核") })
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, map[string]interface{}{"message": "已审核"}, body)
}

func TestSuccessAndCreated(t *testing.T) {
	w, body := render(t, func(c *gin.Context) { Created(c, gin.H{"id": 1}) })
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]interface{}{"id": float64(1)}, body["data"])

	w, body = render(t, func(c *gin.Context) { Message(c, "ok") })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["message"])
	assert.NotContains(t, body, "data")
}
