package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/service"
	"github.com/noah-isme/face-attendance-api/pkg/config"
)

func newAuthHandlerForTest(t *testing.T) *AuthHandler {
	t.Helper()
	svc := service.NewAuthService(
		config.AdminConfig{Email: "admin", Password: "admin123"},
		config.JWTConfig{Secret: "test-secret", Expiration: time.Hour},
		nil, zap.NewNop())
	return NewAuthHandler(svc)
}

func postJSON(t *testing.T, handler gin.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return rec
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	handler := newAuthHandlerForTest(t)

	rec := postJSON(t, handler.Login, "/auth/login", `{"email":"admin","password":"admin123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	handler := newAuthHandlerForTest(t)

	rec := postJSON(t, handler.Login, "/auth/login", `{"email":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLoginMalformedBody(t *testing.T) {
	handler := newAuthHandlerForTest(t)

	rec := postJSON(t, handler.Login, "/auth/login", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
