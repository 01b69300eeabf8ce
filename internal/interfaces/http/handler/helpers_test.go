package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pdv/backend/internal/infrastructure/auth"
	"github.com/pdv/backend/internal/infrastructure/logger"
	"github.com/pdv/backend/internal/interfaces/http/dto"
	"github.com/pdv/backend/internal/interfaces/http/middleware"
	"github.com/pdv/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var (
	testCompanyID = uuid.MustParse("5b0f7c1e-2f43-4c39-9d1a-0c1f5e2a7a01")
	testUserID    = uuid.MustParse("0e4c9a8b-7d62-4f1e-a3b5-6c2d1e0f9b02")
)

// asRole stands in for JWTAuth and authenticates every request with the role
func asRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTClaimsKey, &auth.Claims{
			CompanyID: testCompanyID.String(),
			UserID:    testUserID.String(),
			Role:      role,
		})
		c.Set(logger.GinCompanyIDKey, testCompanyID.String())
		c.Set(logger.GinUserIDKey, testUserID.String())
		c.Next()
	}
}

func newEngine(groups ...router.RouteRegistrar) *gin.Engine {
	engine := gin.New()
	router.NewRouter(engine).Register(groups...).Setup()
	return engine
}

func perform(engine http.Handler, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decode(t, w)
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

// rejectAll stands in for JWTAuth when no request may authenticate
func rejectAll(c *gin.Context) {
	c.AbortWithStatus(http.StatusUnauthorized)
}
