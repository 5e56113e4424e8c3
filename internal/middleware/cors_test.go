package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func corsRouter(allowlist []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(CORS(allowlist))
	engine.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })
	return engine
}

func TestCORSAllowAll(t *testing.T) {
	router := corsRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://anything.example")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, POST, OPTIONS", resp.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Authorization, X-Client-Info, Apikey, Content-Type", resp.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSAllowlistedOrigin(t *testing.T) {
	router := corsRouter([]string{"https://serenity-spa.example"})
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://serenity-spa.example")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, "https://serenity-spa.example", resp.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", resp.Header().Get("Vary"))
}

func TestCORSRejectedOrigin(t *testing.T) {
	router := corsRouter([]string{"https://serenity-spa.example"})
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := corsRouter(nil)
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://serenity-spa.example")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
}
