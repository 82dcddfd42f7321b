package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func corsRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(&config.ServerConfig{AllowedOrigins: origins}))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantHeader string
		wantStatus int
	}{
		{name: "exact match", origins: []string{"https://app.nomadcrew.uk"}, origin: "https://app.nomadcrew.uk", wantHeader: "https://app.nomadcrew.uk", wantStatus: http.StatusOK},
		{name: "wildcard subdomain", origins: []string{"*.nomadcrew.uk"}, origin: "https://beta.nomadcrew.uk", wantHeader: "https://beta.nomadcrew.uk", wantStatus: http.StatusOK},
		{name: "disallowed origin", origins: []string{"https://app.nomadcrew.uk"}, origin: "https://evil.example.com", wantHeader: "", wantStatus: http.StatusForbidden},
		{name: "allow all", origins: []string{"*"}, origin: "https://anything.example.com", wantHeader: "*", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := corsRouter(tt.origins)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Origin", tt.origin)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantHeader, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	r := corsRouter([]string{"https://app.nomadcrew.uk"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "https://app.nomadcrew.uk")
	req.Header.Set("Access-Control-Request-Method", "POST")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}
