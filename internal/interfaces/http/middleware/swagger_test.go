package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swaggerRouter(cfg SwaggerConfig, jwt gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, jwt), func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})
	return router
}

func swaggerRequest(router *gin.Engine, remoteAddr, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	if bearer != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection(t *testing.T) {
	tokens := newTestTokenService(t)
	token, _, err := tokens.Issue("ops")
	require.NoError(t, err)
	jwt := JWTAuth(tokens, nil)

	tests := []struct {
		name       string
		cfg        SwaggerConfig
		remoteAddr string
		bearer     string
		status     int
	}{
		{"disabled", SwaggerConfig{}, "10.0.0.1:1234", "", http.StatusNotFound},
		{"open", SwaggerConfig{Enabled: true}, "10.0.0.1:1234", "", http.StatusOK},
		{"exact ip allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}}, "10.0.0.1:1234", "", http.StatusOK},
		{"cidr allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, "10.20.30.40:1234", "", http.StatusOK},
		{"ip outside list", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8", "bogus"}}, "192.168.1.5:1234", "", http.StatusForbidden},
		{"auth required without token", SwaggerConfig{Enabled: true, RequireAuth: true}, "10.0.0.1:1234", "", http.StatusUnauthorized},
		{"auth required with token", SwaggerConfig{Enabled: true, RequireAuth: true}, "10.0.0.1:1234", token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := swaggerRequest(swaggerRouter(tt.cfg, jwt), tt.remoteAddr, tt.bearer)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, swaggerCSP, w.Header().Get("Content-Security-Policy"))
			}
		})
	}
}
