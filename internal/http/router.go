package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/you/clientcore/internal/http/handlers"
	"github.com/you/clientcore/internal/http/middleware"
)

// BuildRouter wires the auth endpoints under prefix (e.g. "/api/v1")
func BuildRouter(prefix string, ah *handlers.AuthHandlers, jwtmw *middleware.AuthMW, logger zerolog.Logger) *gin.Engine {
	handlers.ConfigureValidator()

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := r.Group(prefix)
	api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	auth := api.Group("/auth")
	auth.POST("/register", ah.Register)
	auth.POST("/login", ah.Login)
	auth.POST("/login/otp/request", ah.RequestOTP)
	auth.POST("/login/otp/verify", ah.VerifyOTP)
	auth.POST("/refresh", ah.Refresh)
	auth.GET("/me", jwtmw.WithJWT(), ah.Me)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": handlers.APIError{Code: "NOT_FOUND", Message: "route not found"},
		})
	})

	return r
}
