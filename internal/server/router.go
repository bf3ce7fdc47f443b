package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tallysplit/tally/internal/auth"
	"github.com/tallysplit/tally/internal/middleware"
	"github.com/tallysplit/tally/internal/service"
)

// NewRouter wires the HTTP routes. Session routes require a bearer token
// scoped to the session in the path; creation is open and returns the
// token.
func NewRouter(sessions *service.SessionService, tokens *auth.TokenManager, extractor Extractor) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewHandler(sessions, extractor)

	v1 := r.Group("/v1")
	v1.POST("/sessions", h.CreateSession())
	v1.POST("/sessions/from-image", h.CreateSessionFromImage())

	authed := v1.Group("/sessions/:id", middleware.RequireSession(tokens))
	authed.GET("", h.GetSession())
	authed.POST("/commands", h.ApplyCommands())
	authed.POST("/interpret", h.Interpret())
	authed.DELETE("", h.DeleteSession())

	return r
}
