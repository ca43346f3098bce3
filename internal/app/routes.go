package app

import (
	"net/http"
	"time"

	"github.com/flowdeck/core/internal/middleware"
	"github.com/flowdeck/core/internal/modules/ai"
	"github.com/flowdeck/core/internal/modules/note"
	"github.com/flowdeck/core/internal/modules/task"
	"github.com/flowdeck/core/internal/modules/user"
	pkgredis "github.com/flowdeck/core/internal/pkg/redis"
	"github.com/flowdeck/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	apiPrefix = "/api/v1"

	// AI endpoints hit the upstream provider and carry their own cost, so
	// they get a much tighter window than the rest of the API.
	aiRateLimitMax    = 30
	aiRateLimitWindow = time.Minute
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "flowdeck-core",
		"version": "1.0.0",
	}

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth())

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := time.Since(processStart).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})
	api.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			response.ServiceUnavailable(c, "database unreachable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth & profile
	user.NewHandler(user.NewService(db)).RegisterRoutes(api, authMW)

	// Content
	note.NewHandler(note.NewService(db, a.aiSvc)).RegisterRoutes(api, authMW)
	task.NewHandler(task.NewService(db, a.aiSvc)).RegisterRoutes(api, authMW)

	// AI surface, rate limited per user
	aiGroup := api.Group("", middleware.RateLimit(rc.Raw(), aiRateLimitMax, aiRateLimitWindow))
	ai.NewHandler(a.aiSvc).RegisterRoutes(aiGroup, authMW)

	// Background job management (admin)
	api.GET("/cron", authMW, func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})
	api.POST("/cron/:name/run", authMW, func(c *gin.Context) {
		if err := a.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.NoContent(c)
	})
}
