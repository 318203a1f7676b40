package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/config"
	"github.com/stemsi/assessment-backend/internal/handler"
	"github.com/stemsi/assessment-backend/internal/middleware"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Test    *handler.TestHandler
	Attempt *handler.AttemptHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	handlers *Handlers,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and error responses carry it.
	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.AccessLog())
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	attemptLimiter := middleware.NewRateLimiter(rdb, cfg.AttemptRateLimit, time.Minute)
	staff := middleware.RequireRole(model.RoleInstructor, model.RoleAdmin)
	student := middleware.RequireRole(model.RoleStudent)

	// ─── Tests (JWT) ───────────────────────────────────────────────────
	tests := router.Group("/api/v1/tests")
	tests.Use(middleware.RequireJWT(auth))
	{
		tests.POST("", staff, handlers.Test.CreateTest)
		tests.GET("", staff, handlers.Test.ListTests)
		tests.GET("/:id", handlers.Test.GetTest)
		tests.PUT("/:id/schedule", staff, handlers.Test.UpdateSchedule)
		tests.DELETE("/:id", staff, handlers.Test.DeleteTest)

		tests.POST("/:id/start", student, attemptLimiter.Middleware(), handlers.Attempt.StartTest)
		tests.PUT("/:id/submit", student, attemptLimiter.Middleware(), handlers.Attempt.SubmitTest)
		tests.GET("/:id/result", handlers.Attempt.GetResult)
		// Ranks are recomputed per request; renames show up immediately.
		tests.GET("/:id/leaderboard", middleware.CacheControl("no-store"), handlers.Attempt.GetLeaderboard)
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}
