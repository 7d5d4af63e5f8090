package app

import (
	"context"
	"net/http"
	"time"

	"github.com/rohithreddydev/taskforge-cloud-platform/internal/cache"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/config"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/handlers"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/ratelimit"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/repo"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
	"golang.org/x/sync/errgroup"
)

// Setup registers all routes on the given engine. rdb may be nil, in which
// case caching, stats caching and rate limiting are disabled.
func Setup(r *gin.Engine, cfg config.Config, db *pgxpool.Pool, rdb *redis.Client) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg))
	r.GET("/ready", readyHandler(db, rdb))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(302, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	api := r.Group("/api/v1")

	taskRepo := repo.NewPGTaskRepo(db)

	var (
		taskCache  service.Cache
		statsCache service.StatsStore
		writeGuard gin.HandlerFunc = passthrough
		batchGuard gin.HandlerFunc = passthrough
	)
	if rdb != nil {
		opTimeout := cfg.Cache.OpTimeout.Duration()
		reg := cache.NewKeyRegistry(rdb)
		taskCache = cache.NewTaskCache(rdb, reg,
			cfg.Cache.ItemTTL.Duration(), cfg.Cache.ListTTL.Duration(), opTimeout)
		statsCache = cache.NewStatsCache(rdb, cfg.Cache.StatsTTL.Duration(), opTimeout)

		limiter := ratelimit.NewLimiter(rdb, cfg.Limit.Window.Duration(), opTimeout)
		writeGuard = ratelimit.ByClient(limiter, cfg.Limit.WriteLimit)
		batchGuard = ratelimit.ByClient(limiter, cfg.Limit.BatchLimit)
	}

	taskSvc := service.NewTaskService(taskRepo, taskCache)
	statsSvc := service.NewStatsService(taskRepo, statsCache, cfg.App.Location())

	taskHandler := handlers.NewTaskHandler(taskSvc)
	statsHandler := handlers.NewStatsHandler(statsSvc)

	api.GET("/tasks", taskHandler.List)
	api.POST("/tasks", writeGuard, taskHandler.Create)
	api.POST("/tasks/batch", batchGuard, taskHandler.CreateBatch)
	api.GET("/tasks/:id", taskHandler.GetByID)
	api.PUT("/tasks/:id", writeGuard, taskHandler.Update)
	api.POST("/tasks/:id/toggle", writeGuard, taskHandler.Toggle)
	api.DELETE("/tasks/:id", writeGuard, taskHandler.Delete)
	api.GET("/stats", statsHandler.Get)
}

func passthrough(c *gin.Context) { c.Next() }

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Task API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"ready":   "/ready",
			"api":     "/api/v1",
		})
	}
}

// healthHandler is the liveness probe: the process is up.
func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

// readyHandler is the readiness probe: both backing services answer a ping
// within the deadline. An unconfigured redis does not block readiness, the
// service degrades without it.
func readyHandler(db *pgxpool.Pool, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		// Pings run in parallel and each reports independently, so one
		// failing dependency does not mask the other's state.
		var dbErr, redisErr error
		var g errgroup.Group
		g.Go(func() error {
			dbErr = db.Ping(ctx)
			return dbErr
		})
		if rdb != nil {
			g.Go(func() error {
				redisErr = rdb.Ping(ctx).Err()
				return redisErr
			})
		}
		err := g.Wait()

		services := map[string]string{
			"database": pingStatus(dbErr),
			"redis":    "not_configured",
		}
		if rdb != nil {
			services["redis"] = pingStatus(redisErr)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "services": services})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "services": services})
	}
}

func pingStatus(err error) string {
	if err != nil {
		return "disconnected"
	}
	return "connected"
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.Data(200, "application/json; charset=utf-8", []byte(doc))
	}
}
