package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/emr-lookup-api/internal/handler"
	"github.com/noah-isme/emr-lookup-api/internal/middleware"
	"github.com/noah-isme/emr-lookup-api/internal/service"
	"github.com/noah-isme/emr-lookup-api/pkg/config"
	"github.com/noah-isme/emr-lookup-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/emr-lookup-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/emr-lookup-api/pkg/middleware/requestid"
)

type routerDeps struct {
	metrics   *service.MetricsService
	store     *service.SnapshotStore
	officers  *handler.OfficerHandler
	aggregate *handler.AggregateHandler
	snapshot  *handler.SnapshotHandler
	limiter   *middleware.RateLimiter
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	ops := handler.NewMetricsHandler(deps.metrics, deps.store)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.Use(middleware.RateLimit(deps.limiter))

	officers := api.Group("/officers")
	officers.GET("/names", deps.officers.Names)
	officers.GET("/search", deps.officers.Search)
	officers.GET("/:id/complaints", deps.officers.Complaints)
	officers.GET("/:id/complaints/export", deps.officers.Export)
	officers.GET("/:id/complaints/:index", deps.officers.ComplaintDetail)

	api.GET("/aggregates/:dimension", deps.aggregate.Get)
	api.GET("/snapshot", deps.snapshot.Info)
	api.POST("/admin/refresh", deps.snapshot.Refresh)

	return r
}
