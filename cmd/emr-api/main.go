package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/emr-lookup-api/api/swagger"
	"github.com/noah-isme/emr-lookup-api/internal/handler"
	"github.com/noah-isme/emr-lookup-api/internal/middleware"
	"github.com/noah-isme/emr-lookup-api/internal/repository"
	"github.com/noah-isme/emr-lookup-api/internal/service"
	"github.com/noah-isme/emr-lookup-api/pkg/cache"
	"github.com/noah-isme/emr-lookup-api/pkg/config"
	"github.com/noah-isme/emr-lookup-api/pkg/database"
	"github.com/noah-isme/emr-lookup-api/pkg/jobs"
	"github.com/noah-isme/emr-lookup-api/pkg/logger"
)

// @title EMR Lookup API
// @version 1.0.0
// @description Officer lookup and complaint statistics over the SLMPD Employee Misconduct Report dataset.
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	source, closeSource, err := newTableSource(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to init table source", zap.String("source", cfg.Source.Driver), zap.Error(err))
	}
	defer closeSource()

	tableCache, closeCache := newTableCache(ctx, cfg, metrics, logr)
	defer closeCache()

	loader := service.NewLoaderService(source, tableCache, metrics, service.LoaderConfig{
		FetchTimeout:   cfg.Source.FetchTimeout,
		MaxAttempts:    cfg.Source.MaxAttempts,
		RetryBaseDelay: cfg.Source.RetryBaseDelay,
		RetryMaxDelay:  cfg.Source.RetryMaxDelay,
		CachePrefix:    cfg.TableCache.Prefix,
	}, logr)
	store := service.NewSnapshotStore()
	refresher := service.NewRefreshService(loader, store, metrics, cfg.Refresh.Timeout, logr)

	queue := jobs.NewQueue("snapshot-refresh", refresher.Handle, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Refresh.MaxRetries,
		RetryDelay: cfg.Refresh.RetryDelay,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	// The server starts answering 503 SNAPSHOT_NOT_READY while the first
	// load is retried in the background.
	if _, err := refresher.Refresh(ctx); err != nil {
		logr.Warn("initial snapshot load failed, retrying in background", zap.Error(err))
		if err := queue.Enqueue(jobs.Job{Type: service.JobTypeRefresh}); err != nil {
			logr.Error("enqueue initial refresh", zap.Error(err))
		}
	}
	go queue.Every(ctx, cfg.Refresh.Interval, service.JobTypeRefresh)

	query := service.NewQueryService(store, validator.New(), cfg.Aggregates.Window, logr)
	exports := service.NewExportService(query, logr)

	r := newRouter(cfg, logr, routerDeps{
		metrics:   metrics,
		store:     store,
		officers:  handler.NewOfficerHandler(query, exports),
		aggregate: handler.NewAggregateHandler(query),
		snapshot:  handler.NewSnapshotHandler(query, refresher, queue, cfg.Refresh.APIEnabled),
		limiter:   middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "source", cfg.Source.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// newTableSource builds the configured table source and its cleanup func.
func newTableSource(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.TableSource, func(), error) {
	noop := func() {}
	switch cfg.Source.Driver {
	case config.SourceSheets:
		if cfg.Source.Sheets.SpreadsheetID == "" {
			return nil, noop, errors.New("SHEETS_SPREADSHEET_ID is required for the sheets source")
		}
		return repository.NewSheetsTableRepository(repository.SheetsConfig{
			BaseURL:           cfg.Source.Sheets.BaseURL,
			SpreadsheetID:     cfg.Source.Sheets.SpreadsheetID,
			APIKey:            cfg.Source.Sheets.APIKey,
			RequestsPerSecond: cfg.Source.Sheets.RequestsPerS,
		}, logr), noop, nil
	case config.SourceXLSX:
		return repository.NewWorkbookTableRepository(cfg.Source.XLSXPath), noop, nil
	case config.SourceCSV:
		return repository.NewCSVTableRepository(cfg.Source.CSVDir), noop, nil
	case config.SourcePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		return repository.NewPostgresTableRepository(db, cfg.Database.Schema), func() { _ = db.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown table source %q", cfg.Source.Driver)
	}
}

// newTableCache connects the last-known-good table cache. An unreachable
// Redis disables the cache rather than failing startup.
func newTableCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, func()) {
	if !cfg.TableCache.Enabled {
		return service.NewCacheService(nil, metrics, cfg.TableCache.TTL, logr, false), func() {}
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("table cache disabled, redis unavailable", zap.Error(err))
		return service.NewCacheService(nil, metrics, cfg.TableCache.TTL, logr, false), func() {}
	}
	repo := repository.NewCacheRepository(client, logr)
	return service.NewCacheService(repo, metrics, cfg.TableCache.TTL, logr, true), func() { _ = repo.Close() }
}
