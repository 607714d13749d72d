package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hellorun/server/internal/config"
	"github.com/hellorun/server/internal/database"
	"github.com/hellorun/server/internal/middleware"
	pkgcron "github.com/hellorun/server/internal/pkg/cron"
	"github.com/hellorun/server/internal/pkg/objectstore"
	pkgredis "github.com/hellorun/server/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	redis  *pkgredis.Client
	store  objectstore.Store
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: config → DB → Redis → object store → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rc *pkgredis.Client
	if cfg.Redis.Enable {
		if rc, err = pkgredis.Connect(cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	} else {
		logger.Warn("redis disabled, rate limiting, idempotence and public caching are off")
	}

	store, err := newObjectStore(cfg.Storage.S3)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	if _, disabled := store.(objectstore.Disabled); disabled {
		logger.Warn("s3 storage not configured, cover uploads are disabled")
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = 8 << 20
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		redis:  rc,
		store:  store,
		logger: logger,
		cancel: cancel,
		sched:  pkgcron.New(logger),
	}
	app.registerRoutes()
	app.registerCronJobs()
	go app.sched.Start(ctx)

	return app, nil
}

func newObjectStore(cfg config.S3Config) (objectstore.Store, error) {
	if !cfg.Enabled() {
		return objectstore.Disabled{}, nil
	}
	return objectstore.NewS3Store(objectstore.S3Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		PublicBaseURL:   cfg.PublicBaseURL,
		KeyPrefix:       cfg.KeyPrefix,
		PathStyle:       cfg.PathStyle,
	})
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and closes connections.
func (a *App) Shutdown() {
	a.cancel()
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("close redis", zap.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
