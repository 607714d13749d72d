package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellorun/server/internal/middleware"
	"github.com/hellorun/server/internal/modules/blog"
	"github.com/hellorun/server/internal/modules/notify"
	"github.com/hellorun/server/internal/modules/slugtracker"
	"github.com/hellorun/server/internal/pkg/mail"
	"github.com/hellorun/server/internal/pkg/response"
	"github.com/hellorun/server/internal/pkg/sanitize"
)

func (a *App) registerRoutes() {
	r := a.router
	db := a.db
	rdb := a.redis.Raw()
	authMW := middleware.Auth(db)
	adminMW := middleware.AdminOnly()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})

	r.GET("/healthz", func(c *gin.Context) {
		response.OK(c, gin.H{"ok": 1, "uptime": time.Since(processStart).Truncate(time.Second).String()})
	})

	api := r.Group("/api")

	trackerSvc := slugtracker.NewService(db)
	slugtracker.NewHandler(trackerSvc).RegisterRoutes(api.Group("/admin"), authMW, adminMW)

	blogSvc := blog.NewService(blog.NewGormRepository(db), sanitize.New(), a.store, a.logger)
	blogSvc.SetSlugTracker(trackerSvc)
	if rdb != nil {
		blogSvc.SetPublicCache(middleware.NewPublicCachePurger(rdb))
	}
	if sender := mail.New(mail.BuildMailConfig(a.cfg.Mail)); sender.Enabled() {
		blogSvc.SetNotifier(notify.NewReviewNotifier(db, sender, a.cfg.Blog.PublicBaseURL, a.logger))
	}

	blog.NewHandler(blogSvc, a.logger).RegisterRoutes(api, blog.Middlewares{
		Auth:       authMW,
		Admin:      adminMW,
		Idempotent: middleware.Idempotence(rdb),
		Autosave: middleware.RateLimit(rdb, middleware.RateLimitOptions{
			Name:   "blog-autosave",
			Max:    int64(a.cfg.Blog.AutosavePerSecond),
			Window: time.Second,
		}, a.logger),
		PublicCache: middleware.PublicCache(rdb, middleware.PublicCacheOptions{
			TTL: time.Duration(a.cfg.Blog.PublicCacheSeconds) * time.Second,
		}),
	})
}
