package app

import (
	"context"
	"time"

	"github.com/hellorun/server/internal/modules/blog"
	pkgcron "github.com/hellorun/server/internal/pkg/cron"
)

const coverJanitorJob = "purge_deleted_covers"

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() {
	retention := time.Duration(a.cfg.Blog.CoverRetentionHours) * time.Hour
	janitor := blog.NewCoverJanitor(blog.NewGormRepository(a.db), a.store, retention, a.logger)

	a.sched.Register(pkgcron.Job{
		Name:        coverJanitorJob,
		Description: "remove cover files of posts deleted longer than the retention period",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			_, err := janitor.Run(ctx)
			return err
		},
	})
}
