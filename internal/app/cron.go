package app

import (
	"context"
	"fmt"
	"time"

	"github.com/flowdeck/core/internal/config"
	"github.com/flowdeck/core/internal/modules/ai"
	pkgcron "github.com/flowdeck/core/internal/pkg/cron"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, cfg *config.AppConfig, aiSvc *ai.Service, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")
	archiver := ai.NewArchiver(cfg.Archive)

	sched.Register(pkgcron.Job{
		Name:        "sweep_quotas",
		Description: "reset AI quota periods that have elapsed",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := ai.SweepQuotas(db)
			if err != nil {
				cronLogger.Warn("quota sweep failed", zap.Error(err))
				return err
			}
			if n > 0 {
				cronLogger.Info(fmt.Sprintf("quota sweep reset %d periods", n))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_request_logs",
		Description: "archive and delete AI request logs older than 90 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := ai.CleanupRequestLogs(ctx, db, archiver, cronLogger)
			if err != nil {
				cronLogger.Warn("request log cleanup failed", zap.Error(err))
				return err
			}
			cronLogger.Info(fmt.Sprintf("request log cleanup removed %d rows", n))
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "rollup_daily_metrics",
		Description: "aggregate yesterday's task activity into productivity metrics",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			yesterday := time.Now().AddDate(0, 0, -1)
			if err := ai.RollupDailyMetrics(db, yesterday); err != nil {
				cronLogger.Warn("metrics rollup failed", zap.Error(err))
				return err
			}
			cronLogger.Info("metrics rollup completed")
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "daily_usage_report",
		Description: "log yesterday's AI usage totals",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			yesterday := time.Now().AddDate(0, 0, -1)
			report, err := ai.BuildUsageReport(db, yesterday)
			if err != nil {
				cronLogger.Warn("usage report failed", zap.Error(err))
				return err
			}
			cronLogger.Info("daily AI usage",
				zap.String("date", yesterday.Format("2006-01-02")),
				zap.Int("requests", report.Requests),
				zap.Int("successful", report.Successful),
				zap.Int("tokens", report.TokensTotal),
				zap.Float64("cost_usd", report.CostUSD),
				zap.Int("unique_users", report.UniqueUsers))
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "generate_insights",
		Description: "enqueue weekly productivity insight generation for active users",
		Interval:    7 * 24 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := aiSvc.EnqueueAllInsights(ctx)
			if err != nil {
				cronLogger.Warn("insight enqueue failed", zap.Error(err))
				return err
			}
			cronLogger.Info(fmt.Sprintf("insight generation enqueued for %d users", n))
			return nil
		},
	})
}
