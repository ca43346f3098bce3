package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flowdeck/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	insightMetricsWindow = 30 * 24 * time.Hour
	insightMinDays       = 7
	insightConfidence    = 0.8
	insightExpiry        = 7 * 24 * time.Hour
	insightDefaultTitle  = "Your productivity over the last 30 days"
)

// GenerateInsight builds a 30-day activity rollup for one user and asks the
// model for a narrative reading of it. Users with fewer than seven days of
// metrics are skipped: the job returns (nil, nil) rather than an error.
func (s *Service) GenerateInsight(ctx context.Context, userID string) (*models.AIInsightModel, error) {
	since := time.Now().Add(-insightMetricsWindow)
	var metrics []models.ProductivityMetricsModel
	err := s.db.Where("user_id = ? AND date >= ?", userID, since).
		Order("date ASC").
		Find(&metrics).Error
	if err != nil {
		return nil, err
	}
	if len(metrics) < insightMinDays {
		return nil, nil
	}

	var created, completed, overdue, aiRequests int
	var scoreSum float64
	for _, m := range metrics {
		created += m.TasksCreated
		completed += m.TasksCompleted
		overdue += m.TasksOverdue
		aiRequests += m.AIRequests
		scoreSum += m.ProductivityScore
	}
	avgScore := scoreSum / float64(len(metrics))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Days tracked: %d\n", len(metrics))
	fmt.Fprintf(&sb, "Tasks created: %d\n", created)
	fmt.Fprintf(&sb, "Tasks completed: %d\n", completed)
	fmt.Fprintf(&sb, "Tasks overdue: %d\n", overdue)
	fmt.Fprintf(&sb, "AI requests made: %d\n", aiRequests)
	fmt.Fprintf(&sb, "Average productivity score: %.1f\n", avgScore)

	res, err := s.Process(ctx, ProcessInput{
		UserID:      userID,
		RequestType: models.RequestTypeProductivityInsights,
		Variables:   map[string]string{"content": sb.String()},
		InputText:   sb.String(),
	})
	if err != nil {
		return nil, err
	}

	expires := time.Now().Add(insightExpiry)
	insight := &models.AIInsightModel{
		UserID:      userID,
		InsightType: models.InsightTypeProductivityTrend,
		Title:       insightDefaultTitle,
		Content:     strings.TrimSpace(res.Text),
		Data: models.JSONMap{
			"days_tracked":    len(metrics),
			"tasks_created":   created,
			"tasks_completed": completed,
			"tasks_overdue":   overdue,
			"ai_requests":     aiRequests,
			"avg_score":       avgScore,
		},
		ConfidenceScore: insightConfidence,
		IsActionable:    true,
		ExpiresAt:       &expires,
	}
	if err := s.db.Create(insight).Error; err != nil {
		return nil, err
	}
	return insight, nil
}

// EnqueueAllInsights schedules insight generation for every user with recent
// metrics. Returns the number of jobs enqueued.
func (s *Service) EnqueueAllInsights(ctx context.Context) (int, error) {
	since := time.Now().Add(-insightMetricsWindow)
	var userIDs []string
	err := s.db.Model(&models.ProductivityMetricsModel{}).
		Where("date >= ?", since).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, id := range userIDs {
		if _, err := s.EnqueueInsights(ctx, id); err != nil {
			s.logger.Warn("enqueue insights", zap.String("user", id), zap.Error(err))
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

// RollupDailyMetrics recomputes per-user activity counters for one calendar
// day from the task table and request log, upserting the metrics rows.
func RollupDailyMetrics(db *gorm.DB, day time.Time) error {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var userIDs []string
	if err := db.Model(&models.TaskModel{}).Distinct("user_id").Pluck("user_id", &userIDs).Error; err != nil {
		return err
	}

	for _, userID := range userIDs {
		var row models.ProductivityMetricsModel
		row.UserID = userID
		row.Date = dayStart

		db.Model(&models.TaskModel{}).
			Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, dayStart, dayEnd).
			Select("count(*)").Scan(&row.TasksCreated)
		db.Model(&models.TaskModel{}).
			Where("user_id = ? AND completed_at >= ? AND completed_at < ?", userID, dayStart, dayEnd).
			Select("count(*)").Scan(&row.TasksCompleted)
		db.Model(&models.TaskModel{}).
			Where("user_id = ? AND status <> ? AND due_date IS NOT NULL AND due_date < ?",
				userID, models.TaskStatusCompleted, dayEnd).
			Select("count(*)").Scan(&row.TasksOverdue)
		db.Model(&models.AIRequestLogModel{}).
			Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, dayStart, dayEnd).
			Select("count(*)").Scan(&row.AIRequests)

		total := row.TasksCompleted + row.TasksOverdue
		if total > 0 {
			row.ProductivityScore = float64(row.TasksCompleted) / float64(total) * 100
		}

		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tasks_created", "tasks_completed", "tasks_overdue",
				"ai_requests", "productivity_score", "updated_at",
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// UsageReport summarizes one day of request-log activity.
type UsageReport struct {
	Day         time.Time `json:"day"`
	Requests    int       `json:"requests"`
	Successful  int       `json:"successful"`
	TokensTotal int       `json:"tokens_total"`
	CostUSD     float64   `json:"cost_usd"`
	AvgLatency  float64   `json:"avg_latency_seconds"`
	UniqueUsers int       `json:"unique_users"`
}

// BuildUsageReport aggregates the request log for one calendar day.
func BuildUsageReport(db *gorm.DB, day time.Time) (*UsageReport, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	report := &UsageReport{Day: dayStart}
	base := db.Model(&models.AIRequestLogModel{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd)

	var agg struct {
		Requests    int
		Successful  int
		TokensTotal int
		CostUSD     float64
		AvgLatency  float64
	}
	err := base.Session(&gorm.Session{}).
		Select("count(*) as requests, " +
			"sum(case when success then 1 else 0 end) as successful, " +
			"coalesce(sum(tokens_total), 0) as tokens_total, " +
			"coalesce(sum(cost_usd), 0) as cost_usd, " +
			"coalesce(avg(response_time), 0) as avg_latency").
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	report.Requests = agg.Requests
	report.Successful = agg.Successful
	report.TokensTotal = agg.TokensTotal
	report.CostUSD = agg.CostUSD
	report.AvgLatency = agg.AvgLatency

	var users int64
	err = base.Session(&gorm.Session{}).Distinct("user_id").Count(&users).Error
	if err != nil {
		return nil, err
	}
	report.UniqueUsers = int(users)
	return report, nil
}
