package ai

import (
	"context"
	"testing"
	"time"

	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/testutil"
	"gorm.io/gorm"
)

func seedMetrics(t *testing.T, db *gorm.DB, userID string, days int) {
	t.Helper()
	for i := 0; i < days; i++ {
		day := time.Now().AddDate(0, 0, -i)
		row := models.ProductivityMetricsModel{
			UserID:            userID,
			Date:              time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			TasksCreated:      3,
			TasksCompleted:    2,
			TasksOverdue:      1,
			AIRequests:        1,
			ProductivityScore: 66.7,
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed metrics: %v", err)
		}
	}
}

func TestGenerateInsight(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)
	if err := EnsureQuotas(db, user.ID, false); err != nil {
		t.Fatalf("quotas: %v", err)
	}
	seedMetrics(t, db, user.ID, 10)

	provider := &mockProvider{text: "You complete most tasks. Watch the overdue ones.", tokens: 40}
	svc := newTestService(t, db, provider)

	insight, err := svc.GenerateInsight(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if insight == nil {
		t.Fatalf("expected an insight")
	}
	if insight.ConfidenceScore != 0.8 || !insight.IsActionable {
		t.Fatalf("insight flags: confidence=%v actionable=%v", insight.ConfidenceScore, insight.IsActionable)
	}
	if insight.InsightType != models.InsightTypeProductivityTrend {
		t.Fatalf("insight type = %q", insight.InsightType)
	}
	if insight.Data["days_tracked"] != 10 {
		t.Fatalf("rollup data: %+v", insight.Data)
	}

	var count int64
	db.Model(&models.AIInsightModel{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 stored insight, got %d", count)
	}
}

func TestGenerateInsightBelowThresholdIsNoop(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)
	if err := EnsureQuotas(db, user.ID, false); err != nil {
		t.Fatalf("quotas: %v", err)
	}
	seedMetrics(t, db, user.ID, 6)

	provider := &mockProvider{text: "unused", tokens: 10}
	svc := newTestService(t, db, provider)

	insight, err := svc.GenerateInsight(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("below threshold must not error: %v", err)
	}
	if insight != nil {
		t.Fatalf("expected no insight, got %+v", insight)
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called below the threshold")
	}
}

func TestBuildUsageReport(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)

	logs := []models.AIRequestLogModel{
		{UserID: user.ID, RequestType: models.RequestTypeSummarize, Success: true, TokensTotal: 100, CostUSD: 0.001, ResponseTime: 0.5},
		{UserID: user.ID, RequestType: models.RequestTypeSuggestTags, Success: false, ResponseTime: 0},
		{UserID: "other-user", RequestType: models.RequestTypeSummarize, Success: true, TokensTotal: 50, CostUSD: 0.0005, ResponseTime: 0.1},
	}
	for i := range logs {
		if err := db.Create(&logs[i]).Error; err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}

	report, err := BuildUsageReport(db, time.Now())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Requests != 3 || report.Successful != 2 {
		t.Fatalf("counts: %+v", report)
	}
	if report.TokensTotal != 150 {
		t.Fatalf("tokens: %d", report.TokensTotal)
	}
	if report.UniqueUsers != 2 {
		t.Fatalf("unique users: %d", report.UniqueUsers)
	}
}

func TestRollupDailyMetrics(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)

	now := time.Now()
	completed := &models.TaskModel{
		UserID:      user.ID,
		Title:       "done",
		Status:      models.TaskStatusCompleted,
		CompletedAt: &now,
	}
	if err := db.Create(completed).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}
	past := now.Add(-48 * time.Hour)
	overdue := &models.TaskModel{
		UserID:  user.ID,
		Title:   "late",
		Status:  models.TaskStatusTodo,
		DueDate: &past,
	}
	if err := db.Create(overdue).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}

	if err := RollupDailyMetrics(db, now); err != nil {
		t.Fatalf("rollup: %v", err)
	}

	var row models.ProductivityMetricsModel
	if err := db.First(&row, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("load metrics: %v", err)
	}
	if row.TasksCreated != 2 || row.TasksCompleted != 1 || row.TasksOverdue != 1 {
		t.Fatalf("counters: %+v", row)
	}
	if row.ProductivityScore != 50 {
		t.Fatalf("score: %v", row.ProductivityScore)
	}

	// rerun must update in place, not duplicate
	if err := RollupDailyMetrics(db, now); err != nil {
		t.Fatalf("rollup again: %v", err)
	}
	var count int64
	db.Model(&models.ProductivityMetricsModel{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 metrics row, got %d", count)
	}
}
