package models

import "time"

// ProductivityMetricsModel holds one user's activity counters for one day.
// Rows are produced by the daily rollup job and read by the insights job.
type ProductivityMetricsModel struct {
	Base
	UserID string    `json:"user_id" gorm:"uniqueIndex:idx_metrics_user_date;not null"`
	Date   time.Time `json:"date"    gorm:"uniqueIndex:idx_metrics_user_date;not null"`

	TasksCreated   int `json:"tasks_created"   gorm:"default:0"`
	TasksCompleted int `json:"tasks_completed" gorm:"default:0"`
	TasksOverdue   int `json:"tasks_overdue"   gorm:"default:0"`

	AIRequests int `json:"ai_requests" gorm:"default:0"`

	ProductivityScore float64 `json:"productivity_score" gorm:"default:0"`
}

func (ProductivityMetricsModel) TableName() string { return "productivity_metrics" }
