package models

import (
	"strings"
	"time"
)

// Task priorities and statuses.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"

	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// TaskModel is a todo item with AI-suggested planning fields.
type TaskModel struct {
	Base
	UserID      string     `json:"user_id"     gorm:"index;not null"`
	Title       string     `json:"title"       gorm:"not null"`
	Description string     `json:"description" gorm:"type:text"`
	Priority    string     `json:"priority"    gorm:"default:'medium';index"`
	Status      string     `json:"status"      gorm:"default:'todo';index"`
	DueDate     *time.Time `json:"due_date"    gorm:"index"`
	// EstimatedDuration is the user-entered estimate in minutes.
	EstimatedDuration *int `json:"estimated_duration"`
	IsPinned          bool `json:"is_pinned"   gorm:"default:false"`

	// AI-derived fields, written only by the async task processor. The
	// priority and last-processed columns carry explicit names because
	// gorm's snake-casing mangles the AI initialism mid-identifier
	// (AIPrioritySuggestion -> a_ipriority_suggestion).
	AIPrioritySuggestion string      `json:"ai_priority_suggestion" gorm:"column:ai_priority_suggestion"`
	AITimeEstimate       *int        `json:"ai_time_estimate"`
	AISubtasks           StringArray `json:"ai_subtasks" gorm:"type:text"`

	CompletedAt     *time.Time `json:"completed_at"`
	LastAIProcessed *time.Time `json:"last_ai_processed" gorm:"column:last_ai_processed"`
}

func (TaskModel) TableName() string { return "tasks" }

// IsOverdue reports whether an open task is past its due date.
func (t *TaskModel) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled {
		return false
	}
	return now.After(*t.DueDate)
}

// NeedsAIProcessing reports whether the task changed since its last AI run.
func (t *TaskModel) NeedsAIProcessing() bool {
	if t.LastAIProcessed == nil {
		return true
	}
	return t.UpdatedAt.After(*t.LastAIProcessed)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
