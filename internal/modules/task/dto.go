package task

import "time"

type CreateTaskDTO struct {
	Title             string     `json:"title" binding:"required"`
	Description       string     `json:"description"`
	Priority          string     `json:"priority"`
	Status            string     `json:"status"`
	DueDate           *time.Time `json:"due_date"`
	EstimatedDuration *int       `json:"estimated_duration"`
	IsPinned          *bool      `json:"is_pinned"`
}

type UpdateTaskDTO struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	Priority          *string    `json:"priority"`
	Status            *string    `json:"status"`
	DueDate           *time.Time `json:"due_date"`
	EstimatedDuration *int       `json:"estimated_duration"`
	IsPinned          *bool      `json:"is_pinned"`
}
