package task

import (
	"context"
	"errors"
	"time"

	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/pkg/pagination"
	"github.com/flowdeck/core/internal/pkg/response"
	"github.com/flowdeck/core/internal/pkg/taskqueue"
	"gorm.io/gorm"
)

// Processor is the slice of the AI module this module needs. Satisfied by
// *ai.Service.
type Processor interface {
	EnqueueTaskIfNeeded(ctx context.Context, task *models.TaskModel) (*taskqueue.Task, error)
	EnqueueTaskProcessing(ctx context.Context, taskID string) (*taskqueue.Task, error)
}

type Service struct {
	db *gorm.DB
	ai Processor
}

func NewService(db *gorm.DB, aiSvc Processor) *Service {
	return &Service{db: db, ai: aiSvc}
}

func (s *Service) List(userID string, q pagination.Query, status, priority string) ([]models.TaskModel, response.Pagination, error) {
	tx := s.db.Model(&models.TaskModel{}).
		Where("user_id = ?", userID).
		Order("is_pinned DESC, due_date IS NULL ASC, due_date ASC, created_at DESC")
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	if priority != "" {
		tx = tx.Where("priority = ?", priority)
	}

	var tasks []models.TaskModel
	pag, err := pagination.Paginate(tx, q, &tasks)
	return tasks, pag, err
}

func (s *Service) GetByID(userID, id string) (*models.TaskModel, error) {
	var task models.TaskModel
	if err := s.db.First(&task, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (s *Service) Create(ctx context.Context, userID string, dto CreateTaskDTO) (*models.TaskModel, error) {
	task := &models.TaskModel{
		UserID:            userID,
		Title:             dto.Title,
		Description:       dto.Description,
		DueDate:           dto.DueDate,
		EstimatedDuration: dto.EstimatedDuration,
	}
	if dto.Priority != "" {
		task.Priority = dto.Priority
	}
	if dto.Status != "" {
		task.Status = dto.Status
	}
	if dto.IsPinned != nil {
		task.IsPinned = *dto.IsPinned
	}
	if task.Status == models.TaskStatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	}
	if err := s.db.Create(task).Error; err != nil {
		return nil, err
	}

	if _, err := s.ai.EnqueueTaskIfNeeded(ctx, task); err != nil {
		return task, err
	}
	return task, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, dto UpdateTaskDTO) (*models.TaskModel, error) {
	task, err := s.GetByID(userID, id)
	if err != nil || task == nil {
		return task, err
	}

	contentChanged := false
	if dto.Title != nil && *dto.Title != task.Title {
		task.Title = *dto.Title
		contentChanged = true
	}
	if dto.Description != nil && *dto.Description != task.Description {
		task.Description = *dto.Description
		contentChanged = true
	}
	if dto.DueDate != nil {
		if task.DueDate == nil || !task.DueDate.Equal(*dto.DueDate) {
			task.DueDate = dto.DueDate
			contentChanged = true
		}
	}
	if dto.Priority != nil {
		task.Priority = *dto.Priority
	}
	if dto.EstimatedDuration != nil {
		task.EstimatedDuration = dto.EstimatedDuration
	}
	if dto.IsPinned != nil {
		task.IsPinned = *dto.IsPinned
	}
	if dto.Status != nil && *dto.Status != task.Status {
		switch {
		case *dto.Status == models.TaskStatusCompleted:
			now := time.Now()
			task.CompletedAt = &now
		case task.Status == models.TaskStatusCompleted:
			// reopened
			task.CompletedAt = nil
		}
		task.Status = *dto.Status
	}

	if err := s.db.Save(task).Error; err != nil {
		return nil, err
	}

	if contentChanged {
		if _, err := s.ai.EnqueueTaskIfNeeded(ctx, task); err != nil {
			return task, err
		}
	}
	return task, nil
}

func (s *Service) Delete(userID, id string) (bool, error) {
	res := s.db.Delete(&models.TaskModel{}, "id = ? AND user_id = ?", id, userID)
	return res.RowsAffected > 0, res.Error
}

// Process forces an AI run for the task.
func (s *Service) Process(ctx context.Context, userID, id string) (*taskqueue.Task, error) {
	task, err := s.GetByID(userID, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	return s.ai.EnqueueTaskProcessing(ctx, task.ID)
}

// Overdue lists the user's open tasks past their due date.
func (s *Service) Overdue(userID string) ([]models.TaskModel, error) {
	var tasks []models.TaskModel
	err := s.db.
		Where("user_id = ? AND due_date IS NOT NULL AND due_date < ?", userID, time.Now()).
		Where("status NOT IN ?", []string{models.TaskStatusCompleted, models.TaskStatusCancelled}).
		Order("due_date ASC").
		Find(&tasks).Error
	return tasks, err
}
