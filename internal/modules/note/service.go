package note

import (
	"context"
	"errors"

	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/pkg/pagination"
	"github.com/flowdeck/core/internal/pkg/response"
	"github.com/flowdeck/core/internal/pkg/taskqueue"
	"gorm.io/gorm"
)

// Processor is the slice of the AI module this module needs: scheduling a
// processing job for a note. Satisfied by *ai.Service.
type Processor interface {
	EnqueueNoteIfNeeded(ctx context.Context, note *models.NoteModel) (*taskqueue.Task, error)
	EnqueueNoteProcessing(ctx context.Context, noteID string) (*taskqueue.Task, error)
}

type Service struct {
	db *gorm.DB
	ai Processor
}

func NewService(db *gorm.DB, aiSvc Processor) *Service {
	return &Service{db: db, ai: aiSvc}
}

func (s *Service) List(userID string, q pagination.Query, status string) ([]models.NoteModel, response.Pagination, error) {
	tx := s.db.Model(&models.NoteModel{}).
		Where("user_id = ?", userID).
		Order("is_pinned DESC, created_at DESC")
	if status != "" {
		tx = tx.Where("status = ?", status)
	}

	var notes []models.NoteModel
	pag, err := pagination.Paginate(tx, q, &notes)
	return notes, pag, err
}

func (s *Service) GetByID(userID, id string) (*models.NoteModel, error) {
	var note models.NoteModel
	if err := s.db.First(&note, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

// Touch bumps the view counter without counting as a content edit.
func (s *Service) Touch(id string) {
	s.db.Model(&models.NoteModel{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
}

func (s *Service) Create(ctx context.Context, userID string, dto CreateNoteDTO) (*models.NoteModel, error) {
	note := &models.NoteModel{
		UserID:  userID,
		Title:   dto.Title,
		Content: dto.Content,
	}
	if dto.Status != "" {
		note.Status = dto.Status
	}
	if dto.IsPinned != nil {
		note.IsPinned = *dto.IsPinned
	}
	if dto.IsFavorite != nil {
		note.IsFavorite = *dto.IsFavorite
	}
	if err := s.db.Create(note).Error; err != nil {
		return nil, err
	}

	// the write path schedules AI processing explicitly; a fresh note has
	// never been processed, so this always enqueues
	if _, err := s.ai.EnqueueNoteIfNeeded(ctx, note); err != nil {
		return note, err
	}
	return note, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, dto UpdateNoteDTO) (*models.NoteModel, error) {
	note, err := s.GetByID(userID, id)
	if err != nil || note == nil {
		return note, err
	}

	contentChanged := false
	if dto.Title != nil && *dto.Title != note.Title {
		note.Title = *dto.Title
		contentChanged = true
	}
	if dto.Content != nil && *dto.Content != note.Content {
		note.Content = *dto.Content
		contentChanged = true
	}
	if dto.Status != nil {
		note.Status = *dto.Status
	}
	if dto.IsPinned != nil {
		note.IsPinned = *dto.IsPinned
	}
	if dto.IsFavorite != nil {
		note.IsFavorite = *dto.IsFavorite
	}
	if err := s.db.Save(note).Error; err != nil {
		return nil, err
	}

	if contentChanged {
		if _, err := s.ai.EnqueueNoteIfNeeded(ctx, note); err != nil {
			return note, err
		}
	}
	return note, nil
}

func (s *Service) Delete(userID, id string) (bool, error) {
	res := s.db.Delete(&models.NoteModel{}, "id = ? AND user_id = ?", id, userID)
	return res.RowsAffected > 0, res.Error
}

// Process forces an AI run for the note, regardless of whether it changed
// since the last one.
func (s *Service) Process(ctx context.Context, userID, id string) (*taskqueue.Task, error) {
	note, err := s.GetByID(userID, id)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, nil
	}
	return s.ai.EnqueueNoteProcessing(ctx, note.ID)
}
