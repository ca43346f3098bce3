package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/pkg/mdtext"
	"github.com/flowdeck/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Queue task types handled by this module.
const (
	TaskTypeNoteProcess = "ai:note_process"
	TaskTypeTaskProcess = "ai:task_process"
	TaskTypeInsights    = "ai:insights"
)

// minInputWords is the floor below which content is not worth spending quota
// on.
const minInputWords = 10

// Per-operation outcome statuses inside a result bag.
const (
	opStatusOK      = "ok"
	opStatusSkipped = "skipped"
	opStatusFailed  = "failed"
)

type entityPayload struct {
	ID string `json:"id"`
}

type insightsPayload struct {
	UserID string `json:"user_id"`
}

// OpResult records the outcome of one AI operation within a job run.
type OpResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type resultBag map[string]OpResult

func (b resultBag) ok(op string) { b[op] = OpResult{Status: opStatusOK} }

func (b resultBag) skip(op, why string) {
	b[op] = OpResult{Status: opStatusSkipped, Error: why}
}
func (b resultBag) fail(op string, err error) {
	b[op] = OpResult{Status: opStatusFailed, Error: err.Error()}
}

// RegisterWorkers binds this module's queue handlers.
func (s *Service) RegisterWorkers(w *taskqueue.Worker) {
	w.Handle(TaskTypeNoteProcess, s.handleNoteTask)
	w.Handle(TaskTypeTaskProcess, s.handleTaskTask)
	w.Handle(TaskTypeInsights, s.handleInsightsTask)
}

// EnqueueNoteProcessing schedules AI processing for a note. The note id
// doubles as the dedup key, so at most one pending or running job exists per
// note at a time.
func (s *Service) EnqueueNoteProcessing(ctx context.Context, noteID string) (*taskqueue.Task, error) {
	return s.queue.Enqueue(ctx, TaskTypeNoteProcess, entityPayload{ID: noteID}, noteID)
}

// EnqueueNoteIfNeeded schedules processing only when the note was modified
// after it was last processed.
func (s *Service) EnqueueNoteIfNeeded(ctx context.Context, note *models.NoteModel) (*taskqueue.Task, error) {
	if !note.NeedsAIProcessing() {
		return nil, nil
	}
	return s.EnqueueNoteProcessing(ctx, note.ID)
}

// EnqueueTaskProcessing schedules AI processing for a task.
func (s *Service) EnqueueTaskProcessing(ctx context.Context, taskID string) (*taskqueue.Task, error) {
	return s.queue.Enqueue(ctx, TaskTypeTaskProcess, entityPayload{ID: taskID}, taskID)
}

// EnqueueTaskIfNeeded schedules processing only when the task was modified
// after it was last processed.
func (s *Service) EnqueueTaskIfNeeded(ctx context.Context, task *models.TaskModel) (*taskqueue.Task, error) {
	if !task.NeedsAIProcessing() {
		return nil, nil
	}
	return s.EnqueueTaskProcessing(ctx, task.ID)
}

// EnqueueInsights schedules insight generation for one user.
func (s *Service) EnqueueInsights(ctx context.Context, userID string) (*taskqueue.Task, error) {
	return s.queue.Enqueue(ctx, TaskTypeInsights, insightsPayload{UserID: userID}, userID)
}

func (s *Service) handleNoteTask(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload entityPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, taskqueue.NoRetry(fmt.Errorf("decode payload: %w", err))
	}
	return s.ProcessNote(ctx, payload.ID)
}

func (s *Service) handleTaskTask(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload entityPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, taskqueue.NoRetry(fmt.Errorf("decode payload: %w", err))
	}
	return s.ProcessTask(ctx, payload.ID)
}

func (s *Service) handleInsightsTask(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload insightsPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, taskqueue.NoRetry(fmt.Errorf("decode payload: %w", err))
	}
	insight, err := s.GenerateInsight(ctx, payload.UserID)
	if err != nil {
		return nil, s.classifyJobError(err)
	}
	if insight == nil {
		return resultBag{"insight": {Status: opStatusSkipped, Error: "not enough metrics"}}, nil
	}
	return resultBag{"insight": {Status: opStatusOK}}, nil
}

// ProcessNote runs every note-level AI operation independently, records the
// per-operation outcome, then writes the mutated fields and the processing
// stamp in a single update.
func (s *Service) ProcessNote(ctx context.Context, noteID string) (resultBag, error) {
	var note models.NoteModel
	if err := s.db.First(&note, "id = ?", noteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskqueue.NoRetry(fmt.Errorf("%w: note %s", ErrNotFound, noteID))
		}
		return nil, err
	}

	plain := mdtext.Extract(note.Content)
	bag := resultBag{}
	if len(strings.Fields(plain)) < minInputWords {
		for _, op := range []string{"summary", "keywords", "sentiment", "topics"} {
			bag.skip(op, "input too short")
		}
		return bag, nil
	}

	summaryLength := "medium"
	var user models.UserModel
	if err := s.db.First(&user, "id = ?", note.UserID).Error; err == nil && user.SummaryLength != "" {
		summaryLength = user.SummaryLength
	}

	updates := map[string]interface{}{}
	ref := Ref{Type: "note", ID: note.ID}
	quotaHit := false
	var retryErr error

	run := func(op string, fn func() error) {
		if quotaHit {
			bag.skip(op, "quota exceeded")
			return
		}
		err := fn()
		switch {
		case err == nil:
			bag.ok(op)
		case errors.Is(err, ErrQuotaExceeded):
			quotaHit = true
			bag.skip(op, "quota exceeded")
		default:
			bag.fail(op, err)
			if retryErr == nil && IsRetryable(err) {
				retryErr = err
			}
		}
	}

	run("summary", func() error {
		summary, err := s.Summarize(ctx, note.UserID, plain, summaryLength, ref)
		if err == nil {
			updates["ai_summary"] = summary
		}
		return err
	})
	run("keywords", func() error {
		keywords, err := s.ExtractKeywords(ctx, note.UserID, plain, 10, ref)
		if err == nil {
			updates["ai_keywords"] = models.StringArray(keywords)
		}
		return err
	})
	run("sentiment", func() error {
		sentiment, err := s.AnalyzeSentiment(ctx, note.UserID, plain, ref)
		if err == nil {
			updates["ai_sentiment"] = sentiment
		}
		return err
	})
	run("topics", func() error {
		topics, err := s.IdentifyTopics(ctx, note.UserID, plain, ref)
		if err == nil {
			updates["ai_topics"] = models.StringArray(topics)
		}
		return err
	})

	// UpdateColumns keeps updated_at untouched: an AI write is not a user
	// edit and must not re-trigger processing.
	updates["last_ai_processed"] = time.Now()
	if err := s.db.Model(&models.NoteModel{}).Where("id = ?", note.ID).UpdateColumns(updates).Error; err != nil {
		return bag, err
	}

	if retryErr != nil {
		s.logger.Warn("note processing partially failed",
			zap.String("note", note.ID), zap.Error(retryErr))
		return bag, retryErr
	}
	return bag, nil
}

// ProcessTask runs the task-level AI operations: priority analysis, time
// estimation and subtask breakdown.
func (s *Service) ProcessTask(ctx context.Context, taskID string) (resultBag, error) {
	var task models.TaskModel
	if err := s.db.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, taskqueue.NoRetry(fmt.Errorf("%w: task %s", ErrNotFound, taskID))
		}
		return nil, err
	}

	content := strings.TrimSpace(task.Title + "\n\n" + task.Description)
	if task.DueDate != nil {
		content += "\nDue: " + task.DueDate.Format("2006-01-02")
	}

	bag := resultBag{}
	if len(strings.Fields(content)) < minInputWords {
		for _, op := range []string{"priority", "time_estimate", "subtasks"} {
			bag.skip(op, "input too short")
		}
		return bag, nil
	}

	updates := map[string]interface{}{}
	ref := Ref{Type: "task", ID: task.ID}
	quotaHit := false
	var retryErr error

	run := func(op string, fn func() error) {
		if quotaHit {
			bag.skip(op, "quota exceeded")
			return
		}
		err := fn()
		switch {
		case err == nil:
			bag.ok(op)
		case errors.Is(err, ErrQuotaExceeded):
			quotaHit = true
			bag.skip(op, "quota exceeded")
		default:
			bag.fail(op, err)
			if retryErr == nil && IsRetryable(err) {
				retryErr = err
			}
		}
	}

	run("priority", func() error {
		priority, err := s.AnalyzePriority(ctx, task.UserID, content, ref)
		if err == nil {
			updates["ai_priority_suggestion"] = priority
		}
		return err
	})
	run("time_estimate", func() error {
		minutes, err := s.EstimateTime(ctx, task.UserID, content, ref)
		if err == nil {
			updates["ai_time_estimate"] = minutes
		}
		return err
	})
	run("subtasks", func() error {
		subtasks, err := s.BreakDownTask(ctx, task.UserID, content, ref)
		if err == nil {
			updates["ai_subtasks"] = models.StringArray(subtasks)
		}
		return err
	})

	updates["last_ai_processed"] = time.Now()
	if err := s.db.Model(&models.TaskModel{}).Where("id = ?", task.ID).UpdateColumns(updates).Error; err != nil {
		return bag, err
	}

	if retryErr != nil {
		s.logger.Warn("task processing partially failed",
			zap.String("task", task.ID), zap.Error(retryErr))
		return bag, retryErr
	}
	return bag, nil
}

func (s *Service) classifyJobError(err error) error {
	if err == nil {
		return nil
	}
	if !IsRetryable(err) {
		return taskqueue.NoRetry(err)
	}
	return err
}
