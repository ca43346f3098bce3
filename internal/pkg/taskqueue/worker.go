package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Handler processes one task. A nil error marks the task completed with the
// returned result. A non-nil error marks it failed; the worker re-queues it
// after RetryDelay unless the error is wrapped with NoRetry or the attempt
// budget is spent.
type Handler func(ctx context.Context, task *Task) (interface{}, error)

type noRetryError struct{ err error }

func (e *noRetryError) Error() string { return e.err.Error() }
func (e *noRetryError) Unwrap() error { return e.err }

// NoRetry wraps an error to mark a failure terminal: the task will not be
// re-delivered.
func NoRetry(err error) error {
	if err == nil {
		return nil
	}
	return &noRetryError{err: err}
}

func isNoRetry(err error) bool {
	var nr *noRetryError
	return errors.As(err, &nr)
}

// Worker consumes the ready list with a pool of goroutines.
type Worker struct {
	svc         *Service
	logger      *zap.Logger
	handlers    map[string]Handler
	concurrency int

	// RetryDelay is the fixed backoff between attempts of a retryable task.
	RetryDelay time.Duration
}

func NewWorker(svc *Service, logger *zap.Logger, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		svc:         svc,
		logger:      logger.Named("TaskWorker"),
		handlers:    make(map[string]Handler),
		concurrency: concurrency,
		RetryDelay:  60 * time.Second,
	}
}

// Handle registers the handler for a task type. Must be called before Start.
func (w *Worker) Handle(taskType string, h Handler) {
	w.handlers[taskType] = h
}

// Start launches the promoter and the consumer pool. It returns immediately;
// workers stop when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	go w.promoteLoop(ctx)
	for i := 0; i < w.concurrency; i++ {
		go w.consumeLoop(ctx)
	}
}

func (w *Worker) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.svc.promoteDue(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("promote delayed tasks", zap.Error(err))
			}
		}
	}
}

func (w *Worker) consumeLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		id, err := w.svc.popReady(ctx, 2*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("pop ready task", zap.Error(err))
			continue
		}
		if id == "" {
			continue
		}
		w.process(ctx, id)
	}
}

func (w *Worker) process(ctx context.Context, id string) {
	task, err := w.svc.GetByID(ctx, id)
	if err != nil || task == nil {
		return
	}
	// A task cancelled while queued must not run.
	if task.Status != TaskPending {
		return
	}

	handler, ok := w.handlers[task.Type]
	if !ok {
		w.svc.UpdateStatus(ctx, task.ID, TaskFailed, nil, fmt.Sprintf("no handler for task type %q", task.Type))
		return
	}

	task.Status = TaskRunning
	task.Attempts++
	if err := w.svc.save(ctx, task); err != nil {
		w.logger.Warn("mark task running", zap.String("task", task.ID), zap.Error(err))
		return
	}

	result, err := handler(ctx, task)
	if err == nil {
		w.svc.UpdateStatus(ctx, task.ID, TaskCompleted, result, "")
		return
	}

	if isNoRetry(err) || task.Attempts >= task.MaxRetries {
		w.logger.Warn("task failed",
			zap.String("task", task.ID),
			zap.String("type", task.Type),
			zap.Int("attempts", task.Attempts),
			zap.Error(err))
		w.svc.UpdateStatus(ctx, task.ID, TaskFailed, result, err.Error())
		return
	}

	w.logger.Info("task retry scheduled",
		zap.String("task", task.ID),
		zap.String("type", task.Type),
		zap.Int("attempt", task.Attempts),
		zap.Duration("delay", w.RetryDelay))
	task.Error = err.Error()
	if err := w.svc.scheduleRetry(ctx, task, w.RetryDelay); err != nil {
		w.logger.Warn("schedule retry", zap.String("task", task.ID), zap.Error(err))
	}
}
