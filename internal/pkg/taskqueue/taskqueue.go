package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisc "github.com/flowdeck/core/internal/pkg/redis"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Task is a unit of background work stored in Redis.
type Task struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Status     TaskStatus      `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Attempts   int             `json:"attempts"`
	MaxRetries int             `json:"max_retries"`
	DedupKey   string          `json:"dedup_key,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

const (
	keyPrefix   = "fd:task:"
	keyIndex    = "fd:tasks:index"   // sorted set: score=created_at, member=task_id
	keyReady    = "fd:tasks:ready"   // list of task ids ready to run
	keyDelayed  = "fd:tasks:delayed" // sorted set: score=run_at_ms, member=task_id
	keyDedupSet = "fd:tasks:dedup:"  // hash per type: dedup_key -> task_id
	taskTTL     = 7 * 24 * time.Hour

	// DefaultMaxRetries bounds re-deliveries of a retryable task.
	DefaultMaxRetries = 3
)

// Service manages the Redis-backed durable task queue.
type Service struct {
	rc *redisc.Client
}

func NewService(rc *redisc.Client) *Service {
	return &Service{rc: rc}
}

func (s *Service) taskKey(id string) string { return keyPrefix + id }

// Enqueue creates a new task and makes it available to workers immediately.
// When dedupKey is set and an unfinished task with the same (type, dedupKey)
// exists, that task is returned instead of creating a duplicate — at most one
// in-flight task per key.
func (s *Service) Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey string) (*Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	task := &Task{
		ID:         uuid.New().String(),
		Type:       taskType,
		Payload:    payloadBytes,
		Status:     TaskPending,
		MaxRetries: DefaultMaxRetries,
		DedupKey:   dedupKey,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if dedupKey != "" {
		holder, err := s.claimDedup(ctx, taskType, dedupKey, task.ID)
		if err != nil {
			return nil, err
		}
		if holder != nil {
			return holder, nil
		}
	}

	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}

	pipe := s.rc.Raw().TxPipeline()
	pipe.Set(ctx, s.taskKey(task.ID), data, taskTTL)
	pipe.ZAdd(ctx, keyIndex, redis.Z{
		Score:  float64(task.CreatedAt.UnixMilli()),
		Member: task.ID,
	})
	pipe.LPush(ctx, keyReady, task.ID)
	_, err = pipe.Exec(ctx)
	return task, err
}

// claimDedup atomically claims the (type, dedupKey) slot for taskID via
// HSetNX, so concurrent enqueues for the same entity race on a single write.
// Returns the in-flight holder's task when the slot is already taken, or nil
// when the claim succeeded. A stale slot (holder record expired) is released
// and re-claimed.
func (s *Service) claimDedup(ctx context.Context, taskType, dedupKey, taskID string) (*Task, error) {
	key := keyDedupSet + taskType
	for attempt := 0; attempt < 3; attempt++ {
		set, err := s.rc.Raw().HSetNX(ctx, key, dedupKey, taskID).Result()
		if err != nil {
			return nil, err
		}
		if set {
			s.rc.Raw().Expire(ctx, key, taskTTL)
			return nil, nil
		}
		holderID, err := s.rc.Raw().HGet(ctx, key, dedupKey).Result()
		if err == redis.Nil {
			continue // released between HSetNX and HGet
		}
		if err != nil {
			return nil, err
		}
		holder, err := s.GetByID(ctx, holderID)
		if err != nil {
			return nil, err
		}
		if holder != nil {
			return holder, nil
		}
		// Holder's task record expired without releasing the slot.
		s.rc.Raw().HDel(ctx, key, dedupKey)
	}
	// Contended repeatedly against stale slots; take the slot outright.
	if err := s.rc.Raw().HSet(ctx, key, dedupKey, taskID).Err(); err != nil {
		return nil, err
	}
	s.rc.Raw().Expire(ctx, key, taskTTL)
	return nil, nil
}

// GetByID retrieves a task by its ID. Returns (nil, nil) when missing.
func (s *Service) GetByID(ctx context.Context, id string) (*Task, error) {
	data, err := s.rc.Raw().Get(ctx, s.taskKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var task Task
	return &task, json.Unmarshal(data, &task)
}

func (s *Service) save(ctx context.Context, task *Task) error {
	task.UpdatedAt = time.Now()
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.rc.Raw().Set(ctx, s.taskKey(task.ID), data, taskTTL).Err()
}

func (s *Service) releaseDedup(ctx context.Context, task *Task) {
	if task.DedupKey != "" {
		s.rc.Raw().HDel(ctx, keyDedupSet+task.Type, task.DedupKey)
	}
}

// UpdateStatus sets a task's status and optional result/error. Terminal
// statuses release the dedup key so future enqueues create a fresh task.
func (s *Service) UpdateStatus(ctx context.Context, id string, status TaskStatus, result interface{}, errMsg string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil || task == nil {
		return fmt.Errorf("task not found")
	}

	task.Status = status
	task.Error = errMsg
	if result != nil {
		task.Result, _ = json.Marshal(result)
	}

	if status == TaskCompleted || status == TaskFailed || status == TaskCancelled {
		s.releaseDedup(ctx, task)
	}
	return s.save(ctx, task)
}

// scheduleRetry re-queues a task after delay, keeping the dedup key held so
// the entity stays single-flight across the retry window.
func (s *Service) scheduleRetry(ctx context.Context, task *Task, delay time.Duration) error {
	task.Status = TaskPending
	if err := s.save(ctx, task); err != nil {
		return err
	}
	runAt := time.Now().Add(delay)
	return s.rc.Raw().ZAdd(ctx, keyDelayed, redis.Z{
		Score:  float64(runAt.UnixMilli()),
		Member: task.ID,
	}).Err()
}

// promoteDue moves delayed tasks whose run time has arrived onto the ready list.
func (s *Service) promoteDue(ctx context.Context) error {
	now := float64(time.Now().UnixMilli())
	ids, err := s.rc.Raw().ZRangeByScore(ctx, keyDelayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil || len(ids) == 0 {
		return err
	}
	pipe := s.rc.Raw().TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, keyDelayed, id)
		pipe.LPush(ctx, keyReady, id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// popReady blocks up to timeout waiting for the next ready task id.
// Returns "" when the timeout elapses with nothing to do.
func (s *Service) popReady(ctx context.Context, timeout time.Duration) (string, error) {
	vals, err := s.rc.Raw().BRPop(ctx, timeout, keyReady).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(vals) != 2 {
		return "", nil
	}
	return vals[1], nil
}

// List returns tasks matching optional filters, newest first.
func (s *Service) List(ctx context.Context, page, size int, taskType *string, status *TaskStatus) ([]*Task, int64, error) {
	ids, err := s.rc.Raw().ZRevRange(ctx, keyIndex, 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}

	var tasks []*Task
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil || task == nil {
			continue
		}
		if taskType != nil && task.Type != *taskType {
			continue
		}
		if status != nil && task.Status != *status {
			continue
		}
		tasks = append(tasks, task)
	}

	total := int64(len(tasks))
	start := (page - 1) * size
	end := start + size
	if start >= len(tasks) {
		return []*Task{}, total, nil
	}
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[start:end], total, nil
}

// Cancel marks a task as cancelled if it is still pending.
func (s *Service) Cancel(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil || task == nil {
		return fmt.Errorf("task not found")
	}
	if task.Status != TaskPending {
		return fmt.Errorf("can only cancel pending tasks")
	}
	return s.UpdateStatus(ctx, id, TaskCancelled, nil, "cancelled by user")
}

// DeleteCompleted removes finished tasks created before beforeMS (0 = all).
func (s *Service) DeleteCompleted(ctx context.Context, beforeMS int64) error {
	ids, _ := s.rc.Raw().ZRange(ctx, keyIndex, 0, -1).Result()
	pipe := s.rc.Raw().TxPipeline()
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil || task == nil {
			continue
		}
		if task.Status != TaskCompleted && task.Status != TaskFailed && task.Status != TaskCancelled {
			continue
		}
		if beforeMS > 0 && task.CreatedAt.UnixMilli() >= beforeMS {
			continue
		}
		pipe.Del(ctx, s.taskKey(id))
		pipe.ZRem(ctx, keyIndex, id)
		if task.DedupKey != "" {
			pipe.HDel(ctx, keyDedupSet+task.Type, task.DedupKey)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}
