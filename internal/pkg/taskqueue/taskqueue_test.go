package taskqueue

import (
	"context"
	"os"
	"sync"
	"testing"

	redisc "github.com/flowdeck/core/internal/pkg/redis"
	"github.com/google/uuid"
)

// newTestService connects to a local redis, skipping when none is reachable.
func newTestService(t *testing.T) *Service {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		url = "redis://localhost:6379/9"
	}
	rc, err := redisc.Connect(url)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	return NewService(rc)
}

func TestEnqueueDedupSingleFlight(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	taskType := "test:" + uuid.NewString()
	dedupKey := uuid.NewString()

	const n = 20
	var wg sync.WaitGroup
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := svc.Enqueue(ctx, taskType, map[string]string{"k": "v"}, dedupKey)
			if err != nil {
				t.Errorf("enqueue: %v", err)
				return
			}
			ids[i] = task.ID
		}(i)
	}
	wg.Wait()

	distinct := map[string]bool{}
	for _, id := range ids {
		if id != "" {
			distinct[id] = true
		}
	}
	if len(distinct) != 1 {
		t.Fatalf("expected a single in-flight task, got %d distinct ids", len(distinct))
	}
}

func TestEnqueueDedupReleasedOnCompletion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	taskType := "test:" + uuid.NewString()
	dedupKey := uuid.NewString()

	first, err := svc.Enqueue(ctx, taskType, nil, dedupKey)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	again, err := svc.Enqueue(ctx, taskType, nil, dedupKey)
	if err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("in-flight re-enqueue created a new task")
	}

	if err := svc.UpdateStatus(ctx, first.ID, TaskCompleted, nil, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	fresh, err := svc.Enqueue(ctx, taskType, nil, dedupKey)
	if err != nil {
		t.Fatalf("enqueue after completion: %v", err)
	}
	if fresh.ID == first.ID {
		t.Fatalf("dedup slot not released after completion")
	}
}
