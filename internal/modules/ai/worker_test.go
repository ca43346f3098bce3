package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/testutil"
	"gorm.io/gorm"
)

func createNote(t *testing.T, db *gorm.DB, userID, content string) *models.NoteModel {
	t.Helper()
	note := &models.NoteModel{
		UserID:  userID,
		Title:   "Meeting notes",
		Content: content,
		Status:  models.NoteStatusPublished,
	}
	if err := db.Create(note).Error; err != nil {
		t.Fatalf("create note: %v", err)
	}
	return note
}

const longContent = "# Plan\n\nWe discussed the quarterly roadmap, staffing, the migration " +
	"timeline and the new onboarding flow in quite some detail today."

func TestProcessNoteSuccess(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)
	if err := EnsureQuotas(db, user.ID, false); err != nil {
		t.Fatalf("quotas: %v", err)
	}
	note := createNote(t, db, user.ID, longContent)

	provider := &mockProvider{text: "positive", tokens: 50}
	svc := newTestService(t, db, provider)

	bag, err := svc.ProcessNote(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	for _, op := range []string{"summary", "keywords", "sentiment", "topics"} {
		if bag[op].Status != opStatusOK {
			t.Fatalf("op %s: %+v", op, bag[op])
		}
	}
	if provider.calls != 4 {
		t.Fatalf("expected 4 provider calls, got %d", provider.calls)
	}

	var stored models.NoteModel
	if err := db.First(&stored, "id = ?", note.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.AISummary != "positive" || stored.AISentiment != "positive" {
		t.Fatalf("fields not written: %+v", stored)
	}
	if stored.LastAIProcessed == nil {
		t.Fatalf("last_ai_processed not stamped")
	}
	if stored.NeedsAIProcessing() {
		t.Fatalf("freshly processed note must not need processing again")
	}

	// provider text is not markdown; the prompt should have received the
	// plain-text rendering, not the raw source
	var log models.AIRequestLogModel
	db.First(&log, "request_type = ?", models.RequestTypeSummarize)
	if strings.Contains(log.PromptSent, "# Plan") {
		t.Fatalf("markdown leaked into prompt: %q", log.PromptSent)
	}
}

func TestProcessNoteTooShortSkips(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)
	if err := EnsureQuotas(db, user.ID, false); err != nil {
		t.Fatalf("quotas: %v", err)
	}
	note := createNote(t, db, user.ID, "just a few words here")

	provider := &mockProvider{text: "unused", tokens: 10}
	svc := newTestService(t, db, provider)

	bag, err := svc.ProcessNote(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	for _, op := range []string{"summary", "keywords", "sentiment", "topics"} {
		if bag[op].Status != opStatusSkipped {
			t.Fatalf("op %s should be skipped: %+v", op, bag[op])
		}
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called for short content")
	}

	var logCount int64
	db.Model(&models.AIRequestLogModel{}).Count(&logCount)
	if logCount != 0 {
		t.Fatalf("short input must not spend quota or log, got %d rows", logCount)
	}
}

func TestProcessNoteNotFoundIsFatal(t *testing.T) {
	db := testutil.NewDB(t)
	provider := &mockProvider{}
	svc := newTestService(t, db, provider)

	_, err := svc.ProcessNote(context.Background(), "missing-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if IsRetryable(err) {
		t.Fatalf("vanished entity must not be retried")
	}
}

func TestProcessNoteQuotaExhaustionSkipsRemaining(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)
	// one request of budget: the first op succeeds, the rest hit the limit
	freshQuota(t, db, user.ID, models.QuotaPeriodMonthly, 1, 100000)
	note := createNote(t, db, user.ID, longContent)

	provider := &mockProvider{text: "summary text", tokens: 20}
	svc := newTestService(t, db, provider)

	bag, err := svc.ProcessNote(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("quota exhaustion is terminal, not an error: %v", err)
	}
	if bag["summary"].Status != opStatusOK {
		t.Fatalf("first op should succeed: %+v", bag["summary"])
	}
	for _, op := range []string{"keywords", "sentiment", "topics"} {
		if bag[op].Status != opStatusSkipped {
			t.Fatalf("op %s should be skipped after quota hit: %+v", op, bag[op])
		}
	}
	if provider.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.calls)
	}

	var stored models.NoteModel
	db.First(&stored, "id = ?", note.ID)
	if stored.AISummary != "summary text" || stored.LastAIProcessed == nil {
		t.Fatalf("successful op result must still be persisted: %+v", stored)
	}
}

func TestProcessNotePartialFailureStillPersists(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)
	if err := EnsureQuotas(db, user.ID, false); err != nil {
		t.Fatalf("quotas: %v", err)
	}
	note := createNote(t, db, user.ID, longContent)

	provider := &flakyProvider{failOn: 2, text: "fine", tokens: 20}
	svc := newTestService(t, db, provider)

	bag, err := svc.ProcessNote(context.Background(), note.ID)
	if err == nil {
		t.Fatalf("retryable op failure must surface for the queue")
	}
	if bag["summary"].Status != opStatusOK {
		t.Fatalf("summary should have succeeded: %+v", bag["summary"])
	}
	if bag["keywords"].Status != opStatusFailed {
		t.Fatalf("keywords should have failed: %+v", bag["keywords"])
	}
	if bag["sentiment"].Status != opStatusOK || bag["topics"].Status != opStatusOK {
		t.Fatalf("one failure must not abort the others: %+v", bag)
	}

	var stored models.NoteModel
	db.First(&stored, "id = ?", note.ID)
	if stored.AISummary != "fine" || stored.AISentiment != "fine" {
		t.Fatalf("successful fields must persist: %+v", stored)
	}
}

// flakyProvider fails exactly one call (the failOn-th) with a retryable fault.
type flakyProvider struct {
	failOn int
	text   string
	tokens int
	calls  int
}

func (f *flakyProvider) ModelName() string { return "flaky-model" }

func (f *flakyProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, &ProviderError{Kind: ErrKindUnknown, Message: "transient"}
	}
	return &Completion{
		Text:        f.text,
		TokensTotal: f.tokens,
	}, nil
}

func TestProcessTaskSuccess(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)
	if err := EnsureQuotas(db, user.ID, false); err != nil {
		t.Fatalf("quotas: %v", err)
	}
	due := time.Now().Add(48 * time.Hour)
	task := &models.TaskModel{
		UserID:      user.ID,
		Title:       "Prepare quarterly report",
		Description: "Collect the team metrics, draft the narrative and circulate it for review before Friday.",
		Priority:    models.TaskPriorityMedium,
		Status:      models.TaskStatusTodo,
		DueDate:     &due,
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}

	provider := &mockProvider{text: "high priority, roughly 90 minutes", tokens: 30}
	svc := newTestService(t, db, provider)

	bag, err := svc.ProcessTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	for _, op := range []string{"priority", "time_estimate", "subtasks"} {
		if bag[op].Status != opStatusOK {
			t.Fatalf("op %s: %+v", op, bag[op])
		}
	}

	var stored models.TaskModel
	db.First(&stored, "id = ?", task.ID)
	if stored.AIPrioritySuggestion != "high" {
		t.Fatalf("priority suggestion = %q", stored.AIPrioritySuggestion)
	}
	if stored.AITimeEstimate == nil || *stored.AITimeEstimate != 90 {
		t.Fatalf("time estimate = %v", stored.AITimeEstimate)
	}
	if stored.LastAIProcessed == nil {
		t.Fatalf("last_ai_processed not stamped")
	}
}
