package note

import (
	"context"
	"testing"
	"time"

	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/pkg/taskqueue"
	"github.com/flowdeck/core/internal/testutil"
)

type stubProcessor struct {
	ifNeeded []string
	forced   []string
}

func (s *stubProcessor) EnqueueNoteIfNeeded(ctx context.Context, note *models.NoteModel) (*taskqueue.Task, error) {
	if !note.NeedsAIProcessing() {
		return nil, nil
	}
	s.ifNeeded = append(s.ifNeeded, note.ID)
	return &taskqueue.Task{ID: "job-" + note.ID, Status: taskqueue.TaskPending}, nil
}

func (s *stubProcessor) EnqueueNoteProcessing(ctx context.Context, noteID string) (*taskqueue.Task, error) {
	s.forced = append(s.forced, noteID)
	return &taskqueue.Task{ID: "job-" + noteID, Status: taskqueue.TaskPending}, nil
}

func TestCreateEnqueuesProcessing(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)
	stub := &stubProcessor{}
	svc := NewService(db, stub)

	note, err := svc.Create(context.Background(), user.ID, CreateNoteDTO{
		Title:   "First note",
		Content: "Some content worth processing eventually.",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(stub.ifNeeded) != 1 || stub.ifNeeded[0] != note.ID {
		t.Fatalf("expected one enqueue for %s, got %v", note.ID, stub.ifNeeded)
	}
}

func TestUpdateEnqueuesOnlyOnContentChange(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)
	stub := &stubProcessor{}
	svc := NewService(db, stub)

	note, err := svc.Create(context.Background(), user.ID, CreateNoteDTO{
		Title:   "Note",
		Content: "original content",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stub.ifNeeded = nil

	pinned := true
	if _, err := svc.Update(context.Background(), user.ID, note.ID, UpdateNoteDTO{IsPinned: &pinned}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(stub.ifNeeded) != 0 {
		t.Fatalf("pin toggle must not trigger processing: %v", stub.ifNeeded)
	}

	newContent := "rewritten content"
	if _, err := svc.Update(context.Background(), user.ID, note.ID, UpdateNoteDTO{Content: &newContent}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(stub.ifNeeded) != 1 {
		t.Fatalf("content change must trigger processing: %v", stub.ifNeeded)
	}
}

func TestProcessedNoteIsNotReenqueued(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)
	stub := &stubProcessor{}
	svc := NewService(db, stub)

	note, err := svc.Create(context.Background(), user.ID, CreateNoteDTO{
		Title:   "Note",
		Content: "content",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// simulate a completed AI run after the last edit
	processed := time.Now().Add(time.Minute)
	db.Model(note).UpdateColumn("last_ai_processed", processed)
	stub.ifNeeded = nil

	title := "Renamed"
	content := note.Content // unchanged
	updated, err := svc.Update(context.Background(), user.ID, note.ID, UpdateNoteDTO{
		Title:   &title,
		Content: &content,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	// title changed, so the gate re-opens only if the edit is newer than the
	// processing stamp; the stamp is a minute ahead, so no enqueue
	if updated.NeedsAIProcessing() {
		t.Fatalf("stamp ahead of edit must gate reprocessing")
	}
	if len(stub.ifNeeded) != 0 {
		t.Fatalf("expected no enqueue, got %v", stub.ifNeeded)
	}

	// but the manual trigger always runs
	task, err := svc.Process(context.Background(), user.ID, note.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if task == nil || len(stub.forced) != 1 {
		t.Fatalf("manual trigger must always enqueue: %v", stub.forced)
	}
}

func TestDeleteScopedToOwner(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.NewUser(t, db, false)
	other := testutil.NewUser(t, db, false)
	stub := &stubProcessor{}
	svc := NewService(db, stub)

	note, err := svc.Create(context.Background(), owner.ID, CreateNoteDTO{
		Title:   "Private",
		Content: "content",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := svc.Delete(other.ID, note.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok {
		t.Fatalf("foreign user must not delete the note")
	}

	ok, err = svc.Delete(owner.ID, note.ID)
	if err != nil || !ok {
		t.Fatalf("owner delete failed: ok=%v err=%v", ok, err)
	}
}
