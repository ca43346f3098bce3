package ai

import (
	"errors"
	"testing"

	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/testutil"
)

func TestResolveTemplateByName(t *testing.T) {
	db := testutil.NewDB(t)

	tpl, err := ResolveTemplate(db, models.RequestTypeSummarize, "summarize_short")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tpl.Name != "summarize_short" {
		t.Fatalf("got %q", tpl.Name)
	}
}

func TestResolveTemplateDefaultIsDeterministic(t *testing.T) {
	db := testutil.NewDB(t)

	first, err := ResolveTemplate(db, models.RequestTypeSummarize, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := ResolveTemplate(db, models.RequestTypeSummarize, "")
		if err != nil {
			t.Fatalf("resolve #%d: %v", i, err)
		}
		if again.ID != first.ID {
			t.Fatalf("lookup not deterministic: %s vs %s", again.ID, first.ID)
		}
	}
}

func TestResolveTemplateSkipsInactive(t *testing.T) {
	db := testutil.NewDB(t)

	if err := db.Model(&models.AITemplateModel{}).
		Where("template_type = ?", models.RequestTypeAnalyzeSentiment).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := ResolveTemplate(db, models.RequestTypeAnalyzeSentiment, "")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestRenderTemplate(t *testing.T) {
	tpl := &models.AITemplateModel{
		Name:       "test",
		PromptText: "Summarize {content} using at most {count} words.",
	}
	out, err := RenderTemplate(tpl, map[string]string{"content": "hello", "count": "5"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Summarize hello using at most 5 words." {
		t.Fatalf("got %q", out)
	}
}

func TestRenderTemplateMissingVariable(t *testing.T) {
	tpl := &models.AITemplateModel{
		Name:       "test",
		PromptText: "Summarize {content} in {style} style.",
	}
	_, err := RenderTemplate(tpl, map[string]string{"content": "hello"})
	var te *TemplateError
	if !errors.As(err, &te) {
		t.Fatalf("expected TemplateError, got %v", err)
	}
	if te.Missing != "style" {
		t.Fatalf("missing = %q", te.Missing)
	}
}
