package models

import "time"

// Note statuses.
const (
	NoteStatusDraft     = "draft"
	NoteStatusPublished = "published"
	NoteStatusArchived  = "archived"
)

// NoteModel is a user note in markdown, augmented with AI-derived fields.
type NoteModel struct {
	Base
	UserID     string `json:"user_id"     gorm:"index;not null"`
	Title      string `json:"title"       gorm:"not null"`
	Content    string `json:"content"     gorm:"type:longtext"`
	Status     string `json:"status"      gorm:"default:'draft';index"`
	IsPinned   bool   `json:"is_pinned"   gorm:"default:false"`
	IsFavorite bool   `json:"is_favorite" gorm:"default:false"`
	ViewCount  int    `json:"view_count"  gorm:"default:0"`

	// AI-derived fields, written only by the async note processor.
	AISummary   string      `json:"ai_summary"   gorm:"type:text"`
	AIKeywords  StringArray `json:"ai_keywords"  gorm:"type:text"`
	AISentiment string      `json:"ai_sentiment"`
	AITopics    StringArray `json:"ai_topics"    gorm:"type:text"`

	// Explicit column name: gorm's snake-casing mangles the AI initialism
	// mid-identifier (LastAIProcessed -> last_a_iprocessed).
	LastAIProcessed *time.Time `json:"last_ai_processed" gorm:"column:last_ai_processed"`
}

func (NoteModel) TableName() string { return "notes" }

// WordCount reports the whitespace-delimited word count of the content.
func (n *NoteModel) WordCount() int {
	return countWords(n.Content)
}

// NeedsAIProcessing reports whether the note changed since its last AI run.
func (n *NoteModel) NeedsAIProcessing() bool {
	if n.LastAIProcessed == nil {
		return true
	}
	return n.UpdatedAt.After(*n.LastAIProcessed)
}
