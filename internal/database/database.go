package database

import (
	"fmt"

	"github.com/flowdeck/core/internal/config"
	"github.com/flowdeck/core/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a MySQL connection and optionally runs auto-migration.
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDev() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               cfg.Database.DSNValue(),
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	return db, nil
}

// Migrate runs GORM auto-migration for all models and seeds the default
// prompt templates.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.UserModel{},
		&models.NoteModel{},
		&models.TaskModel{},
		&models.AITemplateModel{},
		&models.AIQuotaModel{},
		&models.AIRequestLogModel{},
		&models.AIInsightModel{},
		&models.ProductivityMetricsModel{},
	); err != nil {
		return err
	}
	return seedTemplates(db)
}

// seedTemplates inserts a default active template per request type when none
// exists yet. Operators can add named variants later; seeding never updates
// existing rows.
func seedTemplates(db *gorm.DB) error {
	for _, tpl := range defaultTemplates {
		var count int64
		if err := db.Model(&models.AITemplateModel{}).
			Where("template_type = ?", tpl.TemplateType).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		t := tpl
		if err := db.Create(&t).Error; err != nil {
			return err
		}
	}
	return nil
}

var defaultTemplates = []models.AITemplateModel{
	{
		Name:          "summarize_medium",
		TemplateType:  models.RequestTypeSummarize,
		PromptText:    "Summarize the following content in 2-3 sentences:\n\n{content}",
		SystemMessage: "You are a concise writing assistant. Respond with the summary only.",
		MaxTokens:     150,
		Temperature:   0.5,
		IsActive:      true,
	},
	{
		Name:          "summarize_short",
		TemplateType:  models.RequestTypeSummarize,
		PromptText:    "Summarize the following content in one sentence:\n\n{content}",
		SystemMessage: "You are a concise writing assistant. Respond with the summary only.",
		MaxTokens:     60,
		Temperature:   0.5,
		IsActive:      true,
	},
	{
		Name:          "summarize_long",
		TemplateType:  models.RequestTypeSummarize,
		PromptText:    "Summarize the following content in one detailed paragraph:\n\n{content}",
		SystemMessage: "You are a concise writing assistant. Respond with the summary only.",
		MaxTokens:     300,
		Temperature:   0.5,
		IsActive:      true,
	},
	{
		Name:          "extract_keywords",
		TemplateType:  models.RequestTypeExtractKeywords,
		PromptText:    "Extract up to {count} keywords from the content below. Respond with a JSON array of strings.\n\n{content}",
		SystemMessage: "You respond with JSON only, no prose.",
		MaxTokens:     120,
		Temperature:   0.3,
		IsActive:      true,
	},
	{
		Name:         "analyze_sentiment",
		TemplateType: models.RequestTypeAnalyzeSentiment,
		PromptText:   "Classify the overall sentiment of the content below as positive, negative, neutral, or mixed. Respond with the single word.\n\n{content}",
		MaxTokens:    10,
		Temperature:  0,
		IsActive:     true,
	},
	{
		Name:          "suggest_tags",
		TemplateType:  models.RequestTypeSuggestTags,
		PromptText:    "Suggest up to 5 short tags for the content below. Existing tags: {existing_tags}. Respond with a JSON array of strings.\n\n{content}",
		SystemMessage: "You respond with JSON only, no prose.",
		MaxTokens:     80,
		Temperature:   0.3,
		IsActive:      true,
	},
	{
		Name:          "identify_topics",
		TemplateType:  models.RequestTypeIdentifyTopics,
		PromptText:    "List the main topics covered by the content below. Respond with a JSON array of strings.\n\n{content}",
		SystemMessage: "You respond with JSON only, no prose.",
		MaxTokens:     120,
		Temperature:   0.3,
		IsActive:      true,
	},
	{
		Name:          "task_breakdown",
		TemplateType:  models.RequestTypeTaskBreakdown,
		PromptText:    "Break the following task into concrete subtasks. Respond with a JSON array of strings, one per subtask.\n\n{content}",
		SystemMessage: "You respond with JSON only, no prose.",
		MaxTokens:     250,
		Temperature:   0.4,
		IsActive:      true,
	},
	{
		Name:         "priority_analysis",
		TemplateType: models.RequestTypePriorityAnalysis,
		PromptText:   "Assess the priority of the following task as urgent, high, medium, or low, and answer with that single word.\n\n{content}",
		MaxTokens:    10,
		Temperature:  0,
		IsActive:     true,
	},
	{
		Name:         "time_estimation",
		TemplateType: models.RequestTypeTimeEstimation,
		PromptText:   "Estimate how many minutes the following task will take. Respond with a single integer number of minutes.\n\n{content}",
		MaxTokens:    10,
		Temperature:  0,
		IsActive:     true,
	},
	{
		Name:          "productivity_insights",
		TemplateType:  models.RequestTypeProductivityInsights,
		PromptText:    "Analyze this productivity data and provide actionable insights and recommendations in 2-3 sentences:\n\n{content}",
		SystemMessage: "You are a productivity coach. Be specific and encouraging.",
		MaxTokens:     200,
		Temperature:   0.7,
		IsActive:      true,
	},
}
