package models

// AI request types. Each maps to a family of prompt templates.
const (
	RequestTypeSummarize            = "summarize"
	RequestTypeExtractKeywords      = "extract_keywords"
	RequestTypeAnalyzeSentiment     = "analyze_sentiment"
	RequestTypeSuggestTags          = "suggest_tags"
	RequestTypeIdentifyTopics       = "identify_topics"
	RequestTypeTaskBreakdown        = "task_breakdown"
	RequestTypePriorityAnalysis     = "priority_analysis"
	RequestTypeTimeEstimation       = "time_estimation"
	RequestTypeProductivityInsights = "productivity_insights"
)

// AITemplateModel is a prompt template with named placeholders like {content}.
// Once a template has been rendered into a request its text is copied into the
// request log, so editing a template never rewrites history.
type AITemplateModel struct {
	Base
	Name          string  `json:"name"           gorm:"index;not null"`
	TemplateType  string  `json:"template_type"  gorm:"index;not null"`
	PromptText    string  `json:"prompt_text"    gorm:"type:text;not null"`
	SystemMessage string  `json:"system_message" gorm:"type:text"`
	MaxTokens     int     `json:"max_tokens"     gorm:"default:150"`
	Temperature   float64 `json:"temperature"    gorm:"default:0.7"`
	IsActive      bool    `json:"is_active"      gorm:"default:true;index"`
}

func (AITemplateModel) TableName() string { return "ai_templates" }
