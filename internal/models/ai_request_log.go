package models

// AIRequestLogModel is the immutable record of one provider call attempt.
// Exactly one row is written per call that reached the provider, success or
// not; it is the single source of truth for usage analytics.
type AIRequestLogModel struct {
	Base
	UserID      string `json:"user_id"      gorm:"index:idx_log_user_type;not null"`
	RequestType string `json:"request_type" gorm:"index:idx_log_user_type;not null"`
	ModelUsed   string `json:"model_used"`
	TemplateID  string `json:"template_id"  gorm:"index"`

	InputText     string `json:"input_text"     gorm:"type:longtext"`
	PromptSent    string `json:"prompt_sent"    gorm:"type:longtext"`
	SystemMessage string `json:"system_message" gorm:"type:text"`
	ResponseText  string `json:"response_text"  gorm:"type:longtext"`

	TokensInput  int     `json:"tokens_input"  gorm:"default:0"`
	TokensOutput int     `json:"tokens_output" gorm:"default:0"`
	TokensTotal  int     `json:"tokens_total"  gorm:"default:0"`
	ResponseTime float64 `json:"response_time"` // seconds
	CostUSD      float64 `json:"cost_usd"      gorm:"default:0"`

	Success      bool   `json:"success"       gorm:"index"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message" gorm:"type:text"`

	// Polymorphic back-reference to the originating entity.
	RefType string `json:"ref_type"`
	RefID   string `json:"ref_id" gorm:"index"`

	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent" gorm:"type:text"`
}

func (AIRequestLogModel) TableName() string { return "ai_request_logs" }
