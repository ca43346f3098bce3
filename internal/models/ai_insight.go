package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Insight types.
const (
	InsightTypeProductivityTrend = "productivity_trend"
	InsightTypeTaskPattern       = "task_pattern"
	InsightTypeTimeManagement    = "time_management"
	InsightTypeContentAnalysis   = "content_analysis"
)

// JSONMap stores arbitrary structured data as a JSON column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if m == nil {
		return fmt.Errorf("models.JSONMap: Scan on nil pointer")
	}
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models.JSONMap: unsupported Scan type %T", value)
	}
	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// AIInsightModel is a user-scoped AI-generated analytic artifact.
type AIInsightModel struct {
	Base
	UserID          string  `json:"user_id"          gorm:"index;not null"`
	InsightType     string  `json:"insight_type"     gorm:"index;not null"`
	Title           string  `json:"title"            gorm:"not null"`
	Content         string  `json:"content"          gorm:"type:text"`
	Data            JSONMap `json:"data"             gorm:"type:text"`
	ConfidenceScore float64 `json:"confidence_score" gorm:"default:0"`

	IsRead       bool       `json:"is_read"       gorm:"default:false"`
	IsActionable bool       `json:"is_actionable" gorm:"default:false"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (AIInsightModel) TableName() string { return "ai_insights" }

// IsExpired reports whether the insight has passed its expiry, if any.
func (i *AIInsightModel) IsExpired(now time.Time) bool {
	if i.ExpiresAt == nil {
		return false
	}
	return now.After(*i.ExpiresAt)
}
