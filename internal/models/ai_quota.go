package models

import "time"

// Quota periods.
const (
	QuotaPeriodDaily   = "daily"
	QuotaPeriodWeekly  = "weekly"
	QuotaPeriodMonthly = "monthly"
)

// AIQuotaModel tracks per-user, per-period AI usage limits and counters.
// Limits are soft: enforced at admission time, never as a DB constraint,
// and consumption happens only after a successful provider call.
type AIQuotaModel struct {
	Base
	UserID       string    `json:"user_id"       gorm:"uniqueIndex:idx_quota_user_period;not null"`
	Period       string    `json:"period"        gorm:"uniqueIndex:idx_quota_user_period;not null"`
	MaxRequests  int       `json:"max_requests"`
	MaxTokens    int       `json:"max_tokens"`
	UsedRequests int       `json:"used_requests" gorm:"default:0"`
	UsedTokens   int       `json:"used_tokens"   gorm:"default:0"`
	ResetAt      time.Time `json:"reset_at"`
	IsActive     bool      `json:"is_active"     gorm:"default:true;index"`
}

func (AIQuotaModel) TableName() string { return "ai_quotas" }

// RequestsRemaining never goes negative even if counters overshoot.
func (q *AIQuotaModel) RequestsRemaining() int {
	if r := q.MaxRequests - q.UsedRequests; r > 0 {
		return r
	}
	return 0
}

func (q *AIQuotaModel) TokensRemaining() int {
	if r := q.MaxTokens - q.UsedTokens; r > 0 {
		return r
	}
	return 0
}

// CanMakeRequest evaluates the admission rule against in-memory counters.
// Callers must run reset-if-elapsed first.
func (q *AIQuotaModel) CanMakeRequest(estimatedTokens int) bool {
	if !q.IsActive {
		return false
	}
	if q.UsedRequests >= q.MaxRequests {
		return false
	}
	if q.UsedTokens+estimatedTokens > q.MaxTokens {
		return false
	}
	return true
}

// PeriodDuration returns the fixed, calendar-naive length of a quota period.
func PeriodDuration(period string) time.Duration {
	switch period {
	case QuotaPeriodDaily:
		return 24 * time.Hour
	case QuotaPeriodWeekly:
		return 7 * 24 * time.Hour
	default: // monthly
		return 30 * 24 * time.Hour
	}
}
