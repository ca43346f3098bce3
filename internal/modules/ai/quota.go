package ai

import (
	"fmt"
	"time"

	"github.com/flowdeck/core/internal/models"
	"gorm.io/gorm"
)

// Per-tier quota defaults. Premium is ten times the free tier.
const (
	freeMonthlyRequests = 100
	freeMonthlyTokens   = 10000
	freeDailyRequests   = 10
	freeDailyTokens     = 1000
	premiumMultiplier   = 10
)

// EnsureQuotas creates the daily and monthly quota rows for a user if they do
// not exist yet. Called at registration.
func EnsureQuotas(db *gorm.DB, userID string, premium bool) error {
	mult := 1
	if premium {
		mult = premiumMultiplier
	}
	now := time.Now()
	rows := []models.AIQuotaModel{
		{
			UserID:      userID,
			Period:      models.QuotaPeriodDaily,
			MaxRequests: freeDailyRequests * mult,
			MaxTokens:   freeDailyTokens * mult,
			ResetAt:     now.Add(models.PeriodDuration(models.QuotaPeriodDaily)),
			IsActive:    true,
		},
		{
			UserID:      userID,
			Period:      models.QuotaPeriodMonthly,
			MaxRequests: freeMonthlyRequests * mult,
			MaxTokens:   freeMonthlyTokens * mult,
			ResetAt:     now.Add(models.PeriodDuration(models.QuotaPeriodMonthly)),
			IsActive:    true,
		},
	}
	for i := range rows {
		var count int64
		if err := db.Model(&models.AIQuotaModel{}).
			Where("user_id = ? AND period = ?", userID, rows[i].Period).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&rows[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// ResetQuotaIfElapsed zeroes the counters and rolls reset_at forward by one
// period when the deadline has passed. The conditional WHERE makes repeated
// calls a no-op once the row has been rolled.
func ResetQuotaIfElapsed(db *gorm.DB, quota *models.AIQuotaModel, now time.Time) error {
	if quota.ResetAt.After(now) {
		return nil
	}
	next := now.Add(models.PeriodDuration(quota.Period))
	res := db.Model(&models.AIQuotaModel{}).
		Where("id = ? AND reset_at <= ?", quota.ID, now).
		Updates(map[string]interface{}{
			"used_requests": 0,
			"used_tokens":   0,
			"reset_at":      next,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		quota.UsedRequests = 0
		quota.UsedTokens = 0
		quota.ResetAt = next
	}
	return nil
}

// CheckQuota applies reset-if-elapsed to every active quota row of the user
// and then evaluates admission. Returns ErrQuotaExceeded when any active
// period cannot absorb the estimated tokens or has no requests left.
func CheckQuota(db *gorm.DB, userID string, estimatedTokens int) error {
	var quotas []models.AIQuotaModel
	if err := db.Where("user_id = ? AND is_active = ?", userID, true).Find(&quotas).Error; err != nil {
		return err
	}
	now := time.Now()
	for i := range quotas {
		if err := ResetQuotaIfElapsed(db, &quotas[i], now); err != nil {
			return err
		}
		if !quotas[i].CanMakeRequest(estimatedTokens) {
			return fmt.Errorf("%w: %s quota for user %s", ErrQuotaExceeded, quotas[i].Period, userID)
		}
	}
	return nil
}

// ConsumeQuota records one successful request against every active period.
// The increments run inside the database so concurrent workers never lose an
// update.
func ConsumeQuota(db *gorm.DB, userID string, tokensUsed int) error {
	return db.Model(&models.AIQuotaModel{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]interface{}{
			"used_requests": gorm.Expr("used_requests + 1"),
			"used_tokens":   gorm.Expr("used_tokens + ?", tokensUsed),
		}).Error
}

// SweepQuotas resets every active quota whose deadline has passed. Run
// periodically so idle users come back to a fresh budget. Returns the number
// of rows rolled.
func SweepQuotas(db *gorm.DB) (int, error) {
	var quotas []models.AIQuotaModel
	now := time.Now()
	if err := db.Where("is_active = ? AND reset_at <= ?", true, now).Find(&quotas).Error; err != nil {
		return 0, err
	}
	reset := 0
	for i := range quotas {
		before := quotas[i].ResetAt
		if err := ResetQuotaIfElapsed(db, &quotas[i], now); err != nil {
			return reset, err
		}
		if quotas[i].ResetAt.After(before) {
			reset++
		}
	}
	return reset, nil
}
