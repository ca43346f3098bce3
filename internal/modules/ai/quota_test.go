package ai

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/testutil"
	"gorm.io/gorm"
)

func freshQuota(t *testing.T, db *gorm.DB, userID, period string, maxReq, maxTok int) *models.AIQuotaModel {
	t.Helper()
	q := &models.AIQuotaModel{
		UserID:      userID,
		Period:      period,
		MaxRequests: maxReq,
		MaxTokens:   maxTok,
		ResetAt:     time.Now().Add(models.PeriodDuration(period)),
		IsActive:    true,
	}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("create quota: %v", err)
	}
	return q
}

func TestEnsureQuotasTiers(t *testing.T) {
	db := testutil.NewDB(t)

	free := testutil.NewUser(t, db, false)
	if err := EnsureQuotas(db, free.ID, false); err != nil {
		t.Fatalf("ensure free: %v", err)
	}
	premium := testutil.NewUser(t, db, true)
	if err := EnsureQuotas(db, premium.ID, true); err != nil {
		t.Fatalf("ensure premium: %v", err)
	}

	var monthly models.AIQuotaModel
	if err := db.First(&monthly, "user_id = ? AND period = ?", free.ID, models.QuotaPeriodMonthly).Error; err != nil {
		t.Fatalf("load monthly: %v", err)
	}
	if monthly.MaxRequests != 100 || monthly.MaxTokens != 10000 {
		t.Fatalf("free monthly limits: %d req %d tok", monthly.MaxRequests, monthly.MaxTokens)
	}

	var daily models.AIQuotaModel
	if err := db.First(&daily, "user_id = ? AND period = ?", premium.ID, models.QuotaPeriodDaily).Error; err != nil {
		t.Fatalf("load daily: %v", err)
	}
	if daily.MaxRequests != 100 || daily.MaxTokens != 10000 {
		t.Fatalf("premium daily limits: %d req %d tok", daily.MaxRequests, daily.MaxTokens)
	}

	// second call must not duplicate rows
	if err := EnsureQuotas(db, free.ID, false); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	var count int64
	db.Model(&models.AIQuotaModel{}).Where("user_id = ?", free.ID).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 quota rows, got %d", count)
	}
}

func TestCheckQuotaBlocksAtRequestLimit(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)

	q := freshQuota(t, db, user.ID, models.QuotaPeriodMonthly, 2, 1000)
	db.Model(q).Update("used_requests", 2)

	err := CheckQuota(db, user.ID, 10)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestCheckQuotaBlocksOnTokenBudget(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)

	q := freshQuota(t, db, user.ID, models.QuotaPeriodMonthly, 10, 100)
	db.Model(q).Update("used_tokens", 95)

	if err := CheckQuota(db, user.ID, 5); err != nil {
		t.Fatalf("exactly at budget should pass: %v", err)
	}
	if err := CheckQuota(db, user.ID, 6); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestCheckQuotaAllPeriodsMustPass(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)

	freshQuota(t, db, user.ID, models.QuotaPeriodMonthly, 100, 10000)
	daily := freshQuota(t, db, user.ID, models.QuotaPeriodDaily, 1, 1000)
	db.Model(daily).Update("used_requests", 1)

	if err := CheckQuota(db, user.ID, 10); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("daily exhaustion must block: %v", err)
	}
}

func TestResetQuotaIfElapsedIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)

	q := freshQuota(t, db, user.ID, models.QuotaPeriodDaily, 10, 1000)
	db.Model(q).Updates(map[string]interface{}{
		"used_requests": 7,
		"used_tokens":   700,
		"reset_at":      time.Now().Add(-time.Hour),
	})
	q.UsedRequests = 7
	q.UsedTokens = 700
	q.ResetAt = time.Now().Add(-time.Hour)

	now := time.Now()
	if err := ResetQuotaIfElapsed(db, q, now); err != nil {
		t.Fatalf("first reset: %v", err)
	}
	if q.UsedRequests != 0 || q.UsedTokens != 0 {
		t.Fatalf("counters not zeroed: %d/%d", q.UsedRequests, q.UsedTokens)
	}
	firstResetAt := q.ResetAt
	if !firstResetAt.After(now) {
		t.Fatalf("reset_at not advanced: %v", firstResetAt)
	}

	if err := ResetQuotaIfElapsed(db, q, now); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if !q.ResetAt.Equal(firstResetAt) {
		t.Fatalf("second call advanced reset_at again: %v vs %v", q.ResetAt, firstResetAt)
	}

	var stored models.AIQuotaModel
	if err := db.First(&stored, "id = ?", q.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.UsedRequests != 0 || stored.UsedTokens != 0 {
		t.Fatalf("stored counters mutated: %d/%d", stored.UsedRequests, stored.UsedTokens)
	}
}

func TestResetQuotaNotElapsedIsNoop(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)

	q := freshQuota(t, db, user.ID, models.QuotaPeriodDaily, 10, 1000)
	db.Model(q).Update("used_requests", 3)
	q.UsedRequests = 3
	before := q.ResetAt

	if err := ResetQuotaIfElapsed(db, q, time.Now()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if q.UsedRequests != 3 || !q.ResetAt.Equal(before) {
		t.Fatalf("live quota was reset")
	}
}

func TestConsumeQuotaNoLostUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.NewUser(t, db, false)

	freshQuota(t, db, user.ID, models.QuotaPeriodMonthly, 1000, 100000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ConsumeQuota(db, user.ID, 1); err != nil {
				t.Errorf("consume: %v", err)
			}
		}()
	}
	wg.Wait()

	var stored models.AIQuotaModel
	if err := db.First(&stored, "user_id = ? AND period = ?", user.ID, models.QuotaPeriodMonthly).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.UsedRequests != 50 {
		t.Fatalf("lost updates: used_requests = %d, want 50", stored.UsedRequests)
	}
	if stored.UsedTokens != 50 {
		t.Fatalf("lost updates: used_tokens = %d, want 50", stored.UsedTokens)
	}
}

func TestSweepQuotas(t *testing.T) {
	db := testutil.NewDB(t)
	userA := testutil.NewUser(t, db, false)
	userB := testutil.NewUser(t, db, false)

	expired := freshQuota(t, db, userA.ID, models.QuotaPeriodDaily, 10, 1000)
	db.Model(expired).Updates(map[string]interface{}{
		"used_requests": 5,
		"reset_at":      time.Now().Add(-2 * time.Hour),
	})
	freshQuota(t, db, userB.ID, models.QuotaPeriodDaily, 10, 1000)

	reset, err := SweepQuotas(db)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset, got %d", reset)
	}

	var stored models.AIQuotaModel
	db.First(&stored, "id = ?", expired.ID)
	if stored.UsedRequests != 0 || !stored.ResetAt.After(time.Now()) {
		t.Fatalf("expired quota not rolled: used=%d reset_at=%v", stored.UsedRequests, stored.ResetAt)
	}
}
