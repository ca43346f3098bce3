package user

import (
	"errors"
	"testing"

	"github.com/flowdeck/core/internal/models"
	"github.com/flowdeck/core/internal/pkg/jwt"
	"github.com/flowdeck/core/internal/testutil"
)

func TestRegisterProvisionsQuotas(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db)

	u, err := svc.Register(&RegisterDTO{
		Email:    "Person@Example.com",
		Name:     "Person",
		Password: "supersecret",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "person@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.Password == "supersecret" {
		t.Fatalf("password stored in clear")
	}

	var quotas []models.AIQuotaModel
	if err := db.Find(&quotas, "user_id = ?", u.ID).Error; err != nil {
		t.Fatalf("load quotas: %v", err)
	}
	if len(quotas) != 2 {
		t.Fatalf("expected daily and monthly quota rows, got %d", len(quotas))
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db)

	dto := &RegisterDTO{Email: "a@example.com", Name: "A", Password: "supersecret"}
	if _, err := svc.Register(dto); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(dto); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db)

	if _, err := svc.Register(&RegisterDTO{Email: "a@example.com", Name: "A", Password: "supersecret"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, u, err := svc.Login("a@example.com", "supersecret", "127.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := jwt.Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != u.ID {
		t.Fatalf("token user mismatch: %q vs %q", claims.UserID, u.ID)
	}

	if _, _, err := svc.Login("a@example.com", "wrong-password", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login("nobody@example.com", "supersecret", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdateProfileValidatesSummaryLength(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db)

	u, err := svc.Register(&RegisterDTO{Email: "a@example.com", Name: "A", Password: "supersecret"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	long := "long"
	updated, err := svc.UpdateProfile(u.ID, &UpdateProfileDTO{SummaryLength: &long})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.SummaryLength != "long" {
		t.Fatalf("got %q", updated.SummaryLength)
	}

	bad := "verbose"
	if _, err := svc.UpdateProfile(u.ID, &UpdateProfileDTO{SummaryLength: &bad}); !errors.Is(err, ErrBadSummaryLength) {
		t.Fatalf("expected ErrBadSummaryLength, got %v", err)
	}
}
