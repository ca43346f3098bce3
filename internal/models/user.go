package models

import "time"

// UserModel represents a platform account.
type UserModel struct {
	Base
	Email         string     `json:"email"      gorm:"uniqueIndex;not null"`
	Name          string     `json:"name"`
	Password      string     `json:"-"          gorm:"column:password_hash;not null"`
	IsPremium     bool       `json:"is_premium" gorm:"default:false"`
	SummaryLength string     `json:"summary_length" gorm:"default:'medium'"` // short | medium | long
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

func (UserModel) TableName() string { return "users" }
