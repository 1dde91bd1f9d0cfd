// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Token purposes. A token authorizes exactly one lifecycle transition.
const (
	TokenPurposeVerifyEmail   = "verify_email"
	TokenPurposeResetPassword = "reset_password"
	TokenPurposeChangeEmail   = "change_email"
)

// Token TTLs. Reset links are deliberately short-lived.
const (
	VerifyTokenTTL = 24 * time.Hour
	ResetTokenTTL  = 1 * time.Hour
)

// AuthToken is a single-use, time-limited credential for account lifecycle
// transitions. Rows are deleted on consumption; expired rows are unreachable
// by valid lookups and are removed opportunistically by the purge job.
type AuthToken struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	Token   string `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Purpose string `gorm:"type:varchar(32);not null" json:"purpose"`
	// Payload carries the pending address for change_email tokens.
	Payload   string    `json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminLog is an audit row written for every moderation action.
type AdminLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AdminID      uint      `gorm:"not null;index" json:"admin_id"`
	Action       string    `gorm:"type:varchar(40);not null" json:"action"`
	TargetUserID *uint     `json:"target_user_id,omitempty"`
	TargetPostID *uint     `json:"target_post_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Moderation audit actions.
const (
	ActionBlockUser   = "block_user"
	ActionUnblockUser = "unblock_user"
	ActionBlockPost   = "block_post"
	ActionUnblockPost = "unblock_post"
)
