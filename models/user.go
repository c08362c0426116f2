package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleAgent UserRole = "AGENT"
	RoleUser  UserRole = "USER"
)

// User is a member account. Identity fields (email, username, phone) are issued by the
// auth service and mirrored here by the sync worker; balance, frozen state, level and
// the completed counter are owned by this service.
type User struct {
	ID             string   `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Email          string   `gorm:"uniqueIndex;not null" json:"email"`
	Username       string   `gorm:"uniqueIndex;not null" json:"username"`
	PhoneNumber    string   `gorm:"uniqueIndex;not null" json:"phone_number"`
	InvitationCode *string  `gorm:"uniqueIndex" json:"invitation_code,omitempty"`
	Role           UserRole `gorm:"type:varchar(10);default:'USER';index" json:"role"`

	// Agent that registered this user. Agents may only act on users they created.
	CreatedByID *string `gorm:"type:uuid;index" json:"created_by_id,omitempty"`

	LevelID *string `gorm:"type:uuid;index" json:"level_id,omitempty"`
	Level   *Level  `gorm:"foreignKey:LevelID" json:"level,omitempty"`

	Balance decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`

	// BalanceFrozenAmount is the pre-debit balance snapshot taken when a submission
	// could not be covered. Non-nil iff BalanceFrozen is true.
	BalanceFrozen       bool             `gorm:"default:false" json:"balance_frozen"`
	BalanceFrozenAmount *decimal.Decimal `gorm:"type:numeric(12,2)" json:"balance_frozen_amount,omitempty"`

	CompletedCount int64 `gorm:"not null;default:0" json:"completed_count"`

	IsTrainingAccount bool    `gorm:"default:false" json:"is_training_account"`
	OriginalAccountID *string `gorm:"type:uuid;index" json:"original_account_id,omitempty"`

	IsActive  bool       `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`

	Timestamps
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsAgent() bool {
	return u.Role == RoleAgent
}
