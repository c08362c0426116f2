package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "PENDING"
	ReviewStatusCompleted ReviewStatus = "COMPLETED"
)

// ProductReview is the per-user record of a product task: one row per user×product,
// created lazily the first time the product is served or pinned for the user.
type ProductReview struct {
	ID        string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string  `gorm:"type:uuid;not null;uniqueIndex:idx_user_product" json:"user_id"`
	ProductID string  `gorm:"type:uuid;not null;uniqueIndex:idx_user_product" json:"product_id"`
	User      *User   `gorm:"foreignKey:UserID" json:"-"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Status     ReviewStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	ReviewText *string      `json:"review_text,omitempty"`

	// Position is set only when an operator pinned this product into the user's queue.
	Position *int `gorm:"index" json:"position,omitempty"`

	// UseActualPrice: this user sees the product at its actual price (no banding).
	// Set together with Position by the override store.
	UseActualPrice bool `gorm:"default:false;index" json:"use_actual_price"`

	// UseFrozenCommission is set when the user was frozen at submit (insufficient
	// balance); completion after top-up then pays the level's frozen rate.
	UseFrozenCommission bool `gorm:"default:false;index" json:"use_frozen_commission"`

	// AgreedPrice is the banded balance-relative price, computed once and cached.
	AgreedPrice *decimal.Decimal `gorm:"type:numeric(12,2)" json:"agreed_price,omitempty"`

	CommissionEarned decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"commission_earned"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`

	// No soft delete: progress resets must hard-delete rows so the user×product
	// unique index does not block re-serving the product later.
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ProductReview) TableName() string {
	return "product_reviews"
}
