package models

import (
	"github.com/shopspring/decimal"
)

type LevelStatus string

const (
	LevelStatusActive   LevelStatus = "ACTIVE"
	LevelStatusInactive LevelStatus = "INACTIVE"
)

// DefaultFrozenCommissionRate applies when a level has no frozen_commission_rate set.
var DefaultFrozenCommissionRate = decimal.NewFromFloat(6.00)

// Level is a commission/queue-size configuration tier assigned to users.
type Level struct {
	ID          string      `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	LevelNumber int         `gorm:"uniqueIndex;not null" json:"level"`
	LevelName   string      `gorm:"not null" json:"level_name"`
	Status      LevelStatus `gorm:"type:varchar(10);default:'ACTIVE';index" json:"status"`
	Benefits    *string     `json:"benefits,omitempty"`

	// CommissionRate is a percentage, e.g. 5.50 for 5.5%.
	CommissionRate decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"commission_rate"`

	// FrozenCommissionRate is used when a user completes a task they were frozen on
	// after topping up. Nil means DefaultFrozenCommissionRate.
	FrozenCommissionRate *decimal.Decimal `gorm:"type:numeric(5,2)" json:"frozen_commission_rate,omitempty"`

	// MinOrders is the size of the task pool served to users at this level.
	MinOrders int `gorm:"not null;default:0" json:"min_orders"`

	// StartContinuousOrdersAfter: continuous orders append starting at this position + 1
	// (e.g. 8 means positions 9, 10, ...). Nil means max(0, MinOrders-10).
	StartContinuousOrdersAfter *int `json:"start_continuous_orders_after,omitempty"`

	// Price band for agreed prices, as percentages of the user's balance.
	PriceMinPercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:30" json:"price_min_percent"`
	PriceMaxPercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:70" json:"price_max_percent"`

	Products []Product `gorm:"many2many:level_products;" json:"products,omitempty"`

	Timestamps
}

func (Level) TableName() string {
	return "levels"
}

// ContinuousOrderThreshold returns the position after which continuous orders start.
func (l *Level) ContinuousOrderThreshold() int {
	if l.StartContinuousOrdersAfter != nil {
		return *l.StartContinuousOrdersAfter
	}
	t := l.MinOrders - 10
	if t < 0 {
		t = 0
	}
	return t
}

// FrozenRate returns the commission rate for frozen-eligible completions.
func (l *Level) FrozenRate() decimal.Decimal {
	if l.FrozenCommissionRate != nil {
		return *l.FrozenCommissionRate
	}
	return DefaultFrozenCommissionRate
}
