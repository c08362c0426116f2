package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "ACTIVE"
	ProductStatusInactive   ProductStatus = "INACTIVE"
	ProductStatusOutOfStock ProductStatus = "OUT_OF_STOCK"
)

// Product is a catalog item that can be served to users as a review task.
type Product struct {
	ID          string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Title       string          `gorm:"index;not null" json:"title"`
	Description *string         `json:"description,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Status      ProductStatus   `gorm:"type:varchar(20);default:'ACTIVE';index" json:"status"`

	// Position is the catalog-wide display order, also the basis for insert-at-position
	// arithmetic. Dense, unique in practice; moved only by the reposition operation.
	Position int `gorm:"index;not null;default:0" json:"position"`

	// UseActualPrice disables agreed-price banding for every user of this product.
	// Set when the product is inserted at a position from the admin panel.
	UseActualPrice bool `gorm:"default:false;index" json:"use_actual_price"`

	// ActivateAt: when set on an INACTIVE product, the scheduler flips it to ACTIVE
	// once the time passes.
	ActivateAt *time.Time `json:"activate_at,omitempty"`

	Levels []Level `gorm:"many2many:level_products;" json:"-"`

	Timestamps
}

func (Product) TableName() string {
	return "products"
}
