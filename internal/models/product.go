// internal/models/product.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name          string          `json:"name" gorm:"size:300;not null"`
	Description   string          `json:"description" gorm:"type:text"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Category      string          `json:"category" gorm:"size:100;index"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null;default:0;check:stock_quantity >= 0"`
	IsAvailable   bool            `json:"is_available" gorm:"default:true"`
	Images        pq.StringArray  `json:"images" gorm:"type:text[]"`
	AverageRating decimal.Decimal `json:"average_rating" gorm:"type:decimal(3,2);default:0"`
	ViewCount     int64           `json:"view_count" gorm:"default:0"`
	SalesCount    int64           `json:"sales_count" gorm:"default:0"`

	// A product with no parent is a "main" product; products sharing a parent
	// are substitutable variants within the parent's category.
	ParentID *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`

	// Relationships
	Parent       *Product           `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Variants     []Product          `json:"variants,omitempty" gorm:"foreignKey:ParentID"`
	Reservations []StockReservation `json:"-" gorm:"foreignKey:ProductID"`
}

// StockReservation is a time-boxed soft hold of product quantity by one
// customer. Multiple customers may hold the same product at once; the sum of
// live holds shrinks the available pool. Rows whose ReservedUntil has passed
// are dead and get reclaimed lazily under the product row lock.
//
// No soft delete here: a released hold must vacate the
// (product_id, customer_id) unique index immediately so the next hold can
// upsert into it.
type StockReservation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductID     uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_reservations_customer_product"`
	CustomerID    uuid.UUID `json:"customer_id" gorm:"type:uuid;not null;uniqueIndex:idx_reservations_customer_product"`
	Quantity      int       `json:"quantity" gorm:"not null"`
	ReservedUntil time.Time `json:"reserved_until" gorm:"not null;index"`

	Product  Product  `json:"-" gorm:"foreignKey:ProductID"`
	Customer Customer `json:"-" gorm:"foreignKey:CustomerID"`
}

// Live reports whether the hold still counts against availability.
func (r *StockReservation) Live(now time.Time) bool {
	return r.ReservedUntil.After(now)
}

// PricingSettings is a singleton row read at the start of each checkout phase.
// Checkout never mutates it; reservation snapshots the values onto the Payment
// record so settlement replays the exact same quote.
type PricingSettings struct {
	BaseModel
	TaxPercent     decimal.Decimal `json:"tax_percent" gorm:"type:decimal(5,2);not null;default:0"`
	ShippingCharge decimal.Decimal `json:"shipping_charge" gorm:"type:decimal(10,2);not null;default:0"`
	Currency       string          `json:"currency" gorm:"size:10;default:'INR'"`
}
