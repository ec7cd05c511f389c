// internal/models/payment.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment shadows a gateway order. Created with status "created" during the
// online reservation phase; the gateway payment id is filled in and status
// flips to "success" only inside settlement, after proof verification.
//
// TaxPercent and ShippingCharge are snapshots of PricingSettings at
// reservation time so settlement re-derives the exact quote even if the
// singleton drifted in between.
type Payment struct {
	BaseModel
	CustomerID       uuid.UUID       `json:"customer_id" gorm:"type:uuid;not null;index"`
	GatewayOrderID   string          `json:"gateway_order_id" gorm:"uniqueIndex;size:100;not null"`
	GatewayPaymentID string          `json:"gateway_payment_id" gorm:"size:100"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency         string          `json:"currency" gorm:"size:10;default:'INR'"`
	TaxPercent       decimal.Decimal `json:"tax_percent" gorm:"type:decimal(5,2);not null;default:0"`
	ShippingCharge   decimal.Decimal `json:"shipping_charge" gorm:"type:decimal(10,2);not null;default:0"`
	Method           PaymentMethod   `json:"method" gorm:"type:varchar(20);default:'online'"`
	Status           PaymentStatus   `json:"status" gorm:"type:varchar(20);default:'created';index"`
	OrderID          *uuid.UUID      `json:"order_id" gorm:"type:uuid;index"`

	// Relationships
	Customer Customer      `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Order    *Order        `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Items    []PaymentItem `json:"items,omitempty" gorm:"foreignKey:PaymentID"`
}

// PaymentItem pins one reserved cart line to its payment. Settlement commits
// exactly these lines, so holds the customer takes after reserving (for a
// different cart) are never swept into someone else's settlement.
type PaymentItem struct {
	BaseModel
	PaymentID uuid.UUID       `json:"payment_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `json:"product_id" gorm:"type:uuid;not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
}

// AmountMinorUnits returns the stored amount in the currency's minor unit
// (paise). The amount is integer-rounded at quote time, so this is exact.
func (p *Payment) AmountMinorUnits() int64 {
	return p.Amount.Mul(decimal.NewFromInt(100)).IntPart()
}
