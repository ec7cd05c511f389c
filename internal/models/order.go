// internal/models/order.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Order struct {
	BaseModel
	CustomerID    uuid.UUID          `json:"customer_id" gorm:"type:uuid;not null;index"`
	OrderNumber   string             `json:"order_number" gorm:"uniqueIndex;size:20;not null"`
	Status        OrderStatus        `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	PaymentMethod PaymentMethod      `json:"payment_method" gorm:"type:varchar(20);default:'cod'"`
	PaymentStatus OrderPaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'pending'"`

	ShippingAddress string `json:"shipping_address" gorm:"type:text;not null"`
	BillingAddress  string `json:"billing_address" gorm:"type:text"`

	Subtotal     decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null;default:0"`
	Tax          decimal.Decimal `json:"tax" gorm:"type:decimal(10,2);not null;default:0"`
	ShippingCost decimal.Decimal `json:"shipping_cost" gorm:"type:decimal(10,2);not null;default:0"`
	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null;default:0"`

	OrderedAt   time.Time  `json:"ordered_at"`
	DeliveredAt *time.Time `json:"delivered_at"`

	// Relationships
	Customer Customer    `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Items    []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Invoice  *Invoice    `json:"invoice,omitempty" gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.OrderNumber == "" {
		o.OrderNumber = GenerateOrderNumber()
	}
	if o.OrderedAt.IsZero() {
		o.OrderedAt = time.Now()
	}
	return nil
}

// OrderItem snapshots unit price, line tax and line total at settlement time;
// they are never recomputed afterwards.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null;default:1"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Tax       decimal.Decimal `json:"tax" gorm:"type:decimal(10,2);not null;default:0"`
	Total     decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null"`

	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

type Invoice struct {
	BaseModel
	OrderID       uuid.UUID `json:"order_id" gorm:"type:uuid;not null;uniqueIndex"`
	InvoiceNumber string    `json:"invoice_number" gorm:"uniqueIndex;size:20;not null"`
	GeneratedAt   time.Time `json:"generated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.InvoiceNumber == "" {
		i.InvoiceNumber = GenerateInvoiceNumber()
	}
	if i.GeneratedAt.IsZero() {
		i.GeneratedAt = time.Now()
	}
	return nil
}

type Notification struct {
	BaseModel
	CustomerID uuid.UUID        `json:"customer_id" gorm:"type:uuid;not null;index"`
	OrderID    *uuid.UUID       `json:"order_id" gorm:"type:uuid;index"`
	Type       NotificationType `json:"type" gorm:"type:varchar(30);not null"`
	Title      string           `json:"title" gorm:"size:255"`
	Message    string           `json:"message" gorm:"type:text"`
	// Metadata carries the structured payload clients render from (order
	// number, status) so they never parse Message.
	Metadata JSONB `json:"metadata" gorm:"type:jsonb"`
	IsRead   bool  `json:"is_read" gorm:"default:false"`
}

// GenerateOrderNumber returns "ORD-" plus ten uppercase hex characters.
func GenerateOrderNumber() string {
	return "ORD-" + shortHex()
}

// GenerateInvoiceNumber returns "INV-" plus ten uppercase hex characters.
func GenerateInvoiceNumber() string {
	return "INV-" + shortHex()
}

func shortHex() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
