// internal/services/checkout_service.go
package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/myecomstore/backend/internal/gateway"
	"github.com/myecomstore/backend/internal/inventory"
	"github.com/myecomstore/backend/internal/metrics"
	"github.com/myecomstore/backend/internal/models"
	"github.com/myecomstore/backend/internal/pricing"
	"github.com/myecomstore/backend/internal/utils"
)

var ErrCustomerNotFound = errors.New("customer not found")

// CheckoutService runs the reserve phase: validate the cart against the
// inventory ledger, price it authoritatively, open a gateway order and record
// a pending payment.
type CheckoutService struct {
	db       *gorm.DB
	ledger   *inventory.Ledger
	gateway  gateway.Client
	metrics  *metrics.CheckoutMetrics
	holdTTL  time.Duration
	currency string
}

type CartLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type ReserveRequest struct {
	Items         []CartLine           `json:"items" validate:"required,min=1,dive"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=online cod"`
}

type QuoteBreakdown struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
}

type ReserveResponse struct {
	ReservationOK  bool                 `json:"reservation_ok"`
	PaymentMethod  models.PaymentMethod `json:"payment_method"`
	ReservationID  string               `json:"reservation_id,omitempty"`
	GatewayOrderID string               `json:"gateway_order_id,omitempty"`
	Currency       string               `json:"currency,omitempty"`
	AmountMinor    int64                `json:"amount_minor,omitempty"`
	ReservedUntil  time.Time            `json:"reserved_until"`
	Totals         QuoteBreakdown       `json:"computed_totals"`
}

func NewCheckoutService(db *gorm.DB, ledger *inventory.Ledger, gw gateway.Client, m *metrics.CheckoutMetrics, holdTTL time.Duration, currency string) *CheckoutService {
	if holdTTL <= 0 {
		holdTTL = inventory.DefaultHoldTTL
	}
	return &CheckoutService{
		db:       db,
		ledger:   ledger,
		gateway:  gw,
		metrics:  m,
		holdTTL:  holdTTL,
		currency: currency,
	}
}

// Reserve holds every cart line, prices the cart and, for online payment,
// opens a gateway order backed by a pending Payment row.
//
// Holds are all-or-nothing: they are taken inside one transaction in
// ascending product-id order (a fixed global lock order, so two carts sharing
// two products cannot deadlock), and any line failure rolls the whole batch
// back. The gateway round-trip happens after that transaction commits —
// holding a row lock across a network call would stretch it across gateway
// latency — so a gateway failure compensates by releasing the fresh holds.
func (s *CheckoutService) Reserve(customerID uuid.UUID, req *ReserveRequest) (*ReserveResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	customer, err := resolveCustomer(s.db, customerID)
	if err != nil {
		s.countReservation("rejected")
		return nil, err
	}

	settings, err := LoadPricingSettings(s.db)
	if err != nil {
		return nil, err
	}

	lines := normalizeCart(req.Items)

	var priced []pricing.Line
	err = s.db.Transaction(func(tx *gorm.DB) error {
		priced = priced[:0]
		for _, line := range lines {
			price, err := s.ledger.CheckAndHold(tx, line.ProductID, customer.ID, line.Quantity, s.holdTTL)
			if err != nil {
				return err
			}
			priced = append(priced, pricing.Line{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: price,
			})
		}
		return nil
	})
	if err != nil {
		s.countReservation("rejected")
		return nil, err
	}

	quote := pricing.NewQuote(priced, settings.TaxPercent, settings.ShippingCharge)
	reservedUntil := time.Now().Add(s.holdTTL)

	resp := &ReserveResponse{
		ReservationOK: true,
		PaymentMethod: req.PaymentMethod,
		ReservedUntil: reservedUntil,
		Totals: QuoteBreakdown{
			Subtotal:     quote.Subtotal,
			Tax:          quote.TaxAmount,
			ShippingCost: quote.ShippingCost,
			Total:        quote.Total,
		},
	}

	// The Payment row pins the reserved cart: the line items written with it
	// are exactly what settlement will commit, no matter what other holds the
	// customer takes in the meantime.
	payment := &models.Payment{
		CustomerID:     customer.ID,
		Amount:         quote.Total,
		Currency:       s.currency,
		TaxPercent:     settings.TaxPercent,
		ShippingCharge: settings.ShippingCharge,
		Method:         req.PaymentMethod,
		Status:         models.PaymentStatusCreated,
	}
	for _, lq := range quote.Lines {
		payment.Items = append(payment.Items, models.PaymentItem{
			ProductID: lq.ProductID,
			Quantity:  lq.Quantity,
			UnitPrice: lq.UnitPrice,
		})
	}

	if req.PaymentMethod == models.PaymentMethodCashOnDelivery {
		payment.GatewayOrderID = "cod_" + uuid.NewString()
	} else {
		receipt := "rcpt_" + uuid.NewString()
		gatewayOrderID, err := s.gateway.CreateOrder(quote.TotalMinorUnits(), s.currency, receipt)
		if err != nil {
			s.releaseHolds(customer.ID, lines)
			s.countReservation("gateway_failed")
			return nil, err
		}
		payment.GatewayOrderID = gatewayOrderID
	}

	if err := s.db.Create(payment).Error; err != nil {
		s.releaseHolds(customer.ID, lines)
		s.countReservation("rejected")
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"customer_id":      customer.ID,
		"gateway_order_id": payment.GatewayOrderID,
		"method":           payment.Method,
		"amount_minor":     quote.TotalMinorUnits(),
	}).Info("Reservation created")

	if req.PaymentMethod == models.PaymentMethodCashOnDelivery {
		s.countReservation("reserved_cod")
		resp.ReservationID = payment.GatewayOrderID
		return resp, nil
	}

	s.countReservation("reserved_online")
	resp.GatewayOrderID = payment.GatewayOrderID
	resp.Currency = s.currency
	resp.AmountMinor = quote.TotalMinorUnits()
	return resp, nil
}

// releaseHolds compensates a failed online reservation. Best effort: a hold
// that survives here still dies by TTL.
func (s *CheckoutService) releaseHolds(customerID uuid.UUID, lines []CartLine) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			if err := s.ledger.ReleaseHold(tx, line.ProductID, customerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithField("customer_id", customerID).
			Warn("Failed to release holds after aborted reservation")
	}
}

func (s *CheckoutService) countReservation(outcome string) {
	if s.metrics != nil {
		s.metrics.Reservations.WithLabelValues(outcome).Inc()
	}
}

// normalizeCart merges duplicate product lines and orders the result by
// ascending product id, the fixed global lock order.
func normalizeCart(items []CartLine) []CartLine {
	merged := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		merged[item.ProductID] += item.Quantity
	}

	lines := make([]CartLine, 0, len(merged))
	for id, qty := range merged {
		lines = append(lines, CartLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ProductID.String() < lines[j].ProductID.String()
	})
	return lines
}

// LoadPricingSettings fetches the singleton tax/shipping configuration.
func LoadPricingSettings(db *gorm.DB) (*models.PricingSettings, error) {
	var settings models.PricingSettings
	if err := db.Order("created_at ASC").First(&settings).Error; err != nil {
		return nil, fmt.Errorf("pricing settings missing: %w", err)
	}
	return &settings, nil
}
