// internal/services/settlement_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/myecomstore/backend/internal/gateway"
	"github.com/myecomstore/backend/internal/inventory"
	"github.com/myecomstore/backend/internal/metrics"
	"github.com/myecomstore/backend/internal/models"
	"github.com/myecomstore/backend/internal/pricing"
	"github.com/myecomstore/backend/internal/utils"
)

var (
	ErrSignatureInvalid     = errors.New("payment signature verification failed")
	ErrPaymentNotCaptured   = errors.New("payment is not captured")
	ErrAmountMismatch       = errors.New("paid amount does not match the reserved total")
	ErrPaymentRecordMissing = errors.New("no payment record for gateway order")
	ErrNoLiveReservation    = errors.New("no live reservation to settle")
)

// SettlementService runs the settle phase: prove the payment against the
// gateway, then atomically convert the paid reservation's holds into an
// order.
type SettlementService struct {
	db            *gorm.DB
	ledger        *inventory.Ledger
	gateway       gateway.Client
	notifications *NotificationService
	metrics       *metrics.CheckoutMetrics
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
	ShippingAddress  string `json:"shipping_address" validate:"required,min=10"`
	BillingAddress   string `json:"billing_address"`
}

type CashOnDeliveryRequest struct {
	ReservationID   string `json:"reservation_id" validate:"required"`
	ShippingAddress string `json:"shipping_address" validate:"required,min=10"`
	BillingAddress  string `json:"billing_address"`
}

func NewSettlementService(db *gorm.DB, ledger *inventory.Ledger, gw gateway.Client, notifications *NotificationService, m *metrics.CheckoutMetrics) *SettlementService {
	return &SettlementService{
		db:            db,
		ledger:        ledger,
		gateway:       gw,
		notifications: notifications,
		metrics:       m,
	}
}

// Settle finalizes an online checkout after the gateway callback.
//
// The signature check runs before any database mutation, so a forged callback
// never touches state. The payment row pins the cart: only the lines written
// at reservation are committed, so a hold the customer took afterwards for a
// different cart survives this settlement untouched. Settlement itself is
// idempotent: the payment row is locked for the duration of the transaction,
// and a redelivered callback for an already-settled payment returns the
// original order unchanged.
func (s *SettlementService) Settle(customerID uuid.UUID, req *VerifyPaymentRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	customer, err := resolveCustomer(s.db, customerID)
	if err != nil {
		s.countSettlement("rejected")
		return nil, err
	}

	if !s.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		s.countSettlement("signature_invalid")
		return nil, ErrSignatureInvalid
	}

	captured, err := s.gateway.FetchPayment(req.GatewayPaymentID)
	if err != nil {
		s.countSettlement("gateway_failed")
		return nil, err
	}
	if !captured.Captured() {
		s.countSettlement("not_captured")
		return nil, fmt.Errorf("%w: status %q", ErrPaymentNotCaptured, captured.Status)
	}

	var order *models.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		payment, existing, err := s.lockPayment(tx, req.GatewayOrderID, customer.ID, models.PaymentMethodOnline)
		if err != nil {
			return err
		}
		if existing != nil {
			order = existing
			return nil
		}

		if captured.AmountMinor != payment.AmountMinorUnits() {
			return fmt.Errorf("%w: paid %d, reserved %d", ErrAmountMismatch, captured.AmountMinor, payment.AmountMinorUnits())
		}

		settled, err := s.commitReservation(tx, customer.ID, payment, commitParams{
			paymentStatus:   models.OrderPaymentSuccess,
			shippingAddress: req.ShippingAddress,
			billingAddress:  req.BillingAddress,
		})
		if err != nil {
			return err
		}

		// The quote replayed from the snapshots must land on the exact amount
		// the gateway captured; a divergence means the snapshot was tampered
		// with or mispriced, and nothing may settle.
		if settled.quote.TotalMinorUnits() != payment.AmountMinorUnits() {
			return fmt.Errorf("%w: recomputed %d, reserved %d", ErrAmountMismatch, settled.quote.TotalMinorUnits(), payment.AmountMinorUnits())
		}

		payment.GatewayPaymentID = req.GatewayPaymentID
		payment.Status = models.PaymentStatusSuccess
		payment.OrderID = &settled.order.ID
		if err := tx.Save(payment).Error; err != nil {
			return fmt.Errorf("failed to finalize payment: %w", err)
		}

		order = settled.order
		return nil
	})
	if err != nil {
		s.countSettlement("rejected")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"customer_id":  customer.ID,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	}).Info("Online settlement completed")

	s.countSettlement("settled")
	return order, nil
}

// SettleCashOnDelivery converts the identified reservation into an order
// without a gateway round-trip. Payment stays pending until delivery, and a
// repeated call for the same reservation returns the original order.
func (s *SettlementService) SettleCashOnDelivery(customerID uuid.UUID, req *CashOnDeliveryRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	customer, err := resolveCustomer(s.db, customerID)
	if err != nil {
		s.countSettlement("rejected")
		return nil, err
	}

	var order *models.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		payment, existing, err := s.lockPayment(tx, req.ReservationID, customer.ID, models.PaymentMethodCashOnDelivery)
		if err != nil {
			return err
		}
		if existing != nil {
			order = existing
			return nil
		}

		settled, err := s.commitReservation(tx, customer.ID, payment, commitParams{
			paymentStatus:   models.OrderPaymentPending,
			shippingAddress: req.ShippingAddress,
			billingAddress:  req.BillingAddress,
		})
		if err != nil {
			return err
		}

		// Status stays "created" until the courier collects; delivery flips it.
		payment.OrderID = &settled.order.ID
		if err := tx.Save(payment).Error; err != nil {
			return fmt.Errorf("failed to link payment: %w", err)
		}

		order = settled.order
		return nil
	})
	if err != nil {
		s.countSettlement("rejected")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"customer_id":  customer.ID,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	}).Info("Cash on delivery order placed")

	s.countSettlement("settled_cod")
	return order, nil
}

// lockPayment loads the reservation's payment row FOR UPDATE. When the row is
// already settled it returns the existing order instead (callback redelivery
// or a double-submitted COD confirm); stock was deducted exactly once.
func (s *SettlementService) lockPayment(tx *gorm.DB, gatewayOrderID string, customerID uuid.UUID, method models.PaymentMethod) (*models.Payment, *models.Order, error) {
	var payment models.Payment
	err := tx.Clauses(lockForUpdate()).
		First(&payment, "gateway_order_id = ? AND customer_id = ? AND method = ?", gatewayOrderID, customerID, method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPaymentRecordMissing
		}
		return nil, nil, fmt.Errorf("database error: %w", err)
	}

	if payment.OrderID != nil {
		var existing models.Order
		if err := tx.Preload("Items").First(&existing, "id = ?", *payment.OrderID).Error; err != nil {
			return nil, nil, fmt.Errorf("settled payment points at missing order: %w", err)
		}
		return &payment, &existing, nil
	}
	return &payment, nil, nil
}

func (s *SettlementService) countSettlement(outcome string) {
	if s.metrics != nil {
		s.metrics.Settlements.WithLabelValues(outcome).Inc()
	}
}

type commitParams struct {
	paymentStatus   models.OrderPaymentStatus
	shippingAddress string
	billingAddress  string
}

type settledReservation struct {
	order *models.Order
	quote pricing.Quote
}

// commitReservation deducts the holds for exactly the payment's pinned lines,
// replays the quote from the reservation-time snapshots, and writes the
// order, its items, the invoice and the confirmation notification inside the
// caller's transaction. Lines are walked in ascending product-id order, the
// same lock order the reserve phase uses.
func (s *SettlementService) commitReservation(tx *gorm.DB, customerID uuid.UUID, payment *models.Payment, params commitParams) (*settledReservation, error) {
	var items []models.PaymentItem
	err := tx.Where("payment_id = ?", payment.ID).
		Order("product_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoLiveReservation
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		if _, err := s.ledger.CommitDeduction(tx, item.ProductID, customerID, item.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, pricing.Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	quote := pricing.NewQuote(lines, payment.TaxPercent, payment.ShippingCharge)

	billing := params.billingAddress
	if billing == "" {
		billing = params.shippingAddress
	}

	order := &models.Order{
		CustomerID:      customerID,
		Status:          models.OrderStatusConfirmed,
		PaymentMethod:   payment.Method,
		PaymentStatus:   params.paymentStatus,
		ShippingAddress: params.shippingAddress,
		BillingAddress:  billing,
		Subtotal:        quote.Subtotal,
		Tax:             quote.TaxAmount,
		ShippingCost:    quote.ShippingCost,
		TotalAmount:     quote.Total,
	}
	if err := tx.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, lq := range quote.Lines {
		item := &models.OrderItem{
			OrderID:   order.ID,
			ProductID: lq.ProductID,
			Quantity:  lq.Quantity,
			Price:     lq.UnitPrice,
			Tax:       lq.Tax,
			Total:     lq.Total,
		}
		if err := tx.Create(item).Error; err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		order.Items = append(order.Items, *item)
	}

	invoice := &models.Invoice{OrderID: order.ID}
	if err := tx.Create(invoice).Error; err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	if s.notifications != nil {
		if err := s.notifications.NotifyOrderConfirmed(tx, order); err != nil {
			return nil, err
		}
	}

	return &settledReservation{order: order, quote: quote}, nil
}
