// internal/services/checkout_flow_test.go
package services

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/myecomstore/backend/internal/gateway"
	"github.com/myecomstore/backend/internal/inventory"
	"github.com/myecomstore/backend/internal/models"
)

// fakeGateway satisfies gateway.Client without network access. Tests flip its
// fields to stage captures, failures and forged signatures.
type fakeGateway struct {
	orders        int
	failCreate    bool
	validSig      bool
	payment       *gateway.CapturedPayment
	fetchErr      error
	createdAmount int64
}

func (f *fakeGateway) CreateOrder(amountMinor int64, currency, receipt string) (string, error) {
	if f.failCreate {
		return "", gateway.ErrGatewayUnavailable
	}
	f.orders++
	f.createdAmount = amountMinor
	return fmt.Sprintf("order_fake_%d", f.orders), nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return f.validSig
}

func (f *fakeGateway) FetchPayment(paymentID string) (*gateway.CapturedPayment, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.payment, nil
}

// CheckoutFlowSuite runs the reserve and settle phases end to end against a
// real Postgres. It skips unless TEST_DATABASE_DSN is set.
type CheckoutFlowSuite struct {
	suite.Suite
	db         *gorm.DB
	ledger     *inventory.Ledger
	gw         *fakeGateway
	checkout   *CheckoutService
	settlement *SettlementService
	customer   *models.Customer
	product    *models.Product
}

func TestCheckoutFlowSuite(t *testing.T) {
	if os.Getenv("TEST_DATABASE_DSN") == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	suite.Run(t, new(CheckoutFlowSuite))
}

func (s *CheckoutFlowSuite) SetupSuite() {
	db, err := gorm.Open(postgres.Open(os.Getenv("TEST_DATABASE_DSN")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(s.T(), err)
	require.NoError(s.T(), db.AutoMigrate(
		&models.Customer{}, &models.Product{}, &models.StockReservation{},
		&models.PricingSettings{}, &models.Payment{}, &models.PaymentItem{},
		&models.Order{}, &models.OrderItem{}, &models.Invoice{}, &models.Notification{},
	))
	s.db = db
	s.ledger = inventory.NewLedger()
}

func (s *CheckoutFlowSuite) SetupTest() {
	for _, table := range []string{
		"notifications", "invoices", "order_items", "orders", "payment_items",
		"payments", "stock_reservations", "pricing_settings", "products", "customers",
	} {
		s.db.Exec("DELETE FROM " + table)
	}

	require.NoError(s.T(), s.db.Create(&models.PricingSettings{
		TaxPercent:     decimal.NewFromInt(18),
		ShippingCharge: decimal.NewFromInt(50),
		Currency:       "INR",
	}).Error)

	s.customer = &models.Customer{FullName: "Flow Tester", Email: "flow@example.com", IsActive: true}
	require.NoError(s.T(), s.customer.SetPassword("password123"))
	require.NoError(s.T(), s.db.Create(s.customer).Error)

	s.product = &models.Product{
		Name:          "Flow Product",
		Price:         decimal.NewFromInt(100),
		Category:      "test",
		StockQuantity: 10,
		IsAvailable:   true,
	}
	require.NoError(s.T(), s.db.Create(s.product).Error)

	s.gw = &fakeGateway{validSig: true}
	notifications := NewNotificationService(s.db)
	s.checkout = NewCheckoutService(s.db, s.ledger, s.gw, nil, time.Minute, "INR")
	s.settlement = NewSettlementService(s.db, s.ledger, s.gw, notifications, nil)
}

func (s *CheckoutFlowSuite) reserveOnline(qty int) *ReserveResponse {
	resp, err := s.checkout.Reserve(s.customer.ID, &ReserveRequest{
		Items:         []CartLine{{ProductID: s.product.ID, Quantity: qty}},
		PaymentMethod: models.PaymentMethodOnline,
	})
	s.Require().NoError(err)
	return resp
}

func (s *CheckoutFlowSuite) stageCapture(amountMinor int64) {
	s.gw.payment = &gateway.CapturedPayment{
		ID:          "pay_fake",
		Status:      "captured",
		AmountMinor: amountMinor,
		Currency:    "INR",
	}
}

func (s *CheckoutFlowSuite) verifyRequest(resp *ReserveResponse) *VerifyPaymentRequest {
	return &VerifyPaymentRequest{
		GatewayOrderID:   resp.GatewayOrderID,
		GatewayPaymentID: "pay_fake",
		Signature:        "sig",
		ShippingAddress:  "12 Test Street, Test City",
	}
}

func (s *CheckoutFlowSuite) TestReserveQuotesAndHolds() {
	resp := s.reserveOnline(2)

	// 2 x 100 = 200 subtotal, 36 tax, 50 shipping, 286 payable.
	s.Equal("200.00", resp.Totals.Subtotal.StringFixed(2))
	s.Equal("36.00", resp.Totals.Tax.StringFixed(2))
	s.Equal("286", resp.Totals.Total.String())
	s.Equal(int64(28600), resp.AmountMinor)
	s.Equal(int64(28600), s.gw.createdAmount)
	s.NotEmpty(resp.GatewayOrderID)

	available, err := s.ledger.Availability(s.db, s.product.ID)
	s.Require().NoError(err)
	s.Equal(8, available)

	var payment models.Payment
	s.Require().NoError(s.db.First(&payment, "gateway_order_id = ?", resp.GatewayOrderID).Error)
	s.Equal(models.PaymentStatusCreated, payment.Status)
	s.Equal("286", payment.Amount.String())
	s.Equal("18", payment.TaxPercent.String())

	var items []models.PaymentItem
	s.Require().NoError(s.db.Where("payment_id = ?", payment.ID).Find(&items).Error)
	s.Require().Len(items, 1)
	s.Equal(s.product.ID, items[0].ProductID)
	s.Equal(2, items[0].Quantity)
	s.Equal("100", items[0].UnitPrice.String())
}

func (s *CheckoutFlowSuite) TestGatewayFailureReleasesHolds() {
	s.gw.failCreate = true

	_, err := s.checkout.Reserve(s.customer.ID, &ReserveRequest{
		Items:         []CartLine{{ProductID: s.product.ID, Quantity: 2}},
		PaymentMethod: models.PaymentMethodOnline,
	})
	s.ErrorIs(err, gateway.ErrGatewayUnavailable)

	available, err := s.ledger.Availability(s.db, s.product.ID)
	s.Require().NoError(err)
	s.Equal(10, available)
}

func (s *CheckoutFlowSuite) TestSettleCreatesOrder() {
	resp := s.reserveOnline(2)
	s.stageCapture(resp.AmountMinor)

	order, err := s.settlement.Settle(s.customer.ID, s.verifyRequest(resp))
	s.Require().NoError(err)
	s.Equal(models.OrderStatusConfirmed, order.Status)
	s.Equal(models.OrderPaymentSuccess, order.PaymentStatus)
	s.Equal("286", order.TotalAmount.String())
	s.Require().Len(order.Items, 1)
	s.Equal(2, order.Items[0].Quantity)

	var refreshed models.Product
	s.Require().NoError(s.db.First(&refreshed, "id = ?", s.product.ID).Error)
	s.Equal(8, refreshed.StockQuantity)

	var invoice models.Invoice
	s.Require().NoError(s.db.First(&invoice, "order_id = ?", order.ID).Error)
	s.NotEmpty(invoice.InvoiceNumber)

	var notification models.Notification
	s.Require().NoError(s.db.First(&notification,
		"customer_id = ? AND type = ?", s.customer.ID, models.NotificationTypeOrderConfirmed).Error)
	s.Equal(order.OrderNumber, notification.Metadata["order_number"])
	s.Equal("286", notification.Metadata["total_amount"])
}

func (s *CheckoutFlowSuite) TestSettleIsIdempotent() {
	resp := s.reserveOnline(2)
	s.stageCapture(resp.AmountMinor)
	req := s.verifyRequest(resp)

	first, err := s.settlement.Settle(s.customer.ID, req)
	s.Require().NoError(err)
	second, err := s.settlement.Settle(s.customer.ID, req)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(first.OrderNumber, second.OrderNumber)

	var refreshed models.Product
	s.Require().NoError(s.db.First(&refreshed, "id = ?", s.product.ID).Error)
	s.Equal(8, refreshed.StockQuantity)

	var orders int64
	s.db.Model(&models.Order{}).Count(&orders)
	s.Equal(int64(1), orders)
}

func (s *CheckoutFlowSuite) TestSettleRejectsForgedSignature() {
	resp := s.reserveOnline(1)
	s.stageCapture(resp.AmountMinor)
	s.gw.validSig = false

	_, err := s.settlement.Settle(s.customer.ID, s.verifyRequest(resp))
	s.ErrorIs(err, ErrSignatureInvalid)

	// No mutation happened: the hold is intact and no order exists.
	var orders int64
	s.db.Model(&models.Order{}).Count(&orders)
	s.Equal(int64(0), orders)

	available, err := s.ledger.Availability(s.db, s.product.ID)
	s.Require().NoError(err)
	s.Equal(9, available)
}

func (s *CheckoutFlowSuite) TestSettleRejectsUncapturedPayment() {
	resp := s.reserveOnline(1)
	s.stageCapture(resp.AmountMinor)
	s.gw.payment.Status = "authorized"

	_, err := s.settlement.Settle(s.customer.ID, s.verifyRequest(resp))
	s.ErrorIs(err, ErrPaymentNotCaptured)
}

func (s *CheckoutFlowSuite) TestSettleRejectsShortPayment() {
	resp := s.reserveOnline(1)
	s.stageCapture(resp.AmountMinor - 100)

	_, err := s.settlement.Settle(s.customer.ID, s.verifyRequest(resp))
	s.ErrorIs(err, ErrAmountMismatch)

	var payment models.Payment
	s.Require().NoError(s.db.First(&payment, "gateway_order_id = ?", resp.GatewayOrderID).Error)
	s.Equal(models.PaymentStatusCreated, payment.Status)
}

func (s *CheckoutFlowSuite) TestSettleUnknownGatewayOrder() {
	s.stageCapture(1000)

	_, err := s.settlement.Settle(s.customer.ID, &VerifyPaymentRequest{
		GatewayOrderID:   "order_unknown",
		GatewayPaymentID: "pay_fake",
		Signature:        "sig",
		ShippingAddress:  "12 Test Street, Test City",
	})
	s.ErrorIs(err, ErrPaymentRecordMissing)
}

func (s *CheckoutFlowSuite) TestSettleAfterExpiryFails() {
	checkout := NewCheckoutService(s.db, s.ledger, s.gw, nil, 10*time.Millisecond, "INR")
	resp, err := checkout.Reserve(s.customer.ID, &ReserveRequest{
		Items:         []CartLine{{ProductID: s.product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodOnline,
	})
	s.Require().NoError(err)
	time.Sleep(20 * time.Millisecond)
	s.stageCapture(resp.AmountMinor)

	_, err = s.settlement.Settle(s.customer.ID, s.verifyRequest(resp))
	s.ErrorIs(err, inventory.ErrReservationExpired)
}

func (s *CheckoutFlowSuite) TestSettleCommitsOnlyPaidCart() {
	resp := s.reserveOnline(2)

	// A second reservation for a different cart lands between the gateway
	// order and its callback. It must not be swept into the settlement.
	other := &models.Product{
		Name:          "Other Product",
		Price:         decimal.NewFromInt(250),
		Category:      "test",
		StockQuantity: 4,
		IsAvailable:   true,
	}
	s.Require().NoError(s.db.Create(other).Error)
	codResp, err := s.checkout.Reserve(s.customer.ID, &ReserveRequest{
		Items:         []CartLine{{ProductID: other.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCashOnDelivery,
	})
	s.Require().NoError(err)
	s.NotEmpty(codResp.ReservationID)

	s.stageCapture(resp.AmountMinor)
	order, err := s.settlement.Settle(s.customer.ID, s.verifyRequest(resp))
	s.Require().NoError(err)
	s.Require().Len(order.Items, 1)
	s.Equal(s.product.ID, order.Items[0].ProductID)
	s.Equal("286", order.TotalAmount.String())

	// The later cart's hold and stock are untouched.
	var hold models.StockReservation
	s.Require().NoError(s.db.First(&hold, "product_id = ?", other.ID).Error)
	s.Equal(1, hold.Quantity)
	var refreshed models.Product
	s.Require().NoError(s.db.First(&refreshed, "id = ?", other.ID).Error)
	s.Equal(4, refreshed.StockQuantity)
}

func (s *CheckoutFlowSuite) TestSettleRejectsDisabledCustomer() {
	resp := s.reserveOnline(1)
	s.stageCapture(resp.AmountMinor)
	s.Require().NoError(s.db.Model(s.customer).Update("is_active", false).Error)

	_, err := s.settlement.Settle(s.customer.ID, s.verifyRequest(resp))
	s.ErrorIs(err, ErrCustomerNotFound)

	_, err = s.settlement.SettleCashOnDelivery(s.customer.ID, &CashOnDeliveryRequest{
		ReservationID:   "cod_whatever",
		ShippingAddress: "12 Test Street, Test City",
	})
	s.ErrorIs(err, ErrCustomerNotFound)
}

func (s *CheckoutFlowSuite) TestCashOnDeliveryFlow() {
	resp, err := s.checkout.Reserve(s.customer.ID, &ReserveRequest{
		Items:         []CartLine{{ProductID: s.product.ID, Quantity: 3}},
		PaymentMethod: models.PaymentMethodCashOnDelivery,
	})
	s.Require().NoError(err)
	s.Empty(resp.GatewayOrderID)
	s.NotEmpty(resp.ReservationID)
	s.Equal(0, s.gw.orders)

	order, err := s.settlement.SettleCashOnDelivery(s.customer.ID, &CashOnDeliveryRequest{
		ReservationID:   resp.ReservationID,
		ShippingAddress: "12 Test Street, Test City",
	})
	s.Require().NoError(err)
	s.Equal(models.PaymentMethodCashOnDelivery, order.PaymentMethod)
	s.Equal(models.OrderPaymentPending, order.PaymentStatus)
	s.Equal("404", order.TotalAmount.String())

	var refreshed models.Product
	s.Require().NoError(s.db.First(&refreshed, "id = ?", s.product.ID).Error)
	s.Equal(7, refreshed.StockQuantity)

	// A double-submitted confirm returns the original order without touching
	// stock again.
	again, err := s.settlement.SettleCashOnDelivery(s.customer.ID, &CashOnDeliveryRequest{
		ReservationID:   resp.ReservationID,
		ShippingAddress: "12 Test Street, Test City",
	})
	s.Require().NoError(err)
	s.Equal(order.ID, again.ID)
	s.Require().NoError(s.db.First(&refreshed, "id = ?", s.product.ID).Error)
	s.Equal(7, refreshed.StockQuantity)
}

func (s *CheckoutFlowSuite) TestDeliveryCollectsCashOnDelivery() {
	resp, err := s.checkout.Reserve(s.customer.ID, &ReserveRequest{
		Items:         []CartLine{{ProductID: s.product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCashOnDelivery,
	})
	s.Require().NoError(err)

	order, err := s.settlement.SettleCashOnDelivery(s.customer.ID, &CashOnDeliveryRequest{
		ReservationID:   resp.ReservationID,
		ShippingAddress: "12 Test Street, Test City",
	})
	s.Require().NoError(err)

	orders := NewOrderService(s.db, NewNotificationService(s.db))
	_, err = orders.UpdateStatus(order.ID, &UpdateStatusRequest{Status: models.OrderStatusShipped})
	s.Require().NoError(err)
	updated, err := orders.UpdateStatus(order.ID, &UpdateStatusRequest{Status: models.OrderStatusDelivered})
	s.Require().NoError(err)

	s.Equal(models.OrderPaymentSuccess, updated.PaymentStatus)
	s.NotNil(updated.DeliveredAt)

	var payment models.Payment
	s.Require().NoError(s.db.First(&payment, "order_id = ?", order.ID).Error)
	s.Equal(models.PaymentStatusSuccess, payment.Status)
}
