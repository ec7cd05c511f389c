// internal/handlers/checkout.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/myecomstore/backend/internal/gateway"
	"github.com/myecomstore/backend/internal/inventory"
	"github.com/myecomstore/backend/internal/services"
	"github.com/myecomstore/backend/internal/utils"
)

// CheckoutHandler exposes the reserve and settle phases over HTTP.
type CheckoutHandler struct {
	checkout   *services.CheckoutService
	settlement *services.SettlementService
}

func NewCheckoutHandler(checkout *services.CheckoutService, settlement *services.SettlementService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, settlement: settlement}
}

// Reserve handles POST /v1/checkout/reserve
func (h *CheckoutHandler) Reserve(c *gin.Context) {
	customerID, ok := requireCustomerID(c)
	if !ok {
		return
	}

	var req services.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	resp, err := h.checkout.Reserve(customerID, &req)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	utils.SuccessResponse(c, resp)
}

// Verify handles POST /v1/checkout/verify
func (h *CheckoutHandler) Verify(c *gin.Context) {
	customerID, ok := requireCustomerID(c)
	if !ok {
		return
	}

	var req services.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.settlement.Settle(customerID, &req)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	utils.CreatedResponse(c, order)
}

// CashOnDelivery handles POST /v1/checkout/cod
func (h *CheckoutHandler) CashOnDelivery(c *gin.Context) {
	customerID, ok := requireCustomerID(c)
	if !ok {
		return
	}

	var req services.CashOnDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.settlement.SettleCashOnDelivery(customerID, &req)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	utils.CreatedResponse(c, order)
}

// respondCheckoutError maps checkout domain errors onto HTTP statuses. Stock
// contention is a conflict, unproven or short payments are payment-required,
// and a broken gateway is a bad gateway rather than our fault.
func respondCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, inventory.ErrProductNotFound):
		utils.NotFoundResponse(c, "Product")
	case errors.Is(err, services.ErrCustomerNotFound):
		utils.NotFoundResponse(c, "Customer")
	case errors.Is(err, services.ErrPaymentRecordMissing):
		utils.NotFoundResponse(c, "Payment record")
	case errors.Is(err, inventory.ErrInsufficientStock):
		utils.ConflictResponse(c, "INSUFFICIENT_STOCK", "Not enough stock to fulfil the request")
	case errors.Is(err, inventory.ErrHeldByOther):
		utils.ConflictResponse(c, "HELD_BY_OTHER", "Stock is temporarily held by other checkouts; try again shortly")
	case errors.Is(err, inventory.ErrReservationExpired), errors.Is(err, services.ErrNoLiveReservation):
		utils.ConflictResponse(c, "RESERVATION_EXPIRED", "The reservation expired; reserve again")
	case errors.Is(err, services.ErrSignatureInvalid):
		utils.BadRequestResponse(c, "Payment signature verification failed", nil)
	case errors.Is(err, services.ErrPaymentNotCaptured):
		utils.PaymentRequiredResponse(c, "PAYMENT_NOT_CAPTURED", "Payment has not been captured")
	case errors.Is(err, services.ErrAmountMismatch):
		utils.PaymentRequiredResponse(c, "AMOUNT_MISMATCH", "Paid amount does not match the reserved total")
	case errors.Is(err, gateway.ErrPaymentNotFound):
		utils.PaymentRequiredResponse(c, "PAYMENT_NOT_FOUND", "Gateway has no record of this payment")
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		utils.BadGatewayResponse(c, "Payment gateway is unavailable")
	default:
		if verrs := utils.GetValidationErrors(err); len(verrs) > 0 {
			utils.ValidationErrorResponse(c, verrs)
			return
		}
		utils.InternalErrorResponse(c, "")
	}
}

func requireCustomerID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := utils.GetCustomerIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	customerID, err := uuid.Parse(raw)
	if err != nil {
		utils.UnauthorizedResponse(c, "Invalid customer identity")
		return uuid.Nil, false
	}
	return customerID, true
}
