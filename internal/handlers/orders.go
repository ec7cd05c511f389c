// internal/handlers/orders.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/myecomstore/backend/internal/models"
	"github.com/myecomstore/backend/internal/services"
	"github.com/myecomstore/backend/internal/utils"
)

type OrderHandler struct {
	orders        *services.OrderService
	notifications *services.NotificationService
}

func NewOrderHandler(orders *services.OrderService, notifications *services.NotificationService) *OrderHandler {
	return &OrderHandler{orders: orders, notifications: notifications}
}

// List handles GET /v1/orders
func (h *OrderHandler) List(c *gin.Context) {
	customerID, ok := requireCustomerID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.orders.ListForCustomer(customerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, result)
}

// Get handles GET /v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	customerID, ok := requireCustomerID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order id", nil)
		return
	}

	role, _ := utils.GetCustomerRoleFromContext(c)
	isAdmin := role == string(models.CustomerRoleAdmin)

	order, err := h.orders.GetOrder(orderID, customerID, isAdmin)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.NotFoundResponse(c, "Order")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, order)
}

// UpdateStatus handles PUT /v1/orders/:id/status (admin)
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order id", nil)
		return
	}

	var req services.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.orders.UpdateStatus(orderID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, "Order")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.ConflictResponse(c, "INVALID_TRANSITION", err.Error())
		default:
			if verrs := utils.GetValidationErrors(err); len(verrs) > 0 {
				utils.ValidationErrorResponse(c, verrs)
				return
			}
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	utils.SuccessResponse(c, order)
}

// PaymentHistory handles GET /v1/payments/history
func (h *OrderHandler) PaymentHistory(c *gin.Context) {
	customerID, ok := requireCustomerID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.orders.ListPayments(customerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, result)
}

// Notifications handles GET /v1/notifications
func (h *OrderHandler) Notifications(c *gin.Context) {
	customerID, ok := requireCustomerID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.notifications.ListForCustomer(customerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, result)
}

// MarkNotificationRead handles PUT /v1/notifications/:id/read
func (h *OrderHandler) MarkNotificationRead(c *gin.Context) {
	customerID, ok := requireCustomerID(c)
	if !ok {
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid notification id", nil)
		return
	}

	if err := h.notifications.MarkRead(customerID, notificationID); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			utils.NotFoundResponse(c, "Notification")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"read": true})
}
