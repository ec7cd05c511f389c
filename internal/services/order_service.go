// internal/services/order_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/myecomstore/backend/internal/models"
	"github.com/myecomstore/backend/internal/utils"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// OrderService serves the post-settlement order lifecycle: listing, detail,
// and admin-driven status transitions.
type OrderService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewOrderService(db *gorm.DB, notifications *NotificationService) *OrderService {
	return &OrderService{db: db, notifications: notifications}
}

func (s *OrderService) ListForCustomer(customerID uuid.UUID, params utils.PaginationParams) (utils.PaginationResult, error) {
	query := s.db.Model(&models.Order{}).Where("customer_id = ?", customerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.PaginationResult{}, fmt.Errorf("database error: %w", err)
	}

	var orders []models.Order
	err := utils.ApplyPagination(query.Preload("Items").Order("ordered_at DESC"), params).
		Find(&orders).Error
	if err != nil {
		return utils.PaginationResult{}, fmt.Errorf("database error: %w", err)
	}

	return utils.CreatePaginationResult(orders, total, params), nil
}

// GetOrder returns the order with items and invoice. Non-admin callers only
// see their own orders.
func (s *OrderService) GetOrder(orderID, customerID uuid.UUID, isAdmin bool) (*models.Order, error) {
	query := s.db.Preload("Items.Product").Preload("Invoice").Where("id = ?", orderID)
	if !isAdmin {
		query = query.Where("customer_id = ?", customerID)
	}

	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

// allowedTransitions is the forward path plus the cancel/return exits.
// Delivered orders can only move to returned; terminal states have no exits.
var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:   {models.OrderStatusDelivered},
	models.OrderStatusDelivered: {models.OrderStatusReturned},
}

func transitionAllowed(from, to models.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves an order along the lifecycle and notifies the customer.
// Delivery marks the timestamp and, for cash on delivery, flips the payment
// to collected.
func (s *OrderService) UpdateStatus(orderID uuid.UUID, req *UpdateStatusRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, req.Status)
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(lockForUpdate()).First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !transitionAllowed(order.Status, req.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, req.Status)
		}

		order.Status = req.Status
		if req.Status == models.OrderStatusDelivered {
			now := time.Now()
			order.DeliveredAt = &now
			if order.PaymentMethod == models.PaymentMethodCashOnDelivery {
				order.PaymentStatus = models.OrderPaymentSuccess
				err := tx.Model(&models.Payment{}).
					Where("order_id = ? AND method = ?", order.ID, models.PaymentMethodCashOnDelivery).
					Update("status", models.PaymentStatusSuccess).Error
				if err != nil {
					return fmt.Errorf("failed to mark payment collected: %w", err)
				}
			}
		}

		if err := tx.Save(&order).Error; err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		if s.notifications != nil {
			return s.notifications.NotifyStatusChange(tx, &order, req.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"status":       order.Status,
	}).Info("Order status updated")

	return &order, nil
}

// ListPayments returns the customer's payment history, newest first.
func (s *OrderService) ListPayments(customerID uuid.UUID, params utils.PaginationParams) (utils.PaginationResult, error) {
	query := s.db.Model(&models.Payment{}).Where("customer_id = ?", customerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.PaginationResult{}, fmt.Errorf("database error: %w", err)
	}

	var payments []models.Payment
	err := utils.ApplyPagination(query.Order("created_at DESC"), params).
		Find(&payments).Error
	if err != nil {
		return utils.PaginationResult{}, fmt.Errorf("database error: %w", err)
	}

	return utils.CreatePaginationResult(payments, total, params), nil
}
