// internal/services/notification_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/myecomstore/backend/internal/models"
	"github.com/myecomstore/backend/internal/utils"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService writes and reads in-app notification rows. Delivery
// channels beyond the database (email, push) are out of scope here.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// NotifyOrderConfirmed records the confirmation inside the settlement
// transaction so the notification and the order commit together.
func (s *NotificationService) NotifyOrderConfirmed(tx *gorm.DB, order *models.Order) error {
	n := &models.Notification{
		CustomerID: order.CustomerID,
		OrderID:    &order.ID,
		Type:       models.NotificationTypeOrderConfirmed,
		Title:      "Order confirmed",
		Message:    fmt.Sprintf("Your order %s has been confirmed.", order.OrderNumber),
		Metadata: models.JSONB{
			"order_number": order.OrderNumber,
			"total_amount": order.TotalAmount.String(),
		},
	}
	if err := tx.Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// NotifyStatusChange records an order status transition for the customer.
func (s *NotificationService) NotifyStatusChange(tx *gorm.DB, order *models.Order, status models.OrderStatus) error {
	n := &models.Notification{
		CustomerID: order.CustomerID,
		OrderID:    &order.ID,
		Type:       models.NotificationTypeOrderStatus,
		Title:      "Order status updated",
		Message:    fmt.Sprintf("Your order %s is now %s.", order.OrderNumber, status),
		Metadata: models.JSONB{
			"order_number": order.OrderNumber,
			"status":       string(status),
		},
	}
	if err := tx.Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *NotificationService) ListForCustomer(customerID uuid.UUID, params utils.PaginationParams) (utils.PaginationResult, error) {
	query := s.db.Model(&models.Notification{}).Where("customer_id = ?", customerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.PaginationResult{}, fmt.Errorf("database error: %w", err)
	}

	var notifications []models.Notification
	err := utils.ApplyPagination(query.Order("created_at DESC"), params).
		Find(&notifications).Error
	if err != nil {
		return utils.PaginationResult{}, fmt.Errorf("database error: %w", err)
	}

	return utils.CreatePaginationResult(notifications, total, params), nil
}

func (s *NotificationService) MarkRead(customerID, notificationID uuid.UUID) error {
	res := s.db.Model(&models.Notification{}).
		Where("id = ? AND customer_id = ?", notificationID, customerID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("database error: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
