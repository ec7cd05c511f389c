// internal/services/helpers.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/myecomstore/backend/internal/models"
)

func lockForUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// resolveCustomer loads the caller's customer row and rejects disabled
// accounts. Every checkout phase starts here; a token that outlives its
// account must not move stock or money.
func resolveCustomer(db *gorm.DB, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := db.First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !customer.IsActive {
		return nil, fmt.Errorf("%w: account disabled", ErrCustomerNotFound)
	}
	return &customer, nil
}

// parsePrice accepts a decimal string and rejects negatives; prices travel as
// strings in requests so float formatting never touches them.
func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid price %q: must not be negative", raw)
	}
	return price.Round(2), nil
}
