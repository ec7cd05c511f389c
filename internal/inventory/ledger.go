// internal/inventory/ledger.go
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/myecomstore/backend/internal/models"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrHeldByOther        = errors.New("stock held by another customer")
	ErrReservationExpired = errors.New("reservation expired")
)

// DefaultHoldTTL is how long a hold blocks the pool before lazy reclamation.
const DefaultHoldTTL = 5 * time.Minute

// Ledger owns per-product stock counts and the multi-holder reservation
// table. Every mutating operation runs inside the caller's transaction and
// starts by taking the product row lock, so holds and deductions on one
// product are totally ordered by lock-acquisition order.
type Ledger struct {
	nowFunc func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{nowFunc: time.Now}
}

// lockProduct loads the product under SELECT ... FOR UPDATE.
func (l *Ledger) lockProduct(tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

// reclaimExpired drops every stale hold on the product. Runs under the row
// lock, before any availability check; an expired hold is never honored.
func (l *Ledger) reclaimExpired(tx *gorm.DB, productID uuid.UUID) error {
	err := tx.Where("product_id = ? AND reserved_until <= ?", productID, l.nowFunc()).
		Delete(&models.StockReservation{}).Error
	if err != nil {
		return fmt.Errorf("failed to reclaim expired holds: %w", err)
	}
	return nil
}

// heldByOthers sums live holds on the product not owned by customerID.
func (l *Ledger) heldByOthers(tx *gorm.DB, productID, customerID uuid.UUID) (int, error) {
	var held int64
	err := tx.Model(&models.StockReservation{}).
		Where("product_id = ? AND customer_id <> ? AND reserved_until > ?",
			productID, customerID, l.nowFunc()).
		Select("COALESCE(SUM(quantity), 0)").Scan(&held).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum holds: %w", err)
	}
	return int(held), nil
}

// CheckAndHold reserves quantity of the product for the customer until
// now+ttl and returns the authoritative unit price snapshot.
//
// Policy is pool-shrinking: live holds by other customers reduce the
// available pool rather than hard-blocking. When the request cannot be
// covered, the error distinguishes a transient conflict (ErrHeldByOther:
// raw stock would have sufficed, foreign holds consume it) from a true
// stockout (ErrInsufficientStock).
//
// Re-holding by the same customer replaces the previous hold; quantities do
// not stack and the expiry window restarts.
func (l *Ledger) CheckAndHold(tx *gorm.DB, productID, customerID uuid.UUID, quantity int, ttl time.Duration) (decimal.Decimal, error) {
	product, err := l.lockProduct(tx, productID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := l.reclaimExpired(tx, productID); err != nil {
		return decimal.Zero, err
	}

	held, err := l.heldByOthers(tx, productID, customerID)
	if err != nil {
		return decimal.Zero, err
	}

	available := product.StockQuantity - held
	if quantity > available {
		if quantity <= product.StockQuantity {
			return decimal.Zero, fmt.Errorf("%w: %d of %d unit(s) held", ErrHeldByOther, held, product.StockQuantity)
		}
		return decimal.Zero, fmt.Errorf("%w: requested %d, have %d", ErrInsufficientStock, quantity, available)
	}

	hold := models.StockReservation{
		ProductID:     productID,
		CustomerID:    customerID,
		Quantity:      quantity,
		ReservedUntil: l.nowFunc().Add(ttl),
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "customer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "reserved_until", "updated_at"}),
	}).Create(&hold).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create hold: %w", err)
	}

	return product.Price, nil
}

// ReleaseHold removes the customer's hold on the product if present.
// Idempotent; releasing a hold that does not exist is not an error.
func (l *Ledger) ReleaseHold(tx *gorm.DB, productID, customerID uuid.UUID) error {
	err := tx.Where("product_id = ? AND customer_id = ?", productID, customerID).
		Delete(&models.StockReservation{}).Error
	if err != nil {
		return fmt.Errorf("failed to release hold: %w", err)
	}
	return nil
}

// CommitDeduction converts the customer's hold into a permanent stock
// deduction inside the settlement transaction and returns the unit price
// snapshot read under the lock. The hold must still be live and cover the
// quantity; stock must still cover it too (an admin correction could have
// dropped the count under a live hold).
func (l *Ledger) CommitDeduction(tx *gorm.DB, productID, customerID uuid.UUID, quantity int) (decimal.Decimal, error) {
	product, err := l.lockProduct(tx, productID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := l.reclaimExpired(tx, productID); err != nil {
		return decimal.Zero, err
	}

	var hold models.StockReservation
	err = tx.Where("product_id = ? AND customer_id = ?", productID, customerID).
		First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, fmt.Errorf("%w: no live hold for product %s", ErrReservationExpired, productID)
		}
		return decimal.Zero, fmt.Errorf("database error: %w", err)
	}
	if hold.Quantity < quantity {
		return decimal.Zero, fmt.Errorf("%w: held %d, committing %d", ErrReservationExpired, hold.Quantity, quantity)
	}

	if product.StockQuantity < quantity {
		return decimal.Zero, fmt.Errorf("%w: stock dropped to %d under a live hold", ErrInsufficientStock, product.StockQuantity)
	}

	remaining := product.StockQuantity - quantity
	updates := map[string]interface{}{
		"stock_quantity": remaining,
		"sales_count":    gorm.Expr("sales_count + ?", int64(quantity)),
	}
	if remaining == 0 {
		updates["is_available"] = false
	}
	if err := tx.Model(&models.Product{}).Where("id = ?", productID).Updates(updates).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to deduct stock: %w", err)
	}

	if err := tx.Delete(&hold).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to consume hold: %w", err)
	}
	return product.Price, nil
}

// Availability returns the unreserved pool size for the catalog read path.
// Unlocked; the number is advisory and may be stale by the time it is used.
func (l *Ledger) Availability(db *gorm.DB, productID uuid.UUID) (int, error) {
	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("database error: %w", err)
	}

	var held int64
	err := db.Model(&models.StockReservation{}).
		Where("product_id = ? AND reserved_until > ?", productID, l.nowFunc()).
		Select("COALESCE(SUM(quantity), 0)").Scan(&held).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum holds: %w", err)
	}

	return AvailablePool(product.StockQuantity, int(held)), nil
}

// SweepExpired deletes all stale holds across products. Correctness never
// depends on it (reclamation is lazy, under the row lock); this is hygiene
// for the reservations table.
func (l *Ledger) SweepExpired(db *gorm.DB) (int64, error) {
	res := db.Where("reserved_until <= ?", l.nowFunc()).Delete(&models.StockReservation{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep holds: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// AvailablePool is the pool arithmetic shared by the read and checkout paths.
func AvailablePool(stock, heldByOthers int) int {
	available := stock - heldByOthers
	if available < 0 {
		return 0
	}
	return available
}
