// internal/services/services_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/myecomstore/backend/internal/models"
)

func TestNormalizeCartMergesDuplicates(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	lines := normalizeCart([]CartLine{
		{ProductID: a, Quantity: 2},
		{ProductID: b, Quantity: 1},
		{ProductID: a, Quantity: 3},
	})

	assert.Len(t, lines, 2)
	quantities := map[uuid.UUID]int{}
	for _, line := range lines {
		quantities[line.ProductID] = line.Quantity
	}
	assert.Equal(t, 5, quantities[a])
	assert.Equal(t, 1, quantities[b])
}

func TestNormalizeCartSortsByProductID(t *testing.T) {
	lines := normalizeCart([]CartLine{
		{ProductID: uuid.New(), Quantity: 1},
		{ProductID: uuid.New(), Quantity: 1},
		{ProductID: uuid.New(), Quantity: 1},
	})

	for i := 1; i < len(lines); i++ {
		assert.True(t, lines[i-1].ProductID.String() < lines[i].ProductID.String())
	}
}

func TestTransitionAllowed(t *testing.T) {
	assert.True(t, transitionAllowed(models.OrderStatusConfirmed, models.OrderStatusShipped))
	assert.True(t, transitionAllowed(models.OrderStatusShipped, models.OrderStatusDelivered))
	assert.True(t, transitionAllowed(models.OrderStatusConfirmed, models.OrderStatusCancelled))
	assert.True(t, transitionAllowed(models.OrderStatusDelivered, models.OrderStatusReturned))

	assert.False(t, transitionAllowed(models.OrderStatusShipped, models.OrderStatusCancelled))
	assert.False(t, transitionAllowed(models.OrderStatusDelivered, models.OrderStatusPending))
	assert.False(t, transitionAllowed(models.OrderStatusCancelled, models.OrderStatusConfirmed))
	assert.False(t, transitionAllowed(models.OrderStatusReturned, models.OrderStatusDelivered))
	assert.False(t, transitionAllowed(models.OrderStatusConfirmed, models.OrderStatusConfirmed))
}

func TestParsePrice(t *testing.T) {
	price, err := parsePrice("199.99")
	assert.NoError(t, err)
	assert.Equal(t, "199.99", price.StringFixed(2))

	price, err = parsePrice("100")
	assert.NoError(t, err)
	assert.Equal(t, "100.00", price.StringFixed(2))

	_, err = parsePrice("-5")
	assert.Error(t, err)

	_, err = parsePrice("not a number")
	assert.Error(t, err)
}
