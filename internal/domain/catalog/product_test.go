package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecValidate(t *testing.T) {
	valid := Spec{Name: "Beef Steak", Category: "Beef", Price: 800, Unit: "kg", CurrentStock: 25, MinStock: 10, MaxStock: 100, CostPrice: 650}
	require.NoError(t, valid.Validate())

	noName := valid
	noName.Name = ""
	assert.ErrorIs(t, noName.Validate(), ErrInvalidProduct)

	negativePrice := valid
	negativePrice.Price = -1
	assert.ErrorIs(t, negativePrice.Validate(), ErrInvalidProduct)

	inverted := valid
	inverted.MinStock = 50
	inverted.MaxStock = 10
	assert.ErrorIs(t, inverted.Validate(), ErrInvalidProduct)
}

func TestProductDeduct(t *testing.T) {
	p := &Product{ID: "p1", Name: "Beef Steak", CurrentStock: 25}

	require.NoError(t, p.Deduct(10))
	assert.Equal(t, 15, p.CurrentStock)

	assert.ErrorIs(t, p.Deduct(0), ErrInvalidQuantity)
	assert.ErrorIs(t, p.Deduct(-3), ErrInvalidQuantity)
	assert.ErrorIs(t, p.Deduct(16), ErrInsufficientStock)
	assert.Equal(t, 15, p.CurrentStock, "rejected deductions must not move stock")

	require.NoError(t, p.Deduct(15))
	assert.Equal(t, 0, p.CurrentStock)
	assert.ErrorIs(t, p.Deduct(1), ErrInsufficientStock)
}

func TestProductRestockCapsAtMax(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	p := &Product{ID: "p1", CurrentStock: 90, MaxStock: 100}

	require.NoError(t, p.Restock(25, at))
	assert.Equal(t, 100, p.CurrentStock)
	assert.Equal(t, at, p.LastRestocked)

	assert.ErrorIs(t, p.Restock(0, at), ErrInvalidQuantity)
}

func TestProductLowStock(t *testing.T) {
	p := &Product{CurrentStock: 5, MinStock: 15}
	assert.True(t, p.LowStock())

	p.CurrentStock = 15
	assert.False(t, p.LowStock())
}
