package cart

import (
	"context"
	"testing"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLedger struct {
	products map[string]*catalog.Product
}

func (s *stubLedger) Get(_ context.Context, productID string) (*catalog.Product, error) {
	p, ok := s.products[productID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func newStubLedger() *stubLedger {
	return &stubLedger{products: map[string]*catalog.Product{
		"steak": {ID: "steak", Name: "Beef Steak", Unit: "kg", Price: 800, CurrentStock: 25},
		"ribs":  {ID: "ribs", Name: "Beef Ribs", Unit: "kg", Price: 650, CurrentStock: 18},
		"gone":  {ID: "gone", Name: "Lamb Leg", Unit: "kg", Price: 900, CurrentStock: 0},
	}}
}

func TestAddLineRespectsAvailability(t *testing.T) {
	ctx := context.Background()
	c := New(newStubLedger())

	require.NoError(t, c.AddLine(ctx, "steak", 20))
	assert.ErrorIs(t, c.AddLine(ctx, "steak", 10), catalog.ErrInsufficientStock,
		"cart total for a product may not exceed current stock")
	require.NoError(t, c.AddLine(ctx, "steak", 5))

	lines := c.Lines()
	require.Len(t, lines, 1, "same product merges into one line")
	assert.Equal(t, 25, lines[0].Quantity)
	assert.Equal(t, int64(25*800), lines[0].Total)
}

func TestAddLineRejectsOutOfStockAndUnknown(t *testing.T) {
	ctx := context.Background()
	c := New(newStubLedger())

	assert.ErrorIs(t, c.AddLine(ctx, "gone", 1), catalog.ErrOutOfStock)
	assert.ErrorIs(t, c.AddLine(ctx, "missing", 1), catalog.ErrNotFound)
	assert.ErrorIs(t, c.AddLine(ctx, "steak", 0), ErrInvalidQuantity)
	assert.True(t, c.Empty())
}

func TestSetQuantity(t *testing.T) {
	ctx := context.Background()
	ledger := newStubLedger()
	c := New(ledger)

	require.NoError(t, c.AddLine(ctx, "steak", 5))

	require.NoError(t, c.SetQuantity(ctx, "steak", 12))
	assert.Equal(t, 12, c.Lines()[0].Quantity)

	// Stock shrinks between add and checkout: over-requests are rejected,
	// never clamped.
	ledger.products["steak"].CurrentStock = 10
	assert.ErrorIs(t, c.SetQuantity(ctx, "steak", 11), catalog.ErrInsufficientStock)
	assert.Equal(t, 12, c.Lines()[0].Quantity)

	require.NoError(t, c.SetQuantity(ctx, "steak", 0))
	assert.True(t, c.Empty())

	assert.ErrorIs(t, c.SetQuantity(ctx, "steak", 1), ErrLineNotFound)
}

func TestTotalsAndSnapshot(t *testing.T) {
	ctx := context.Background()
	c := New(newStubLedger())

	require.NoError(t, c.AddLine(ctx, "steak", 2))
	require.NoError(t, c.AddLine(ctx, "ribs", 3))

	assert.Equal(t, int64(2*800+3*650), c.TotalAmount())
	assert.Equal(t, 5, c.TotalItems())

	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "Beef Steak", snap[0].Name)
	assert.Equal(t, int64(1600), snap[0].Total)

	c.Clear()
	assert.True(t, c.Empty())
	assert.Len(t, snap, 2, "snapshot survives clearing the cart")
}

func TestLinePricesAreSnapshots(t *testing.T) {
	ctx := context.Background()
	ledger := newStubLedger()
	c := New(ledger)

	require.NoError(t, c.AddLine(ctx, "steak", 2))
	ledger.products["steak"].Price = 1000

	assert.Equal(t, int64(1600), c.TotalAmount(), "price changes after add must not affect the cart")
}
