package cart

import (
	"context"
	"errors"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/catalog"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/sale"
)

var (
	ErrEmptyCart       = errors.New("cart: cart is empty")
	ErrLineNotFound    = errors.New("cart: line not found")
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
)

// Line is a cart position holding name and price snapshots so that later
// catalog edits cannot corrupt an in-progress sale.
type Line struct {
	ProductID string
	Name      string
	Unit      string
	UnitPrice int64
	Quantity  int
	Total     int64
}

// Cart accumulates lines for one in-progress sale. It is not safe for
// concurrent use; a register session is a single logical actor.
type Cart struct {
	ledger catalog.AvailabilityReader
	lines  []Line
}

func New(ledger catalog.AvailabilityReader) *Cart {
	return &Cart{ledger: ledger}
}

// AddLine merges quantity into an existing line for the same product or
// appends a new one. The request is validated against live availability:
// the cart as a whole may never hold more of a product than is in stock.
func (c *Cart) AddLine(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	product, err := c.ledger.Get(ctx, productID)
	if err != nil {
		return err
	}
	if product.CurrentStock <= 0 {
		return catalog.ErrOutOfStock
	}

	idx := c.indexOf(productID)
	inCart := 0
	if idx >= 0 {
		inCart = c.lines[idx].Quantity
	}
	if inCart+quantity > product.CurrentStock {
		return catalog.ErrInsufficientStock
	}

	if idx >= 0 {
		c.lines[idx].Quantity += quantity
		c.lines[idx].Total = int64(c.lines[idx].Quantity) * c.lines[idx].UnitPrice
		return nil
	}

	c.lines = append(c.lines, Line{
		ProductID: product.ID,
		Name:      product.Name,
		Unit:      product.Unit,
		UnitPrice: product.Price,
		Quantity:  quantity,
		Total:     int64(quantity) * product.Price,
	})
	return nil
}

// SetQuantity replaces a line's quantity. Zero or negative removes the line.
// Stock can move between add-to-cart and checkout, so the new quantity is
// re-validated against current availability; over-requests are rejected,
// never silently clamped.
func (c *Cart) SetQuantity(ctx context.Context, productID string, quantity int) error {
	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrLineNotFound
	}

	if quantity <= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		return nil
	}

	product, err := c.ledger.Get(ctx, productID)
	if err != nil {
		return err
	}
	if quantity > product.CurrentStock {
		return catalog.ErrInsufficientStock
	}

	c.lines[idx].Quantity = quantity
	c.lines[idx].Total = int64(quantity) * c.lines[idx].UnitPrice
	return nil
}

// RemoveLine drops a product from the cart. Removing an absent line is a no-op.
func (c *Cart) RemoveLine(productID string) {
	if idx := c.indexOf(productID); idx >= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	}
}

// TotalAmount is the sum of line totals. Pure; no side effects.
func (c *Cart) TotalAmount() int64 {
	var sum int64
	for _, l := range c.lines {
		sum += l.Total
	}
	return sum
}

// TotalItems is the sum of line quantities. Pure; no side effects.
func (c *Cart) TotalItems() int {
	sum := 0
	for _, l := range c.lines {
		sum += l.Quantity
	}
	return sum
}

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the cart contents.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Snapshot freezes the cart into sale line values for settlement and
// receipt generation.
func (c *Cart) Snapshot() []sale.Line {
	out := make([]sale.Line, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, sale.Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			Unit:      l.Unit,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Total:     l.Total,
		})
	}
	return out
}

// Clear discards all lines, e.g. after a completed sale.
func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) indexOf(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
