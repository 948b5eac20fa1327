package catalog

import "context"

// Deduction is one line of an atomic multi-product decrement.
type Deduction struct {
	ProductID string
	Quantity  int
}

// AvailabilityReader is the narrow read surface the cart needs.
type AvailabilityReader interface {
	Get(ctx context.Context, productID string) (*Product, error)
}

// StockLedger owns all product stock. Decrements are atomic check-and-set:
// no sequence of calls can drive stock negative.
type StockLedger interface {
	AvailabilityReader

	List(ctx context.Context, category, query string) ([]*Product, error)
	AddProduct(ctx context.Context, spec Spec) (*Product, error)
	// RemoveProduct is idempotent; removing an absent product is not an error.
	RemoveProduct(ctx context.Context, productID string) error
	Restock(ctx context.Context, productID string, quantity int) (*Product, error)

	// ReserveCheck reports whether quantity units are currently available.
	ReserveCheck(ctx context.Context, productID string, quantity int) (bool, error)
	Decrement(ctx context.Context, productID string, quantity int) error
	// DecrementAll applies every deduction or none of them.
	DecrementAll(ctx context.Context, deductions []Deduction) error
}
