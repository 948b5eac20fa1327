package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	ErrOutOfStock        = errors.New("catalog: product out of stock")
	ErrInvalidProduct    = errors.New("catalog: invalid product definition")
)

// Product is the authoritative per-product record. Stock is mutated only
// through the StockLedger contract, never by direct field writes.
type Product struct {
	ID            string
	Name          string
	Category      string
	Price         int64 // KSh per unit
	Unit          string
	CurrentStock  int
	MinStock      int
	MaxStock      int
	CostPrice     int64
	Supplier      string
	LastRestocked time.Time
}

// Spec describes a product to be added to the ledger; the ledger assigns
// the identifier and the restock timestamp.
type Spec struct {
	Name         string
	Category     string
	Price        int64
	Unit         string
	CurrentStock int
	MinStock     int
	MaxStock     int
	CostPrice    int64
	Supplier     string
}

func (s Spec) Validate() error {
	if s.Name == "" {
		return ErrInvalidProduct
	}
	if s.Price < 0 || s.CostPrice < 0 {
		return ErrInvalidProduct
	}
	if s.CurrentStock < 0 {
		return ErrInvalidProduct
	}
	if s.MinStock > s.MaxStock {
		return ErrInvalidProduct
	}
	return nil
}

// Deduct removes quantity units of stock, flooring at zero is never needed
// because over-requests are rejected outright.
func (p *Product) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.CurrentStock {
		return ErrInsufficientStock
	}
	p.CurrentStock -= quantity
	return nil
}

// Restock raises stock and stamps the restock time.
func (p *Product) Restock(quantity int, at time.Time) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.CurrentStock += quantity
	if p.CurrentStock > p.MaxStock {
		p.CurrentStock = p.MaxStock
	}
	p.LastRestocked = at
	return nil
}

// LowStock reports whether the product has fallen below its minimum threshold.
func (p *Product) LowStock() bool {
	return p.CurrentStock < p.MinStock
}
