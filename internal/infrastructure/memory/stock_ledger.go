package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
	domain "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/catalog"
)

// IDGenerator mints product identifiers.
type IDGenerator interface {
	NewID() string
}

// StockLedger is the in-memory authoritative stock store. All mutations run
// under one mutex so a decrement is a single atomic check-and-set; concurrent
// carts cannot oversell.
type StockLedger struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	idGen    IDGenerator
	clock    clock.Clock
}

func NewStockLedger(idGen IDGenerator, clk clock.Clock) *StockLedger {
	return &StockLedger{
		products: make(map[string]*domain.Product),
		idGen:    idGen,
		clock:    clk,
	}
}

func (l *StockLedger) Get(ctx context.Context, productID string) (*domain.Product, error) {
	_ = ctx

	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (l *StockLedger) List(ctx context.Context, category, query string) ([]*domain.Product, error) {
	_ = ctx

	l.mu.RLock()
	defer l.mu.RUnlock()

	query = strings.ToLower(query)
	out := make([]*domain.Product, 0, len(l.products))
	for _, p := range l.products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Category), query) {
			continue
		}
		out = append(out, cloneProduct(p))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (l *StockLedger) AddProduct(ctx context.Context, spec domain.Spec) (*domain.Product, error) {
	_ = ctx
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:            l.idGen.NewID(),
		Name:          spec.Name,
		Category:      spec.Category,
		Price:         spec.Price,
		Unit:          spec.Unit,
		CurrentStock:  spec.CurrentStock,
		MinStock:      spec.MinStock,
		MaxStock:      spec.MaxStock,
		CostPrice:     spec.CostPrice,
		Supplier:      spec.Supplier,
		LastRestocked: l.clock.Now(),
	}

	l.mu.Lock()
	l.products[p.ID] = p
	l.mu.Unlock()

	return cloneProduct(p), nil
}

func (l *StockLedger) RemoveProduct(ctx context.Context, productID string) error {
	_ = ctx

	l.mu.Lock()
	delete(l.products, productID)
	l.mu.Unlock()
	return nil
}

func (l *StockLedger) Restock(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := p.Restock(quantity, l.clock.Now()); err != nil {
		return nil, err
	}
	return cloneProduct(p), nil
}

func (l *StockLedger) ReserveCheck(ctx context.Context, productID string, quantity int) (bool, error) {
	_ = ctx

	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.products[productID]
	if !ok {
		return false, domain.ErrNotFound
	}
	return quantity <= p.CurrentStock, nil
}

func (l *StockLedger) Decrement(ctx context.Context, productID string, quantity int) error {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	return p.Deduct(quantity)
}

// DecrementAll validates every deduction before applying any, all under one
// lock: either the whole sale decrements or nothing does. Deductions are
// summed per product first so repeated lines for one product cannot each pass
// validation while their total oversells.
func (l *StockLedger) DecrementAll(ctx context.Context, deductions []domain.Deduction) error {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	totals := make(map[string]int, len(deductions))
	for _, d := range deductions {
		if _, ok := l.products[d.ProductID]; !ok {
			return domain.ErrNotFound
		}
		if d.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		totals[d.ProductID] += d.Quantity
	}
	for id, qty := range totals {
		if qty > l.products[id].CurrentStock {
			return domain.ErrInsufficientStock
		}
	}

	for id, qty := range totals {
		l.products[id].CurrentStock -= qty
	}
	return nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
