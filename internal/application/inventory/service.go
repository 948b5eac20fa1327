package inventory

import (
	"context"

	domain "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/catalog"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability/logctx"
)

// Service exposes catalog management: listing, registration, removal, and
// restocking. Stock decrements happen only through checkout settlement.
type Service struct {
	ledger domain.StockLedger
	log    observability.Logger
}

func NewService(ledger domain.StockLedger, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		ledger: ledger,
		log:    tel.Logger().With(observability.F("service", "inventory-service")),
	}
}

func (s *Service) List(ctx context.Context, category, query string) ([]*domain.Product, error) {
	return s.ledger.List(ctx, category, query)
}

func (s *Service) Get(ctx context.Context, productID string) (*domain.Product, error) {
	return s.ledger.Get(ctx, productID)
}

func (s *Service) Add(ctx context.Context, spec domain.Spec) (*domain.Product, error) {
	product, err := s.ledger.AddProduct(ctx, spec)
	if err != nil {
		return nil, err
	}
	logctx.FromOr(ctx, s.log).Info("product_added",
		observability.F("product_id", product.ID),
		observability.F("name", product.Name),
	)
	return product, nil
}

func (s *Service) Remove(ctx context.Context, productID string) error {
	if err := s.ledger.RemoveProduct(ctx, productID); err != nil {
		return err
	}
	logctx.FromOr(ctx, s.log).Info("product_removed",
		observability.F("product_id", productID),
	)
	return nil
}

func (s *Service) Restock(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	product, err := s.ledger.Restock(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	logctx.FromOr(ctx, s.log).Info("product_restocked",
		observability.F("product_id", productID),
		observability.F("quantity", quantity),
		observability.F("current_stock", product.CurrentStock),
	)
	return product, nil
}

// LowStock lists products at or below their minimum level.
func (s *Service) LowStock(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.ledger.List(ctx, "", "")
	if err != nil {
		return nil, err
	}
	out := products[:0]
	for _, p := range products {
		if p.LowStock() {
			out = append(out, p)
		}
	}
	return out, nil
}
