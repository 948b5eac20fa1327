package memory

import (
	"context"

	domain "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/catalog"
)

// DefaultCatalog is the shop's opening inventory.
func DefaultCatalog() []domain.Spec {
	return []domain.Spec{
		{Name: "Beef Steak", Category: "Beef", Price: 800, Unit: "kg", CurrentStock: 25, MinStock: 10, MaxStock: 100, CostPrice: 650, Supplier: "Premium Meat Supplies"},
		{Name: "Beef Ribs", Category: "Beef", Price: 650, Unit: "kg", CurrentStock: 18, MinStock: 8, MaxStock: 50, CostPrice: 500, Supplier: "Premium Meat Supplies"},
		{Name: "Ground Beef", Category: "Beef", Price: 550, Unit: "kg", CurrentStock: 30, MinStock: 20, MaxStock: 60, CostPrice: 450, Supplier: "Premium Meat Supplies"},
		{Name: "Chicken Breast", Category: "Chicken", Price: 450, Unit: "kg", CurrentStock: 5, MinStock: 15, MaxStock: 80, CostPrice: 350, Supplier: "Poultry Direct"},
		{Name: "Chicken Thighs", Category: "Chicken", Price: 350, Unit: "kg", CurrentStock: 22, MinStock: 10, MaxStock: 60, CostPrice: 280, Supplier: "Poultry Direct"},
		{Name: "Whole Chicken", Category: "Chicken", Price: 400, Unit: "kg", CurrentStock: 15, MinStock: 8, MaxStock: 40, CostPrice: 320, Supplier: "Poultry Direct"},
		{Name: "Pork Chops", Category: "Pork", Price: 700, Unit: "kg", CurrentStock: 12, MinStock: 5, MaxStock: 30, CostPrice: 560, Supplier: "Pork Suppliers Ltd"},
		{Name: "Pork Ribs", Category: "Pork", Price: 750, Unit: "kg", CurrentStock: 8, MinStock: 5, MaxStock: 25, CostPrice: 600, Supplier: "Pork Suppliers Ltd"},
		{Name: "Lamb Leg", Category: "Lamb", Price: 900, Unit: "kg", CurrentStock: 6, MinStock: 3, MaxStock: 20, CostPrice: 720, Supplier: "Premium Meats"},
		{Name: "Goat Meat", Category: "Goat", Price: 600, Unit: "kg", CurrentStock: 14, MinStock: 5, MaxStock: 35, CostPrice: 480, Supplier: "Local Farmers"},
	}
}

// SeedCatalog loads specs into the ledger, typically at startup.
func SeedCatalog(ctx context.Context, ledger *StockLedger, specs []domain.Spec) error {
	for _, spec := range specs {
		if _, err := ledger.AddProduct(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}
