package memory

import (
	"context"
	"strings"
	"sync"

	domain "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/sale"
)

// SaleHistory is the append-only sale log, newest-first on reads.
type SaleHistory struct {
	mu      sync.RWMutex
	records []*domain.Record
	byNo    map[string]*domain.Record
}

func NewSaleHistory() *SaleHistory {
	return &SaleHistory{byNo: make(map[string]*domain.Record)}
}

func (h *SaleHistory) Append(ctx context.Context, record *domain.Record) error {
	_ = ctx
	if record == nil || record.ReceiptNumber == "" {
		return domain.ErrNotFound
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	stored := record.Clone()
	h.records = append(h.records, stored)
	h.byNo[stored.ReceiptNumber] = stored
	return nil
}

func (h *SaleHistory) Get(ctx context.Context, receiptNumber string) (*domain.Record, error) {
	_ = ctx

	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.byNo[receiptNumber]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.Clone(), nil
}

func (h *SaleHistory) Search(ctx context.Context, query string) ([]*domain.Record, error) {
	_ = ctx

	h.mu.RLock()
	defer h.mu.RUnlock()

	query = strings.ToLower(query)
	out := make([]*domain.Record, 0, len(h.records))
	for i := len(h.records) - 1; i >= 0; i-- {
		r := h.records[i]
		if query != "" && !matchesRecord(r, query) {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, nil
}

func matchesRecord(r *domain.Record, query string) bool {
	return strings.Contains(strings.ToLower(r.ReceiptNumber), query) ||
		strings.Contains(strings.ToLower(r.CustomerName), query) ||
		strings.Contains(strings.ToLower(r.Method), query)
}
