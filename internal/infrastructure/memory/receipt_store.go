package memory

import (
	"context"
	"sync"
)

// ReceiptStore caches rendered receipt documents by receipt number so that
// print, preview, and export all serve the identical artifact.
type ReceiptStore struct {
	mu   sync.RWMutex
	docs map[string]string
}

func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{docs: make(map[string]string)}
}

func (s *ReceiptStore) Put(ctx context.Context, receiptNumber, document string) error {
	_ = ctx

	s.mu.Lock()
	s.docs[receiptNumber] = document
	s.mu.Unlock()
	return nil
}

func (s *ReceiptStore) Get(ctx context.Context, receiptNumber string) (string, bool) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[receiptNumber]
	return doc, ok
}
