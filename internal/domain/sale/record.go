package sale

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("sale: record not found")
	ErrEmptySale     = errors.New("sale: a successful sale needs at least one line")
	ErrStaffRequired = errors.New("sale: staff name is required")
)

// Line is an immutable by-value snapshot of one cart line at settlement time.
type Line struct {
	ProductID string
	Name      string
	Unit      string
	UnitPrice int64
	Quantity  int
	Total     int64
}

// Record is the durable result of one settlement attempt. Failed settlements
// are recorded too so every attempted charge leaves a paper trail, but only
// successful records carry line items.
type Record struct {
	ReceiptNumber    string
	Lines            []Line
	CustomerName     string
	StaffName        string
	Method           string
	PaymentReference string
	Total            int64
	Succeeded        bool
	FailureReason    string
	CompletedAt      time.Time
}

// NewRecord builds a successful sale record.
func NewRecord(receiptNumber string, lines []Line, customer, staff, method, reference string, at time.Time) (*Record, error) {
	if staff == "" {
		return nil, ErrStaffRequired
	}
	if len(lines) == 0 {
		return nil, ErrEmptySale
	}

	snapshot := make([]Line, len(lines))
	copy(snapshot, lines)

	var total int64
	for _, l := range snapshot {
		total += l.Total
	}

	return &Record{
		ReceiptNumber:    receiptNumber,
		Lines:            snapshot,
		CustomerName:     customer,
		StaffName:        staff,
		Method:           method,
		PaymentReference: reference,
		Total:            total,
		Succeeded:        true,
		CompletedAt:      at,
	}, nil
}

// NewFailureRecord builds the record of a declined or timed-out settlement.
// It carries the attempted amount and the reason but no line items, and it
// never authorizes a stock decrement.
func NewFailureRecord(receiptNumber string, amount int64, customer, staff, method, reference, reason string, at time.Time) *Record {
	return &Record{
		ReceiptNumber:    receiptNumber,
		CustomerName:     customer,
		StaffName:        staff,
		Method:           method,
		PaymentReference: reference,
		Total:            amount,
		Succeeded:        false,
		FailureReason:    reason,
		CompletedAt:      at,
	}
}

// Clone returns a deep copy so history storage can hand out records without
// exposing shared slices.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Lines = make([]Line, len(r.Lines))
	copy(clone.Lines, r.Lines)
	return &clone
}

// History is the append-only sale log. Records are never mutated after Append.
type History interface {
	Append(ctx context.Context, record *Record) error
	Get(ctx context.Context, receiptNumber string) (*Record, error)
	// Search returns records newest-first; query matches receipt number,
	// customer name, or payment method as a case-insensitive substring.
	Search(ctx context.Context, query string) ([]*Record, error)
}
