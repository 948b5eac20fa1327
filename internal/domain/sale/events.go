package sale

import "time"

// RecordedEvent is emitted after a record has been appended to history.
// Consumers look the full record up by receipt number.
type RecordedEvent struct {
	ReceiptNumber string
	Method        string
	Total         int64
	Succeeded     bool
	OccurredAt    time.Time
}

func (RecordedEvent) EventName() string { return "sale.recorded" }

func NewRecordedEvent(r *Record) RecordedEvent {
	return RecordedEvent{
		ReceiptNumber: r.ReceiptNumber,
		Method:        r.Method,
		Total:         r.Total,
		Succeeded:     r.Succeeded,
		OccurredAt:    time.Now().UTC(),
	}
}
