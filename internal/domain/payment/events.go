package payment

import "time"

// CallbackReceivedEvent is published by the callback receiver for every
// gateway result delivery. Resolution happens asynchronously in the
// settlement worker, never inline in the HTTP handler.
type CallbackReceivedEvent struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	// Receipt is the provider receipt number from the callback metadata,
	// empty on failures.
	Receipt    string
	OccurredAt time.Time
}

func (CallbackReceivedEvent) EventName() string { return "payment.callback_received" }

func NewCallbackReceivedEvent(checkoutRequestID string, resultCode int, resultDesc, receipt string) CallbackReceivedEvent {
	return CallbackReceivedEvent{
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        resultCode,
		ResultDesc:        resultDesc,
		Receipt:           receipt,
		OccurredAt:        time.Now().UTC(),
	}
}

// ResolvedEvent is published on every terminal settlement transition.
type ResolvedEvent struct {
	AttemptID     string
	Method        Method
	Status        Status
	Amount        int64
	Reference     string
	FailureReason string
	// Late marks a resolution that arrived after the operator canceled
	// locally; it is recorded for audit but never re-surfaced to the register.
	Late       bool
	OccurredAt time.Time
}

func (ResolvedEvent) EventName() string { return "payment.resolved" }

func NewResolvedEvent(a *Attempt, late bool) ResolvedEvent {
	return ResolvedEvent{
		AttemptID:     a.ID,
		Method:        a.Method,
		Status:        a.Status,
		Amount:        a.Amount,
		Reference:     a.Reference,
		FailureReason: a.FailureReason,
		Late:          late,
		OccurredAt:    time.Now().UTC(),
	}
}
