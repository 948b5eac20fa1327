package payment

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidAmount          = errors.New("payment: amount must be greater than zero")
	ErrInvalidPhoneNumber     = errors.New("payment: phone number must match 254XXXXXXXXX")
	ErrInvalidCardNumber      = errors.New("payment: card number must have at least 16 digits")
	ErrInvalidPIN             = errors.New("payment: pin must be exactly 4 digits")
	ErrInvalidStateTransition = errors.New("payment: invalid state transition")
	ErrNotFound               = errors.New("payment: attempt not found")
	ErrUnknownMethod          = errors.New("payment: unknown payment method")
)

type Method string

const (
	MethodCash  Method = "cash"
	MethodCard  Method = "card"
	MethodMpesa Method = "mpesa"
)

func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(s)) {
	case MethodCash:
		return MethodCash, nil
	case MethodCard:
		return MethodCard, nil
	case MethodMpesa:
		return MethodMpesa, nil
	}
	return "", ErrUnknownMethod
}

type Status string

const (
	// StatusCollecting: method chosen, details being gathered; no external
	// call has happened yet.
	StatusCollecting Status = "collecting"
	// StatusAwaitingSecret: the push request was accepted by the gateway and
	// the register is prompting for the provider PIN.
	StatusAwaitingSecret Status = "awaiting_secret"
	// StatusProcessing: the round trip is in flight; resolution arrives via
	// callback or timeout.
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	// StatusCanceled: the operator stopped waiting locally. The external
	// charge, if already sent, is not aborted by this.
	StatusCanceled Status = "canceled"
)

// Terminal reports whether no further transition is possible, local
// cancellation aside: a canceled attempt may still be resolved by a late
// callback for audit purposes.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

const FailureReasonTimeout = "Timeout"

var phonePattern = regexp.MustCompile(`^254\d{9}$`)

// Attempt tracks one payment from method selection to terminal resolution.
type Attempt struct {
	ID     string
	Method Method
	Amount int64

	// PhoneNumber is stored normalized (254XXXXXXXXX) for the mpesa method.
	PhoneNumber string

	// CheckoutRequestID is the gateway correlation handle; empty until the
	// push request has been accepted.
	CheckoutRequestID string
	MerchantRequestID string

	// Reference is the provider payment reference carried onto the receipt.
	Reference string

	Status        Status
	FailureReason string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt time.Time

	state attemptState
}

func NewAttempt(id string, method Method, amount int64, at time.Time) (*Attempt, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	a := &Attempt{
		ID:        id,
		Method:    method,
		Amount:    amount,
		Status:    StatusCollecting,
		CreatedAt: at,
		UpdatedAt: at,
		state:     collectingState{},
	}
	return a, nil
}

// ValidatePhone checks the carrier's national-prefixed format. Inputs must be
// normalized before validation; see the mpesa package.
func ValidatePhone(normalized string) error {
	if !phonePattern.MatchString(normalized) {
		return ErrInvalidPhoneNumber
	}
	return nil
}

// ValidateCard enforces the minimum card number length on the digits only.
func ValidateCard(number string) error {
	digits := 0
	for _, r := range number {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-':
		default:
			return ErrInvalidCardNumber
		}
	}
	if digits < 16 {
		return ErrInvalidCardNumber
	}
	return nil
}

// ValidatePIN enforces the provider PIN shape before any transition.
func ValidatePIN(pin string) error {
	if len(pin) != 4 {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// PushAccepted records the gateway correlation ids and moves the attempt to
// awaiting the provider secret.
func (a *Attempt) PushAccepted(checkoutRequestID, merchantRequestID string, at time.Time) error {
	next, err := a.state.OnPushAccepted(a)
	if err != nil {
		return err
	}
	a.CheckoutRequestID = checkoutRequestID
	a.MerchantRequestID = merchantRequestID
	a.transition(next, at)
	return nil
}

// SecretProvided moves an awaiting attempt into processing.
func (a *Attempt) SecretProvided(at time.Time) error {
	next, err := a.state.OnSecretProvided(a)
	if err != nil {
		return err
	}
	a.transition(next, at)
	return nil
}

// BeginProcessing moves a collecting attempt straight into processing, used
// by the card flow which has no secret step.
func (a *Attempt) BeginProcessing(at time.Time) error {
	next, err := a.state.OnProcessing(a)
	if err != nil {
		return err
	}
	a.transition(next, at)
	return nil
}

// Succeed resolves the attempt with the provider reference.
func (a *Attempt) Succeed(reference string, at time.Time) error {
	next, err := a.state.OnSucceeded(a)
	if err != nil {
		return err
	}
	a.Reference = reference
	a.FailureReason = ""
	a.transition(next, at)
	a.ResolvedAt = at
	return nil
}

// Fail resolves the attempt with a human-readable reason.
func (a *Attempt) Fail(reason string, at time.Time) error {
	next, err := a.state.OnFailed(a)
	if err != nil {
		return err
	}
	a.FailureReason = reason
	a.transition(next, at)
	a.ResolvedAt = at
	return nil
}

// CancelLocal stops local waiting. It never reaches the gateway: a push
// already sent may still complete and arrive as a late callback.
func (a *Attempt) CancelLocal(at time.Time) error {
	next, err := a.state.OnCanceled(a)
	if err != nil {
		return err
	}
	a.transition(next, at)
	return nil
}

func (a *Attempt) transition(next attemptState, at time.Time) {
	a.state = next
	a.Status = next.Status()
	a.UpdatedAt = at
}

// Clone returns a copy safe to hand across goroutine boundaries.
func (a *Attempt) Clone() *Attempt {
	if a == nil {
		return nil
	}
	clone := *a
	clone.restoreState()
	return &clone
}

// restoreState rebinds the state object after a clone or load.
func (a *Attempt) restoreState() {
	switch a.Status {
	case StatusCollecting:
		a.state = collectingState{}
	case StatusAwaitingSecret:
		a.state = awaitingSecretState{}
	case StatusProcessing:
		a.state = processingState{}
	case StatusSucceeded:
		a.state = succeededState{}
	case StatusFailed:
		a.state = failedState{}
	case StatusCanceled:
		a.state = canceledState{}
	}
}
