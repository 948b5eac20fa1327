package payment

import (
	"context"
	"errors"
)

var (
	// ErrGatewayAuth: the initiator could not obtain a credential from the
	// gateway's token endpoint.
	ErrGatewayAuth = errors.New("payment: gateway authentication failed")
	// ErrGatewayRequest: the gateway rejected the push request.
	ErrGatewayRequest = errors.New("payment: gateway rejected the request")
)

// PushRequest is the initiator input for one push-payment round trip.
type PushRequest struct {
	PhoneNumber      string
	Amount           int64
	AccountReference string
	TransactionDesc  string
}

// PushResponse carries the gateway correlation handles for a push that was
// accepted for processing. The business outcome arrives later via callback.
type PushResponse struct {
	CheckoutRequestID string
	MerchantRequestID string
	Description       string
}

// PushGateway asks the mobile-money provider to prompt the customer's phone.
// Implementations: the Daraja STK push client, and deterministic doubles in
// tests.
type PushGateway interface {
	InitiatePush(ctx context.Context, req PushRequest) (*PushResponse, error)
}

// CardResult is a synchronous card authorization outcome.
type CardResult struct {
	Approved  bool
	Reference string
	Reason    string
}

// CardProcessor authorizes card payments. The production wiring uses a
// processor stand-in; the contract keeps it swappable for a real acquirer.
type CardProcessor interface {
	Charge(ctx context.Context, cardNumber string, amount int64) (*CardResult, error)
}
