package checkout

import (
	"context"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/payment"
)

// Settler is the slice of the settlement service checkout depends on.
type Settler interface {
	SettleCash(ctx context.Context, amount int64) (*payment.Attempt, error)
	SettleCard(ctx context.Context, cardNumber string, amount int64) (*payment.Attempt, error)
	StartMobileMoney(ctx context.Context, phoneNumber string, amount int64) (*payment.Attempt, error)
	ProvideSecret(ctx context.Context, attemptID, pin string) (*payment.Attempt, error)
	Cancel(ctx context.Context, attemptID string) (*payment.Attempt, error)
	Get(ctx context.Context, attemptID string) (*payment.Attempt, error)
}
