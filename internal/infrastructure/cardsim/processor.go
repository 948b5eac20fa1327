package cardsim

import (
	"context"
	"fmt"
	"strings"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/payment"
)

// declinePrefix marks test cards that are always declined, so operators can
// exercise the failure path on demand.
const declinePrefix = "0000"

// Processor is a deterministic stand-in for a card acquirer.
type Processor struct {
	clock clock.Clock
}

func NewProcessor(clk clock.Clock) *Processor {
	return &Processor{clock: clk}
}

func (p *Processor) Charge(ctx context.Context, cardNumber string, amount int64) (*payment.CardResult, error) {
	_ = ctx

	digits := strings.NewReplacer(" ", "", "-", "").Replace(cardNumber)
	if strings.HasPrefix(digits, declinePrefix) {
		return &payment.CardResult{
			Approved: false,
			Reason:   "Card declined by issuer",
		}, nil
	}

	return &payment.CardResult{
		Approved:  true,
		Reference: fmt.Sprintf("CD%d", p.clock.Now().UnixMilli()),
	}, nil
}
