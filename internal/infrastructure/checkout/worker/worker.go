package worker

import (
	"context"

	appcheckout "github.com/Roymukiebe/meat-track-smart-sales/internal/application/checkout"
	domoutbox "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/outbox"
	dompayment "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/payment"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/pkg/logging"
	"go.uber.org/zap"
)

// Worker completes parked mobile sales once their settlement resolves.
type Worker struct {
	subscriber domoutbox.Subscriber
	service    *appcheckout.Service
}

func New(subscriber domoutbox.Subscriber, service *appcheckout.Service) *Worker {
	return &Worker{
		subscriber: subscriber,
		service:    service,
	}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(dompayment.ResolvedEvent{}.EventName(), w.handleResolved)
}

func (w *Worker) handleResolved(ctx context.Context, e domoutbox.Event) error {
	logger := logging.FromContext(ctx).With(zap.String("component", "checkout_worker"))

	evt, ok := e.(dompayment.ResolvedEvent)
	if !ok {
		return nil
	}

	if err := w.service.HandleResolved(ctx, evt); err != nil {
		logger.Warn("sale_completion_failed",
			zap.String("attempt_id", evt.AttemptID),
			zap.String("status", string(evt.Status)),
			zap.Error(err),
		)
		return err
	}

	logger.Info("sale_completion_handled",
		zap.String("attempt_id", evt.AttemptID),
		zap.String("status", string(evt.Status)),
	)
	return nil
}
