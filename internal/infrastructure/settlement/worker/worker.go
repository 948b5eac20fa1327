package worker

import (
	"context"

	appsettlement "github.com/Roymukiebe/meat-track-smart-sales/internal/application/settlement"
	domoutbox "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/outbox"
	dompayment "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/payment"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/pkg/logging"
	"go.uber.org/zap"
)

// Worker resolves in-flight attempts from gateway callback deliveries. The
// HTTP receiver only parses and publishes; all settlement logic runs here.
type Worker struct {
	subscriber domoutbox.Subscriber
	service    *appsettlement.Service
}

func New(subscriber domoutbox.Subscriber, service *appsettlement.Service) *Worker {
	return &Worker{
		subscriber: subscriber,
		service:    service,
	}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(dompayment.CallbackReceivedEvent{}.EventName(), w.handleCallbackReceived)
}

func (w *Worker) handleCallbackReceived(ctx context.Context, e domoutbox.Event) error {
	logger := logging.FromContext(ctx).With(zap.String("component", "settlement_worker"))

	evt, ok := e.(dompayment.CallbackReceivedEvent)
	if !ok {
		return nil
	}

	err := w.service.Resolve(ctx, evt.CheckoutRequestID, evt.ResultCode, evt.ResultDesc, evt.Receipt)
	if err != nil {
		logger.Warn("callback_resolution_failed",
			zap.String("checkout_request_id", evt.CheckoutRequestID),
			zap.Int("result_code", evt.ResultCode),
			zap.Error(err),
		)
		return err
	}

	logger.Info("callback_resolved",
		zap.String("checkout_request_id", evt.CheckoutRequestID),
		zap.Int("result_code", evt.ResultCode),
	)
	return nil
}
