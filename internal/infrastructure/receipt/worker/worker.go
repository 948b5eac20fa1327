package worker

import (
	"context"

	domoutbox "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/outbox"
	domsale "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/sale"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/memory"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/pkg/logging"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/presentation/receipt"
	"go.uber.org/zap"
)

// Worker renders and caches the printable receipt for every recorded sale,
// so later print and preview requests serve the identical document.
type Worker struct {
	subscriber   domoutbox.Subscriber
	history      domsale.History
	renderer     *receipt.Renderer
	store        *memory.ReceiptStore
	salesCounter observability.Counter
}

func New(
	subscriber domoutbox.Subscriber,
	history domsale.History,
	renderer *receipt.Renderer,
	store *memory.ReceiptStore,
	tel observability.Observability,
) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber:   subscriber,
		history:      history,
		renderer:     renderer,
		store:        store,
		salesCounter: tel.Metrics().Counter(observability.MSalesRecorded),
	}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(domsale.RecordedEvent{}.EventName(), w.handleRecorded)
}

func (w *Worker) handleRecorded(ctx context.Context, e domoutbox.Event) error {
	logger := logging.FromContext(ctx).With(zap.String("component", "receipt_worker"))

	evt, ok := e.(domsale.RecordedEvent)
	if !ok {
		return nil
	}

	outcome := "failed"
	if evt.Succeeded {
		outcome = "succeeded"
	}
	w.salesCounter.Add(1,
		observability.L("method", evt.Method),
		observability.L("outcome", outcome),
	)

	record, err := w.history.Get(ctx, evt.ReceiptNumber)
	if err != nil {
		logger.Warn("receipt_record_lookup_failed",
			zap.String("receipt_number", evt.ReceiptNumber),
			zap.Error(err),
		)
		return err
	}

	doc, err := w.renderer.Render(record)
	if err != nil {
		logger.Warn("receipt_render_failed",
			zap.String("receipt_number", evt.ReceiptNumber),
			zap.Error(err),
		)
		return err
	}
	if err := w.store.Put(ctx, evt.ReceiptNumber, doc); err != nil {
		return err
	}

	logger.Info("receipt_rendered",
		zap.String("receipt_number", evt.ReceiptNumber),
	)
	return nil
}
