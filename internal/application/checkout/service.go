package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/cart"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/catalog"
	domoutbox "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/outbox"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/payment"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/sale"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability/logctx"
)

const publishTimeout = 300 * time.Millisecond

var (
	ErrSessionNotFound = errors.New("checkout: mobile sale session not found")

	// ErrChargedNotFulfilled means the customer's money was taken but the
	// stock decrement failed at commit. It must never pass silently; the
	// failure record and the error log are the refund trail.
	ErrChargedNotFulfilled = errors.New("checkout: payment captured but stock could not be decremented")
)

// LineInput is one requested cart position.
type LineInput struct {
	ProductID string
	Quantity  int
}

// SaleInput carries everything needed to open a sale at the register.
type SaleInput struct {
	Lines        []LineInput
	CustomerName string
	StaffName    string
}

// MobileSale is the handle returned while a push payment is in flight.
type MobileSale struct {
	AttemptID         string
	CheckoutRequestID string
	Amount            int64
	Status            payment.Status
}

type session struct {
	lines    []sale.Line
	customer string
	staff    string
	amount   int64
}

// Service drives a sale from cart lines to a durable record: it builds the
// cart, routes settlement by method, commits stock exactly once on success,
// and records failed settlements with no stock movement.
type Service struct {
	ledger    catalog.StockLedger
	history   sale.History
	numbers   *sale.NumberGenerator
	settler   Settler
	publisher domoutbox.Publisher
	clock     clock.Clock
	log       observability.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewService(
	ledger catalog.StockLedger,
	history sale.History,
	numbers *sale.NumberGenerator,
	settler Settler,
	publisher domoutbox.Publisher,
	clk clock.Clock,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		ledger:    ledger,
		history:   history,
		numbers:   numbers,
		settler:   settler,
		publisher: publisher,
		clock:     clk,
		log:       tel.Logger().With(observability.F("service", "checkout-service")),
		sessions:  make(map[string]*session),
	}
}

// CompleteSale settles a cash or card sale synchronously. A card decline
// returns the failure record with a nil error; the record's Succeeded flag
// tells the register what happened.
func (s *Service) CompleteSale(ctx context.Context, in SaleInput, method payment.Method, cardNumber string) (*sale.Record, error) {
	// Reject before anything settles: a record that cannot be built must not
	// charge the attempt or touch the ledger.
	if in.StaffName == "" {
		return nil, sale.ErrStaffRequired
	}

	c, err := s.buildCart(ctx, in.Lines)
	if err != nil {
		return nil, err
	}
	total := c.TotalAmount()

	var attempt *payment.Attempt
	switch method {
	case payment.MethodCash:
		attempt, err = s.settler.SettleCash(ctx, total)
	case payment.MethodCard:
		attempt, err = s.settler.SettleCard(ctx, cardNumber, total)
	default:
		return nil, payment.ErrUnknownMethod
	}
	if err != nil {
		return nil, err
	}

	if attempt.Status != payment.StatusSucceeded {
		return s.recordFailure(ctx, total, in.CustomerName, in.StaffName, string(method), attempt.Reference, attempt.FailureReason)
	}
	return s.commit(ctx, c.Snapshot(), in.CustomerName, in.StaffName, attempt)
}

// StartMobileSale validates the cart, initiates the push payment, and parks
// the cart snapshot until the attempt resolves. The cart itself stays usable
// at the register, so a timeout or decline costs the customer nothing.
func (s *Service) StartMobileSale(ctx context.Context, in SaleInput, phoneNumber string) (*MobileSale, error) {
	if in.StaffName == "" {
		return nil, sale.ErrStaffRequired
	}

	c, err := s.buildCart(ctx, in.Lines)
	if err != nil {
		return nil, err
	}
	total := c.TotalAmount()

	attempt, err := s.settler.StartMobileMoney(ctx, phoneNumber, total)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[attempt.ID] = &session{
		lines:    c.Snapshot(),
		customer: in.CustomerName,
		staff:    in.StaffName,
		amount:   total,
	}
	s.mu.Unlock()

	return &MobileSale{
		AttemptID:         attempt.ID,
		CheckoutRequestID: attempt.CheckoutRequestID,
		Amount:            total,
		Status:            attempt.Status,
	}, nil
}

// ConfirmMobileSale records the customer's PIN entry and moves the attempt
// into processing.
func (s *Service) ConfirmMobileSale(ctx context.Context, attemptID, pin string) (*payment.Attempt, error) {
	if !s.hasSession(attemptID) {
		return nil, ErrSessionNotFound
	}
	return s.settler.ProvideSecret(ctx, attemptID, pin)
}

// CancelMobileSale stops waiting locally. The session stays parked: a push
// already delivered may still resolve and must then be recorded.
func (s *Service) CancelMobileSale(ctx context.Context, attemptID string) (*payment.Attempt, error) {
	if !s.hasSession(attemptID) {
		return nil, ErrSessionNotFound
	}
	return s.settler.Cancel(ctx, attemptID)
}

func (s *Service) hasSession(attemptID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[attemptID]
	return ok
}

// MobileStatus returns the attempt snapshot for register polling.
func (s *Service) MobileStatus(ctx context.Context, attemptID string) (*payment.Attempt, error) {
	return s.settler.Get(ctx, attemptID)
}

// HandleResolved consumes a settlement resolution for a parked mobile sale:
// commit on success, failure record on decline or timeout. Resolutions for
// unknown attempts are dropped; duplicates cannot double-commit because the
// session is consumed on first resolution.
func (s *Service) HandleResolved(ctx context.Context, evt payment.ResolvedEvent) error {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("attempt_id", evt.AttemptID))

	s.mu.Lock()
	sess, ok := s.sessions[evt.AttemptID]
	if ok {
		delete(s.sessions, evt.AttemptID)
	}
	s.mu.Unlock()

	if !ok {
		logger.Warn("resolution_without_session",
			observability.F("status", string(evt.Status)),
		)
		return nil
	}

	if evt.Late {
		logger.Info("late_resolution_recorded",
			observability.F("status", string(evt.Status)),
		)
	}

	if evt.Status == payment.StatusSucceeded {
		attempt := &payment.Attempt{
			ID:        evt.AttemptID,
			Method:    evt.Method,
			Amount:    evt.Amount,
			Reference: evt.Reference,
			Status:    evt.Status,
		}
		_, err := s.commit(ctx, sess.lines, sess.customer, sess.staff, attempt)
		return err
	}

	_, err := s.recordFailure(ctx, sess.amount, sess.customer, sess.staff, string(evt.Method), evt.Reference, evt.FailureReason)
	return err
}

// Search returns sale records newest-first, filtered by the query.
func (s *Service) Search(ctx context.Context, query string) ([]*sale.Record, error) {
	return s.history.Search(ctx, query)
}

// Get returns one sale record by receipt number.
func (s *Service) Get(ctx context.Context, receiptNumber string) (*sale.Record, error) {
	return s.history.Get(ctx, receiptNumber)
}

func (s *Service) buildCart(ctx context.Context, lines []LineInput) (*cart.Cart, error) {
	c := cart.New(s.ledger)
	for _, l := range lines {
		if err := c.AddLine(ctx, l.ProductID, l.Quantity); err != nil {
			return nil, err
		}
	}
	if c.Empty() {
		return nil, cart.ErrEmptyCart
	}
	return c, nil
}

// commit is the single place stock leaves the ledger. The decrement is
// all-or-nothing; only after it lands is the receipt minted and the record
// appended.
func (s *Service) commit(ctx context.Context, lines []sale.Line, customer, staff string, attempt *payment.Attempt) (*sale.Record, error) {
	logger := logctx.FromOr(ctx, s.log)

	deductions := make([]catalog.Deduction, 0, len(lines))
	for _, l := range lines {
		deductions = append(deductions, catalog.Deduction{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	if err := s.ledger.DecrementAll(ctx, deductions); err != nil {
		logger.Error("charged_not_fulfilled",
			observability.F("attempt_id", attempt.ID),
			observability.F("reference", attempt.Reference),
			observability.F("amount", attempt.Amount),
			observability.F("error", err.Error()),
		)
		reason := fmt.Sprintf("Charged but not fulfilled: %v", err)
		if _, rerr := s.recordFailure(ctx, attempt.Amount, customer, staff, string(attempt.Method), attempt.Reference, reason); rerr != nil {
			logger.Error("failure_record_failed", observability.F("error", rerr.Error()))
		}
		return nil, fmt.Errorf("%w: %v", ErrChargedNotFulfilled, err)
	}

	record, err := sale.NewRecord(s.numbers.Next(), lines, customer, staff, string(attempt.Method), attempt.Reference, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.history.Append(ctx, record); err != nil {
		return nil, err
	}

	logger.Info("sale_recorded",
		observability.F("receipt_number", record.ReceiptNumber),
		observability.F("method", record.Method),
		observability.F("total", record.Total),
	)
	s.publishRecorded(ctx, record)
	return record.Clone(), nil
}

func (s *Service) recordFailure(ctx context.Context, amount int64, customer, staff, method, reference, reason string) (*sale.Record, error) {
	record := sale.NewFailureRecord(s.numbers.Next(), amount, customer, staff, method, reference, reason, s.clock.Now())
	if err := s.history.Append(ctx, record); err != nil {
		return nil, err
	}

	logctx.FromOr(ctx, s.log).Info("sale_failure_recorded",
		observability.F("receipt_number", record.ReceiptNumber),
		observability.F("method", method),
		observability.F("reason", reason),
	)
	s.publishRecorded(ctx, record)
	return record.Clone(), nil
}

func (s *Service) publishRecorded(ctx context.Context, record *sale.Record) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, sale.NewRecordedEvent(record)); err != nil {
		s.log.Error("recorded_event_publish_failed",
			observability.F("receipt_number", record.ReceiptNumber),
			observability.F("error", err.Error()),
		)
	}
}
