package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
	domoutbox "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/outbox"
	domain "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/payment"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	settlementService     = "settlement-service"
	useCaseMobileInitiate = "settlement.mobile_initiate"
	spanPrefix            = "UC."
	publishTimeout        = 300 * time.Millisecond

	// DefaultTimeout bounds how long an in-flight push may wait for its
	// callback before the attempt fails with a timeout.
	DefaultTimeout = 90 * time.Second

	accountReference = "Thika Meat Centre"
	transactionDesc  = "Meat purchase"
)

var (
	ErrNotFound = domain.ErrNotFound

	// ErrGatewayUnavailable wraps transport-level gateway failures so callers
	// can present a single retryable error to the register.
	ErrGatewayUnavailable = errors.New("settlement: payment gateway unavailable")
)

// Service owns the lifecycle of payment attempts: synchronous cash and card
// settlement, and the asynchronous push-payment round trip with its
// correlation registry and timeout watchdog.
type Service struct {
	gateway   domain.PushGateway
	cards     domain.CardProcessor
	publisher domoutbox.Publisher
	idGen     IDGenerator
	normalize PhoneNormalizer
	clock     clock.Clock
	timeout   time.Duration
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	cbCounter    observability.Counter

	mu         sync.Mutex
	attempts   map[string]*domain.Attempt
	byCheckout map[string]string
	timers     map[string]*time.Timer
}

func NewService(
	gateway domain.PushGateway,
	cards domain.CardProcessor,
	publisher domoutbox.Publisher,
	idGen IDGenerator,
	normalize PhoneNormalizer,
	clk clock.Clock,
	timeout time.Duration,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if normalize == nil {
		normalize = func(raw string) string { return raw }
	}

	metrics := tel.Metrics()
	return &Service{
		gateway:      gateway,
		cards:        cards,
		publisher:    publisher,
		idGen:        idGen,
		normalize:    normalize,
		clock:        clk,
		timeout:      timeout,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", settlementService)),
		reqCounter:   metrics.Counter(observability.MSettlementRequests),
		durHistogram: metrics.Histogram(observability.MSettlementDuration),
		cbCounter:    metrics.Counter(observability.MGatewayCallbacks),
		attempts:     make(map[string]*domain.Attempt),
		byCheckout:   make(map[string]string),
		timers:       make(map[string]*time.Timer),
	}
}

// SettleCash settles immediately: tender is exchanged at the counter, so the
// attempt succeeds in one step with a locally minted reference.
func (s *Service) SettleCash(ctx context.Context, amount int64) (*domain.Attempt, error) {
	now := s.clock.Now()
	attempt, err := domain.NewAttempt(s.idGen.NewID(), domain.MethodCash, amount, now)
	if err != nil {
		s.count("cash", "error")
		return nil, err
	}
	reference := fmt.Sprintf("CSH%d", now.UnixMilli())
	if err := attempt.Succeed(reference, now); err != nil {
		s.count("cash", "error")
		return nil, err
	}
	s.store(attempt)

	s.count("cash", "success")
	logctx.FromOr(ctx, s.log).Info("cash_settled",
		observability.F("attempt_id", attempt.ID),
		observability.F("amount", amount),
	)
	return attempt.Clone(), nil
}

// SettleCard runs the synchronous card round trip. A decline resolves the
// attempt as failed and returns it without error; the caller decides how the
// failure is surfaced.
func (s *Service) SettleCard(ctx context.Context, cardNumber string, amount int64) (*domain.Attempt, error) {
	logger := logctx.FromOr(ctx, s.log)

	if err := domain.ValidateCard(cardNumber); err != nil {
		s.count("card", "error")
		return nil, err
	}

	now := s.clock.Now()
	attempt, err := domain.NewAttempt(s.idGen.NewID(), domain.MethodCard, amount, now)
	if err != nil {
		s.count("card", "error")
		return nil, err
	}
	if err := attempt.BeginProcessing(now); err != nil {
		s.count("card", "error")
		return nil, err
	}

	result, err := s.cards.Charge(ctx, cardNumber, amount)
	if err != nil {
		s.count("card", "error")
		_ = attempt.Fail(err.Error(), s.clock.Now())
		s.store(attempt)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	now = s.clock.Now()
	if result.Approved {
		if err := attempt.Succeed(result.Reference, now); err != nil {
			s.count("card", "error")
			return nil, err
		}
		s.count("card", "success")
		logger.Info("card_settled",
			observability.F("attempt_id", attempt.ID),
			observability.F("reference", result.Reference),
		)
	} else {
		if err := attempt.Fail(result.Reason, now); err != nil {
			s.count("card", "error")
			return nil, err
		}
		s.count("card", "declined")
		logger.Warn("card_declined",
			observability.F("attempt_id", attempt.ID),
			observability.F("reason", result.Reason),
		)
	}
	s.store(attempt)
	return attempt.Clone(), nil
}

// StartMobileMoney validates the subscriber number, asks the gateway to prompt
// the handset, and registers the attempt for asynchronous resolution. The
// returned attempt is awaiting the customer's PIN confirmation.
func (s *Service) StartMobileMoney(ctx context.Context, phoneNumber string, amount int64) (*domain.Attempt, error) {
	return s.startMobileMoney(ctx, phoneNumber, amount, accountReference, transactionDesc)
}

// StartPush initiates a push with caller-supplied narration, for amounts
// settled outside a register sale such as an outstanding balance.
func (s *Service) StartPush(ctx context.Context, phoneNumber string, amount int64, reference, description string) (*domain.Attempt, error) {
	if reference == "" {
		reference = accountReference
	}
	if description == "" {
		description = transactionDesc
	}
	return s.startMobileMoney(ctx, phoneNumber, amount, reference, description)
}

func (s *Service) startMobileMoney(ctx context.Context, phoneNumber string, amount int64, reference, description string) (_ *domain.Attempt, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseMobileInitiate))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"StartMobileMoney",
		attribute.String("use_case", useCaseMobileInitiate),
		attribute.Int64("payment.amount", amount),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		s.reqCounter.Add(1,
			observability.L("method", "mpesa"),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat,
			observability.L("method", "mpesa"),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	normalized := s.normalize(phoneNumber)
	if err := domain.ValidatePhone(normalized); err != nil {
		outcome, statusText = "error", "PHONE_INVALID"
		return nil, err
	}

	now := s.clock.Now()
	attempt, aerr := domain.NewAttempt(s.idGen.NewID(), domain.MethodMpesa, amount, now)
	if aerr != nil {
		outcome, statusText = "error", "AMOUNT_INVALID"
		return nil, aerr
	}
	attempt.PhoneNumber = normalized

	resp, perr := s.gateway.InitiatePush(ctx, domain.PushRequest{
		PhoneNumber:      normalized,
		Amount:           amount,
		AccountReference: reference,
		TransactionDesc:  description,
	})
	if perr != nil {
		outcome, statusText = "error", "PUSH_REJECTED"
		_ = attempt.Fail(perr.Error(), s.clock.Now())
		s.store(attempt)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, perr)
	}

	if err := attempt.PushAccepted(resp.CheckoutRequestID, resp.MerchantRequestID, s.clock.Now()); err != nil {
		outcome, statusText = "error", "TRANSITION_FAILED"
		return nil, err
	}

	s.mu.Lock()
	s.attempts[attempt.ID] = attempt
	s.byCheckout[attempt.CheckoutRequestID] = attempt.ID
	s.timers[attempt.ID] = time.AfterFunc(s.timeout, func() {
		s.resolveTimeout(attempt.ID)
	})
	s.mu.Unlock()

	span.SetAttributes(attribute.String("payment.checkout_request_id", resp.CheckoutRequestID))
	return attempt.Clone(), nil
}

// ProvideSecret records that the customer is entering their PIN on the
// handset; the attempt moves into processing until the callback lands.
func (s *Service) ProvideSecret(ctx context.Context, attemptID, pin string) (*domain.Attempt, error) {
	if err := domain.ValidatePIN(pin); err != nil {
		s.count("mpesa_confirm", "error")
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		s.count("mpesa_confirm", "error")
		return nil, ErrNotFound
	}
	if err := attempt.SecretProvided(s.clock.Now()); err != nil {
		s.count("mpesa_confirm", "error")
		return nil, err
	}
	s.count("mpesa_confirm", "success")
	logctx.FromOr(ctx, s.log).Info("secret_provided",
		observability.F("attempt_id", attemptID),
	)
	return attempt.Clone(), nil
}

// Cancel stops local waiting for an in-flight attempt. The gateway is not
// told: a push already delivered may still resolve later and is then recorded
// as a late resolution.
func (s *Service) Cancel(ctx context.Context, attemptID string) (*domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := attempt.CancelLocal(s.clock.Now()); err != nil {
		return nil, err
	}
	if t := s.timers[attemptID]; t != nil {
		t.Stop()
		delete(s.timers, attemptID)
	}
	logctx.FromOr(ctx, s.log).Info("attempt_canceled",
		observability.F("attempt_id", attemptID),
	)
	return attempt.Clone(), nil
}

// Resolve applies a gateway callback to its attempt. Result code zero settles
// the attempt; anything else fails it with the gateway's description. A
// resolution landing after local cancellation is honored and flagged late.
func (s *Service) Resolve(ctx context.Context, checkoutRequestID string, resultCode int, resultDesc, receipt string) error {
	logger := logctx.FromOr(ctx, s.log)

	s.mu.Lock()
	attemptID, ok := s.byCheckout[checkoutRequestID]
	if !ok {
		s.mu.Unlock()
		s.cbCounter.Add(1, observability.L("result", "unmatched"))
		logger.Warn("callback_unmatched",
			observability.F("checkout_request_id", checkoutRequestID),
		)
		return ErrNotFound
	}
	attempt := s.attempts[attemptID]

	if attempt.Status.Terminal() {
		s.mu.Unlock()
		s.cbCounter.Add(1, observability.L("result", "duplicate"))
		logger.Info("callback_duplicate",
			observability.F("attempt_id", attemptID),
			observability.F("checkout_request_id", checkoutRequestID),
		)
		return nil
	}

	late := attempt.Status == domain.StatusCanceled
	now := s.clock.Now()

	var terr error
	if resultCode == 0 {
		reference := receipt
		if reference == "" {
			reference = checkoutRequestID
		}
		terr = attempt.Succeed(reference, now)
	} else {
		terr = attempt.Fail(resultDesc, now)
	}
	if terr != nil {
		s.mu.Unlock()
		s.cbCounter.Add(1, observability.L("result", "rejected"))
		return terr
	}

	if t := s.timers[attemptID]; t != nil {
		t.Stop()
		delete(s.timers, attemptID)
	}
	resolved := attempt.Clone()
	s.mu.Unlock()

	result := "failed"
	if resolved.Status == domain.StatusSucceeded {
		result = "succeeded"
	}
	s.cbCounter.Add(1, observability.L("result", result))
	logger.Info("attempt_resolved",
		observability.F("attempt_id", attemptID),
		observability.F("status", string(resolved.Status)),
		observability.F("result_code", resultCode),
		observability.F("late", late),
	)

	s.publishResolved(ctx, resolved, late)
	return nil
}

// Get returns a snapshot of the attempt for status polling.
func (s *Service) Get(ctx context.Context, attemptID string) (*domain.Attempt, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, ErrNotFound
	}
	return attempt.Clone(), nil
}

// resolveTimeout fires when no callback arrived within the window. The cart
// stays intact upstream, so the operator can retry with another method.
func (s *Service) resolveTimeout(attemptID string) {
	s.mu.Lock()
	attempt, ok := s.attempts[attemptID]
	if !ok || attempt.Status.Terminal() || attempt.Status == domain.StatusCanceled {
		delete(s.timers, attemptID)
		s.mu.Unlock()
		return
	}
	if err := attempt.Fail(domain.FailureReasonTimeout, s.clock.Now()); err != nil {
		delete(s.timers, attemptID)
		s.mu.Unlock()
		return
	}
	delete(s.timers, attemptID)
	resolved := attempt.Clone()
	s.mu.Unlock()

	s.cbCounter.Add(1, observability.L("result", "timeout"))
	s.log.Warn("attempt_timed_out",
		observability.F("attempt_id", attemptID),
		observability.F("timeout_seconds", s.timeout.Seconds()),
	)

	s.publishResolved(context.Background(), resolved, false)
}

func (s *Service) publishResolved(ctx context.Context, attempt *domain.Attempt, late bool) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, domain.NewResolvedEvent(attempt, late)); err != nil {
		s.log.Error("resolved_event_publish_failed",
			observability.F("attempt_id", attempt.ID),
			observability.F("error", err.Error()),
		)
	}
}

func (s *Service) store(attempt *domain.Attempt) {
	s.mu.Lock()
	s.attempts[attempt.ID] = attempt
	s.mu.Unlock()
}

func (s *Service) count(method, outcome string) {
	s.reqCounter.Add(1,
		observability.L("method", method),
		observability.L("outcome", outcome),
	)
}
