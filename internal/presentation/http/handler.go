package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	appcheckout "github.com/Roymukiebe/meat-track-smart-sales/internal/application/checkout"
	appinventory "github.com/Roymukiebe/meat-track-smart-sales/internal/application/inventory"
	appsettlement "github.com/Roymukiebe/meat-track-smart-sales/internal/application/settlement"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/cart"
	domcatalog "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/catalog"
	domoutbox "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/outbox"
	dompayment "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/payment"
	domsale "github.com/Roymukiebe/meat-track-smart-sales/internal/domain/sale"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/memory"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability/logctx"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/presentation/receipt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	inventory  *appinventory.Service
	checkout   *appcheckout.Service
	settlement *appsettlement.Service
	publisher  domoutbox.Publisher
	receipts   *memory.ReceiptStore
	renderer   *receipt.Renderer
	log        observability.Logger
	tel        observability.Observability
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
)

func NewHandler(
	inventorySvc *appinventory.Service,
	checkoutSvc *appcheckout.Service,
	settlementSvc *appsettlement.Service,
	publisher domoutbox.Publisher,
	receipts *memory.ReceiptStore,
	renderer *receipt.Renderer,
	logger observability.Logger,
	tel observability.Observability,
) *Handler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = observability.NopLogger()
	}
	return &Handler{
		inventory:  inventorySvc,
		checkout:   checkoutSvc,
		settlement: settlementSvc,
		publisher:  publisher,
		receipts:   receipts,
		renderer:   renderer,
		log:        baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:        tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Wire each route with middlewares:
	// Trace → ObservabilityMiddleware (request logger) → Access log → Handler
	h.muxHandle(mux, http.MethodGet, "/products", h.handleListProducts)
	h.muxHandle(mux, http.MethodPost, "/products", h.handleAddProduct)
	h.muxHandle(mux, http.MethodGet, "/products/low-stock", h.handleLowStock)
	h.muxHandle(mux, http.MethodDelete, "/products/{id}", h.handleRemoveProduct)
	h.muxHandle(mux, http.MethodPost, "/products/{id}/restock", h.handleRestock)

	h.muxHandle(mux, http.MethodPost, "/sales", h.handleCompleteSale)
	h.muxHandle(mux, http.MethodGet, "/sales", h.handleSearchSales)
	h.muxHandle(mux, http.MethodPost, "/sales/mpesa", h.handleStartMobileSale)
	h.muxHandle(mux, http.MethodPost, "/sales/mpesa/confirm", h.handleConfirmMobileSale)
	h.muxHandle(mux, http.MethodPost, "/sales/mpesa/cancel", h.handleCancelMobileSale)
	h.muxHandle(mux, http.MethodGet, "/sales/mpesa/{id}", h.handleMobileStatus)

	h.muxHandle(mux, http.MethodPost, "/payments/stkpush", h.handleSTKPush)
	h.muxHandle(mux, http.MethodPost, "/payments/callback", h.handleCallback)

	h.muxHandle(mux, http.MethodGet, "/receipts/{number}", h.handleGetReceipt)
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	mux.HandleFunc(method+" "+route, func(w http.ResponseWriter, r *http.Request) {
		// Store stable route template for low-cardinality labels
		ctx := contextWithRoute(r.Context(), method+" "+route)
		r = r.WithContext(ctx)

		// Wrap: Trace → Request Logger + Metrics → Access Log → Handler
		wrapped := h.withTrace(
			ObservabilityMiddleware(
				logctx.FromOr(ctx, h.log),
				func(r *http.Request) string {
					return r.Header.Get(headerRequestID)
				},
				h.tel,
			)(
				h.withAccessLog(http.HandlerFunc(handler)),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

type productResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Price         int64  `json:"price"`
	Unit          string `json:"unit"`
	CurrentStock  int    `json:"current_stock"`
	MinStock      int    `json:"min_stock"`
	MaxStock      int    `json:"max_stock"`
	CostPrice     int64  `json:"cost_price"`
	Supplier      string `json:"supplier"`
	LastRestocked string `json:"last_restocked"`
	LowStock      bool   `json:"low_stock"`
}

func toProductResponse(p *domcatalog.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Category:      p.Category,
		Price:         p.Price,
		Unit:          p.Unit,
		CurrentStock:  p.CurrentStock,
		MinStock:      p.MinStock,
		MaxStock:      p.MaxStock,
		CostPrice:     p.CostPrice,
		Supplier:      p.Supplier,
		LastRestocked: p.LastRestocked.Format(time.RFC3339),
		LowStock:      p.LowStock(),
	}
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.List(r.Context(), r.URL.Query().Get("category"), r.URL.Query().Get("q"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.LowStock(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type addProductRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	Price        int64  `json:"price"`
	Unit         string `json:"unit"`
	CurrentStock int    `json:"current_stock"`
	MinStock     int    `json:"min_stock"`
	MaxStock     int    `json:"max_stock"`
	CostPrice    int64  `json:"cost_price"`
	Supplier     string `json:"supplier"`
}

func (h *Handler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	product, err := h.inventory.Add(r.Context(), domcatalog.Spec{
		Name:         req.Name,
		Category:     req.Category,
		Price:        req.Price,
		Unit:         req.Unit,
		CurrentStock: req.CurrentStock,
		MinStock:     req.MinStock,
		MaxStock:     req.MaxStock,
		CostPrice:    req.CostPrice,
		Supplier:     req.Supplier,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *Handler) handleRemoveProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := h.inventory.Restock(r.Context(), r.PathValue("id"), req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

type saleLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type completeSaleRequest struct {
	Lines        []saleLineRequest `json:"lines"`
	CustomerName string            `json:"customer_name"`
	StaffName    string            `json:"staff_name"`
	Method       string            `json:"method"`
	CardNumber   string            `json:"card_number"`
}

type saleRecordResponse struct {
	ReceiptNumber    string `json:"receipt_number"`
	Total            int64  `json:"total"`
	Method           string `json:"method"`
	PaymentReference string `json:"payment_reference,omitempty"`
	Succeeded        bool   `json:"succeeded"`
	FailureReason    string `json:"failure_reason,omitempty"`
	CompletedAt      string `json:"completed_at"`
}

func toSaleRecordResponse(rec *domsale.Record) saleRecordResponse {
	return saleRecordResponse{
		ReceiptNumber:    rec.ReceiptNumber,
		Total:            rec.Total,
		Method:           rec.Method,
		PaymentReference: rec.PaymentReference,
		Succeeded:        rec.Succeeded,
		FailureReason:    rec.FailureReason,
		CompletedAt:      rec.CompletedAt.Format(time.RFC3339),
	}
}

func (h *Handler) handleCompleteSale(w http.ResponseWriter, r *http.Request) {
	var req completeSaleRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	method, err := dompayment.ParseMethod(req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	record, err := h.checkout.CompleteSale(r.Context(), toSaleInput(req.Lines, req.CustomerName, req.StaffName), method, req.CardNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if !record.Succeeded {
		status = http.StatusPaymentRequired
	}
	writeJSON(w, status, toSaleRecordResponse(record))
}

func toSaleInput(lines []saleLineRequest, customer, staff string) appcheckout.SaleInput {
	in := appcheckout.SaleInput{CustomerName: customer, StaffName: staff}
	for _, l := range lines {
		in.Lines = append(in.Lines, appcheckout.LineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return in
}

type startMobileSaleRequest struct {
	Lines        []saleLineRequest `json:"lines"`
	CustomerName string            `json:"customer_name"`
	StaffName    string            `json:"staff_name"`
	PhoneNumber  string            `json:"phone_number"`
}

type mobileSaleResponse struct {
	AttemptID         string `json:"attempt_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	Amount            int64  `json:"amount"`
	Status            string `json:"status"`
}

func (h *Handler) handleStartMobileSale(w http.ResponseWriter, r *http.Request) {
	var req startMobileSaleRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	mobile, err := h.checkout.StartMobileSale(r.Context(), toSaleInput(req.Lines, req.CustomerName, req.StaffName), req.PhoneNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, mobileSaleResponse{
		AttemptID:         mobile.AttemptID,
		CheckoutRequestID: mobile.CheckoutRequestID,
		Amount:            mobile.Amount,
		Status:            string(mobile.Status),
	})
}

type confirmMobileSaleRequest struct {
	AttemptID string `json:"attempt_id"`
	PIN       string `json:"pin"`
}

type attemptResponse struct {
	AttemptID     string `json:"attempt_id"`
	Status        string `json:"status"`
	Reference     string `json:"reference,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

func toAttemptResponse(a *dompayment.Attempt) attemptResponse {
	return attemptResponse{
		AttemptID:     a.ID,
		Status:        string(a.Status),
		Reference:     a.Reference,
		FailureReason: a.FailureReason,
	}
}

func (h *Handler) handleConfirmMobileSale(w http.ResponseWriter, r *http.Request) {
	var req confirmMobileSaleRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	attempt, err := h.checkout.ConfirmMobileSale(r.Context(), req.AttemptID, req.PIN)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

type cancelMobileSaleRequest struct {
	AttemptID string `json:"attempt_id"`
}

func (h *Handler) handleCancelMobileSale(w http.ResponseWriter, r *http.Request) {
	var req cancelMobileSaleRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	attempt, err := h.checkout.CancelMobileSale(r.Context(), req.AttemptID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

func (h *Handler) handleMobileStatus(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.checkout.MobileStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

func (h *Handler) handleSearchSales(w http.ResponseWriter, r *http.Request) {
	records, err := h.checkout.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]saleRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toSaleRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

type stkPushRequest struct {
	PhoneNumber      string `json:"phoneNumber"`
	Amount           int64  `json:"amount"`
	AccountReference string `json:"accountReference"`
	TransactionDesc  string `json:"transactionDesc"`
}

type stkPushResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	CheckoutRequestID string `json:"checkoutRequestId,omitempty"`
	MerchantRequestID string `json:"merchantRequestId,omitempty"`
	Error             string `json:"error,omitempty"`
}

// handleSTKPush initiates a push payment without a cart, e.g. for settling an
// outstanding balance. The attempt resolves through the same callback path.
func (h *Handler) handleSTKPush(w http.ResponseWriter, r *http.Request) {
	var req stkPushRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, stkPushResponse{Success: false, Error: err.Error()})
		return
	}

	attempt, err := h.settlement.StartPush(r.Context(), req.PhoneNumber, req.Amount, req.AccountReference, req.TransactionDesc)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, dompayment.ErrInvalidPhoneNumber) || errors.Is(err, dompayment.ErrInvalidAmount) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, stkPushResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, stkPushResponse{
		Success:           true,
		Message:           "STK push initiated. Check your phone.",
		CheckoutRequestID: attempt.CheckoutRequestID,
		MerchantRequestID: attempt.MerchantRequestID,
	})
}

type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// handleCallback receives the gateway's asynchronous result. It only parses
// and publishes; resolution happens in the settlement worker. The gateway is
// always acknowledged with 200 so it stops retrying.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	var envelope stkCallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		logctx.FromOr(r.Context(), h.log).Warn("callback_parse_failed",
			observability.F("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "invalid callback payload"})
		return
	}

	cb := envelope.Body.StkCallback
	receiptNumber := ""
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				receiptNumber = s
			}
		}
	}

	evt := dompayment.NewCallbackReceivedEvent(cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc, receiptNumber)
	if err := h.publisher.Publish(r.Context(), evt); err != nil {
		logctx.FromOr(r.Context(), h.log).Error("callback_publish_failed",
			observability.F("checkout_request_id", cb.CheckoutRequestID),
			observability.F("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Callback received successfully"})
}

func (h *Handler) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	number := r.PathValue("number")

	doc, ok := h.receipts.Get(r.Context(), number)
	if !ok {
		// Render on demand if the worker has not cached it yet.
		record, err := h.checkout.Get(r.Context(), number)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		doc, err = h.renderer.Render(record)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("meattrack.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := route
		if spanName == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}
		if template == "unknown" || template == "" {
			template = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

func decodeJSON(ctx context.Context, r *http.Request, dst any) error {
	_ = ctx
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domcatalog.ErrNotFound),
		errors.Is(err, domsale.ErrNotFound),
		errors.Is(err, dompayment.ErrNotFound),
		errors.Is(err, appcheckout.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domcatalog.ErrInvalidQuantity),
		errors.Is(err, domcatalog.ErrInsufficientStock),
		errors.Is(err, domcatalog.ErrOutOfStock),
		errors.Is(err, domcatalog.ErrInvalidProduct),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, domsale.ErrStaffRequired),
		errors.Is(err, domsale.ErrEmptySale),
		errors.Is(err, dompayment.ErrInvalidAmount),
		errors.Is(err, dompayment.ErrInvalidPhoneNumber),
		errors.Is(err, dompayment.ErrInvalidCardNumber),
		errors.Is(err, dompayment.ErrInvalidPIN),
		errors.Is(err, dompayment.ErrUnknownMethod):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, dompayment.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, appsettlement.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
