package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	appcheckout "github.com/Roymukiebe/meat-track-smart-sales/internal/application/checkout"
	appinventory "github.com/Roymukiebe/meat-track-smart-sales/internal/application/inventory"
	appsettlement "github.com/Roymukiebe/meat-track-smart-sales/internal/application/settlement"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/catalog"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/payment"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/sale"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/cardsim"
	checkoutworker "github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/checkout/worker"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/memory"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/mpesa"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/outbox"
	receiptworker "github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/receipt/worker"
	settlementworker "github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/settlement/worker"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/presentation/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu sync.Mutex
	n  int
}

func (f *fakeGateway) InitiatePush(_ context.Context, _ payment.PushRequest) (*payment.PushResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return &payment.PushResponse{
		CheckoutRequestID: fmt.Sprintf("ws_CO_%d", f.n),
		MerchantRequestID: fmt.Sprintf("mr_%d", f.n),
	}, nil
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type fixture struct {
	server  *httptest.Server
	ledger  *memory.StockLedger
	history *memory.SaleHistory
	steakID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewSystem()
	ids := &seqIDs{}
	ledger := memory.NewStockLedger(ids, clk)

	steak, err := ledger.AddProduct(context.Background(), catalog.Spec{
		Name: "Beef Steak", Category: "Beef", Price: 800, Unit: "kg",
		CurrentStock: 25, MinStock: 10, MaxStock: 100, CostPrice: 650, Supplier: "Premium Meat Supplies",
	})
	require.NoError(t, err)

	history := memory.NewSaleHistory()
	receipts := memory.NewReceiptStore()
	renderer, err := receipt.NewRenderer()
	require.NoError(t, err)

	bus := outbox.NewBus(nil)
	bus.Start(context.Background())
	t.Cleanup(func() { bus.Stop(context.Background()) })

	settlementSvc := appsettlement.NewService(
		&fakeGateway{}, cardsim.NewProcessor(clk), bus, ids, mpesa.NormalizePhone,
		clk, time.Minute, nil,
	)
	inventorySvc := appinventory.NewService(ledger, nil)
	checkoutSvc := appcheckout.NewService(ledger, history, sale.NewNumberGenerator("TMC", clk), settlementSvc, bus, clk, nil)

	settlementworker.New(bus, settlementSvc).Start()
	checkoutworker.New(bus, checkoutSvc).Start()
	receiptworker.New(bus, history, renderer, receipts, nil).Start()

	handler := NewHandler(inventorySvc, checkoutSvc, settlementSvc, bus, receipts, renderer, nil, nil)
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	return &fixture{server: server, ledger: ledger, history: history, steakID: steak.ID}
}

func (f *fixture) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/products")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	require.Len(t, products, 1)
	assert.Equal(t, "Beef Steak", products[0]["name"])
	assert.Equal(t, float64(25), products[0]["current_stock"])
}

func TestProductLifecycle(t *testing.T) {
	f := newFixture(t)

	resp, created := f.post(t, "/products", map[string]any{
		"name": "Goat Meat", "category": "Goat", "price": 600, "unit": "kg",
		"current_stock": 14, "min_stock": 5, "max_stock": 35, "cost_price": 480, "supplier": "Local Farmers",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := created["id"].(string)

	resp, restocked := f.post(t, "/products/"+id+"/restock", map[string]any{"quantity": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(24), restocked["current_stock"])

	req, err := http.NewRequest(http.MethodDelete, f.server.URL+"/products/"+id, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)
}

func TestCompleteCashSale(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/sales", map[string]any{
		"lines":         []map[string]any{{"product_id": f.steakID, "quantity": 2}},
		"customer_name": "Jane",
		"staff_name":    "Peter",
		"method":        "cash",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["succeeded"])
	assert.Equal(t, float64(1600), body["total"])
	assert.Contains(t, body["receipt_number"], "TMC")

	steak, err := f.ledger.Get(context.Background(), f.steakID)
	require.NoError(t, err)
	assert.Equal(t, 23, steak.CurrentStock)
}

func TestCompleteCardSaleDeclined(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/sales", map[string]any{
		"lines":       []map[string]any{{"product_id": f.steakID, "quantity": 1}},
		"staff_name":  "Peter",
		"method":      "card",
		"card_number": "0000111122223333",
	})
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, false, body["succeeded"])
	assert.Equal(t, "Card declined by issuer", body["failure_reason"])
}

func TestSaleValidationErrors(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.post(t, "/sales", map[string]any{
		"lines":      []map[string]any{{"product_id": f.steakID, "quantity": 30}},
		"staff_name": "Peter",
		"method":     "cash",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.post(t, "/sales", map[string]any{
		"lines":      []map[string]any{{"product_id": f.steakID, "quantity": 1}},
		"staff_name": "Peter",
		"method":     "cheque",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.post(t, "/sales", map[string]any{
		"lines":  []map[string]any{{"product_id": f.steakID, "quantity": 1}},
		"method": "cash",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	steak, err := f.ledger.Get(context.Background(), f.steakID)
	require.NoError(t, err)
	assert.Equal(t, 25, steak.CurrentStock)
}

func TestMobileMoneySaleEndToEnd(t *testing.T) {
	f := newFixture(t)

	resp, started := f.post(t, "/sales/mpesa", map[string]any{
		"lines":         []map[string]any{{"product_id": f.steakID, "quantity": 2}},
		"customer_name": "Jane",
		"staff_name":    "Peter",
		"phone_number":  "0712345678",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	attemptID := started["attempt_id"].(string)
	checkoutRequestID := started["checkout_request_id"].(string)
	assert.Equal(t, "awaiting_secret", started["status"])

	resp, _ = f.post(t, "/sales/mpesa/confirm", map[string]any{"attempt_id": attemptID, "pin": "12"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, confirmed := f.post(t, "/sales/mpesa/confirm", map[string]any{"attempt_id": attemptID, "pin": "1234"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processing", confirmed["status"])

	resp, ack := f.post(t, "/payments/callback", map[string]any{
		"Body": map[string]any{
			"stkCallback": map[string]any{
				"MerchantRequestID": "mr_1",
				"CheckoutRequestID": checkoutRequestID,
				"ResultCode":        0,
				"ResultDesc":        "The service request is processed successfully.",
				"CallbackMetadata": map[string]any{
					"Item": []map[string]any{
						{"Name": "Amount", "Value": 1600},
						{"Name": "MpesaReceiptNumber", "Value": "RCPT1"},
					},
				},
			},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Callback received successfully", ack["message"])

	require.Eventually(t, func() bool {
		statusResp := f.get(t, "/sales/mpesa/"+attemptID)
		var attempt map[string]any
		if err := json.NewDecoder(statusResp.Body).Decode(&attempt); err != nil {
			return false
		}
		return attempt["status"] == "succeeded"
	}, 2*time.Second, 20*time.Millisecond)

	var receiptNumber string
	require.Eventually(t, func() bool {
		records, err := f.history.Search(context.Background(), "")
		if err != nil || len(records) != 1 || !records[0].Succeeded {
			return false
		}
		receiptNumber = records[0].ReceiptNumber
		return true
	}, 2*time.Second, 20*time.Millisecond)

	steak, err := f.ledger.Get(context.Background(), f.steakID)
	require.NoError(t, err)
	assert.Equal(t, 23, steak.CurrentStock)

	require.Eventually(t, func() bool {
		resp := f.get(t, "/receipts/"+receiptNumber)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMobileMoneyCancel(t *testing.T) {
	f := newFixture(t)

	_, started := f.post(t, "/sales/mpesa", map[string]any{
		"lines":        []map[string]any{{"product_id": f.steakID, "quantity": 1}},
		"staff_name":   "Peter",
		"phone_number": "0712345678",
	})
	attemptID := started["attempt_id"].(string)

	resp, canceled := f.post(t, "/sales/mpesa/cancel", map[string]any{"attempt_id": attemptID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "canceled", canceled["status"])
}

func TestSTKPushContract(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/payments/stkpush", map[string]any{
		"phoneNumber":      "0712345678",
		"amount":           500,
		"accountReference": "INV-2041",
		"transactionDesc":  "Outstanding balance",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["checkoutRequestId"])
	assert.NotEmpty(t, body["merchantRequestId"])

	resp, body = f.post(t, "/payments/stkpush", map[string]any{
		"phoneNumber": "12345",
		"amount":      500,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestCallbackWithMalformedBody(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.server.URL+"/payments/callback", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSearchSales(t *testing.T) {
	f := newFixture(t)

	_, first := f.post(t, "/sales", map[string]any{
		"lines":         []map[string]any{{"product_id": f.steakID, "quantity": 1}},
		"customer_name": "Jane",
		"staff_name":    "Peter",
		"method":        "cash",
	})

	resp := f.get(t, "/sales?q=jane")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, first["receipt_number"], records[0]["receipt_number"])
}

func TestGetReceiptNotFound(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/receipts/TMC000000000000")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
