package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/payment"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath  = "/mpesa/stkpush/v1/processrequest"
)

// Client talks to the Daraja STK push API. It implements payment.PushGateway.
type Client struct {
	cfg    Config
	http   *http.Client
	clock  clock.Clock
	logger observability.Logger
	tel    observability.Observability
}

func NewClient(cfg Config, httpClient *http.Client, clk clock.Clock, tel observability.Observability) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		clock:  clk,
		logger: tel.Logger().With(observability.F("component", "mpesa_client")),
		tel:    tel,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type pushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type pushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiatePush authenticates, then asks the gateway to prompt the customer's
// handset for the sale amount.
func (c *Client) InitiatePush(ctx context.Context, req payment.PushRequest) (*payment.PushResponse, error) {
	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.clock.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))

	phone := NormalizePhone(req.PhoneNumber)
	payload := pushPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount,
		PartyA:            phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.TransactionDesc,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal push payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+pushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build push request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	start := c.clock.Now()
	resp, err := c.http.Do(httpReq)
	c.observe("stkpush", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read push response: %v", payment.ErrGatewayRequest, err)
	}

	var out pushResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode push response: %v", payment.ErrGatewayRequest, err)
	}

	if resp.StatusCode != http.StatusOK || out.ResponseCode != "0" {
		c.logger.Warn("stk push rejected",
			observability.F("status", resp.StatusCode),
			observability.F("response_code", out.ResponseCode),
			observability.F("description", out.ResponseDescription),
		)
		return nil, fmt.Errorf("%w: %s", payment.ErrGatewayRequest, out.ResponseDescription)
	}

	c.logger.Info("stk push accepted",
		observability.F("checkout_request_id", out.CheckoutRequestID),
		observability.F("merchant_request_id", out.MerchantRequestID),
	)

	return &payment.PushResponse{
		CheckoutRequestID: out.CheckoutRequestID,
		MerchantRequestID: out.MerchantRequestID,
		Description:       out.CustomerMessage,
	}, nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	httpReq.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	start := c.clock.Now()
	resp, err := c.http.Do(httpReq)
	c.observe("oauth_token", start, err)
	if err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrGatewayAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", payment.ErrGatewayAuth, resp.StatusCode)
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", payment.ErrGatewayAuth, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", payment.ErrGatewayAuth)
	}
	return out.AccessToken, nil
}

func (c *Client) observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := []observability.Label{
		observability.L("target", "mpesa"),
		observability.L("operation", operation),
		observability.L("status", status),
	}
	c.tel.Metrics().Counter(observability.MExternalRequests).Add(1, labels...)
	c.tel.Metrics().Histogram(observability.MExternalRequestDuration).
		Observe(c.clock.Now().Sub(start).Seconds(), labels...)
}
