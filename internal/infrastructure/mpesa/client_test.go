package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/payment"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		BaseURL:        baseURL,
		CallbackURL:    "https://pos.example.com/payments/callback",
	}
}

func TestInitiatePush(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 30, 45, 0, time.UTC)
	var gotPush pushPayload
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "key", user)
			assert.Equal(t, "secret", pass)
			assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
			_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "token-1", ExpiresIn: "3599"})
		case "/mpesa/stkpush/v1/processrequest":
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPush))
			_ = json.NewEncoder(w).Encode(pushResponse{
				MerchantRequestID:   "mr_1",
				CheckoutRequestID:   "ws_CO_1",
				ResponseCode:        "0",
				ResponseDescription: "Success. Request accepted for processing",
				CustomerMessage:     "Success. Request accepted for processing",
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), srv.Client(), clock.NewFixed(at), observability.Nop())

	resp, err := client.InitiatePush(context.Background(), payment.PushRequest{
		PhoneNumber:      "0712345678",
		Amount:           2250,
		AccountReference: "Thika Meat Centre",
		TransactionDesc:  "Meat purchase",
	})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", resp.CheckoutRequestID)
	assert.Equal(t, "mr_1", resp.MerchantRequestID)

	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Equal(t, "174379", gotPush.BusinessShortCode)
	assert.Equal(t, "CustomerPayBillOnline", gotPush.TransactionType)
	assert.Equal(t, "254712345678", gotPush.PhoneNumber, "phone is normalized before dispatch")
	assert.Equal(t, "254712345678", gotPush.PartyA)
	assert.Equal(t, "174379", gotPush.PartyB)
	assert.Equal(t, "20250301103045", gotPush.Timestamp)

	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + "20250301103045"))
	assert.Equal(t, wantPassword, gotPush.Password)
}

func TestInitiatePushRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "token-1"})
			return
		}
		_ = json.NewEncoder(w).Encode(pushResponse{
			ResponseCode:        "1",
			ResponseDescription: "Invalid PhoneNumber",
		})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), srv.Client(), clock.NewSystem(), observability.Nop())

	_, err := client.InitiatePush(context.Background(), payment.PushRequest{PhoneNumber: "254712345678", Amount: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrGatewayRequest)
	assert.Contains(t, err.Error(), "Invalid PhoneNumber")
}

func TestInitiatePushAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), srv.Client(), clock.NewSystem(), observability.Nop())

	_, err := client.InitiatePush(context.Background(), payment.PushRequest{PhoneNumber: "254712345678", Amount: 100})
	assert.ErrorIs(t, err, payment.ErrGatewayAuth)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("MPESA_CONSUMER_KEY", "k")
	t.Setenv("MPESA_CONSUMER_SECRET", "s")
	t.Setenv("MPESA_SHORTCODE", "")
	t.Setenv("MPESA_BASE_URL", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, "174379", cfg.Shortcode)
	assert.Equal(t, sandboxBaseURL, cfg.BaseURL)
	assert.Equal(t, sandboxPasskey, cfg.Passkey)
}
