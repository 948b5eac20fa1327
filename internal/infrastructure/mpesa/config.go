package mpesa

import "os"

const (
	sandboxBaseURL = "https://sandbox.safaricom.co.ke"
	sandboxPasskey = "bfb279f9aa9bdbcf158e97dd71a467cd2e0c893059b10f78e6b72ada1ed2c919"
)

// Config holds the Daraja API credentials and endpoints.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	BaseURL        string
	CallbackURL    string
}

// ConfigFromEnv reads the gateway settings, defaulting to the public sandbox.
func ConfigFromEnv() Config {
	return Config{
		ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		Shortcode:      getenvDefault("MPESA_SHORTCODE", "174379"),
		Passkey:        getenvDefault("MPESA_PASSKEY", sandboxPasskey),
		BaseURL:        getenvDefault("MPESA_BASE_URL", sandboxBaseURL),
		CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
