package mpesa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"0712345678":     "254712345678",
		"254712345678":   "254712345678",
		"+254712345678":  "254712345678",
		"712345678":      "254712345678",
		" 0712 345 678 ": "254712345678",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizePhone(raw), "input %q", raw)
	}
}

func TestNormalizePhoneIsIdempotent(t *testing.T) {
	for _, raw := range []string{"0712345678", "+254712345678", "712345678"} {
		once := NormalizePhone(raw)
		assert.Equal(t, once, NormalizePhone(once))
	}
}
