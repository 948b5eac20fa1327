package mpesa

import "strings"

// NormalizePhone rewrites a Kenyan subscriber number into the 254XXXXXXXXX
// form the gateway expects. It accepts local trunk form (07...), international
// form with a plus, or an already normalized number, and is idempotent.
func NormalizePhone(raw string) string {
	n := strings.TrimSpace(raw)
	n = strings.ReplaceAll(n, " ", "")
	n = strings.TrimPrefix(n, "+")

	switch {
	case strings.HasPrefix(n, "254"):
		return n
	case strings.HasPrefix(n, "0"):
		return "254" + n[1:]
	default:
		return "254" + n
	}
}
