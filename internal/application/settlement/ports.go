package settlement

// IDGenerator mints attempt identifiers.
type IDGenerator interface {
	NewID() string
}

// PhoneNormalizer rewrites a raw subscriber number into gateway form before
// validation. Wired from the gateway package so the rules live in one place.
type PhoneNormalizer func(raw string) string
