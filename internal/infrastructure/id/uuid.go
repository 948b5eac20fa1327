package id

import "github.com/google/uuid"

type UUIDGenerator struct{}

// NewUUIDGenerator returns a generator backed by random UUIDs.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
