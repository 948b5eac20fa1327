package cardsim

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeApproves(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	p := NewProcessor(clock.NewFixed(at))

	result, err := p.Charge(context.Background(), "4111111111111111", 2250)
	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.True(t, strings.HasPrefix(result.Reference, "CD"))
	assert.Contains(t, result.Reference, "CD")
}

func TestChargeDeclinesReservedPrefix(t *testing.T) {
	p := NewProcessor(clock.NewSystem())

	result, err := p.Charge(context.Background(), "0000 1111 2222 3333", 2250)
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, "Card declined by issuer", result.Reason)
	assert.Empty(t, result.Reference)
}
