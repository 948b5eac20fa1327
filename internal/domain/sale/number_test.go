package sale

import (
	"fmt"
	"testing"
	"time"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextFormat(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	g := NewNumberGenerator("", clock.NewFixed(at))

	n := g.Next()
	assert.Len(t, n, len("TMC")+6+6)
	assert.Equal(t, "TMC250301", n[:9])
	assert.Equal(t, fmt.Sprintf("%06d", at.UnixMilli()%1_000_000), n[9:])
}

func TestNextCustomPrefix(t *testing.T) {
	g := NewNumberGenerator("POS", clock.NewFixed(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "POS", g.Next()[:3])
}

func TestNextIsUniqueUnderRapidMinting(t *testing.T) {
	clk := clock.NewStepping(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	g := NewNumberGenerator("TMC", clk)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		n := g.Next()
		_, dup := seen[n]
		require.False(t, dup, "duplicate receipt number %s at mint %d", n, i)
		seen[n] = struct{}{}
		clk.Advance(time.Millisecond)
	}
}

func TestNextBumpsSuffixWithinSameMillisecond(t *testing.T) {
	g := NewNumberGenerator("TMC", clock.NewFixed(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))

	first := g.Next()
	second := g.Next()
	assert.NotEqual(t, first, second)
	assert.Greater(t, second, first, "same-day numbers stay monotonic")
}
