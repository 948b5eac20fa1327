package sale

import (
	"fmt"
	"sync"

	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
)

// DefaultReceiptPrefix matches the business identity on printed receipts.
const DefaultReceiptPrefix = "TMC"

// NumberGenerator mints receipt numbers of the form PREFIX+YYMMDD+SSSSSS,
// where the suffix is the last six digits of the wall-clock milliseconds.
// Lexicographic order approximates temporal order within a day, and the date
// component makes cross-day collisions impossible. A monotonic guard bumps
// the suffix when two mints land in the same millisecond window, which keeps
// single-register throughput collision-free.
type NumberGenerator struct {
	prefix string
	clock  clock.Clock

	mu         sync.Mutex
	lastDay    string
	lastSuffix int64
}

func NewNumberGenerator(prefix string, clk clock.Clock) *NumberGenerator {
	if prefix == "" {
		prefix = DefaultReceiptPrefix
	}
	return &NumberGenerator{prefix: prefix, clock: clk}
}

// Next returns a fresh receipt number, unique within this process.
func (g *NumberGenerator) Next() string {
	now := g.clock.Now()
	day := now.Format("060102")
	suffix := now.UnixMilli() % 1_000_000

	g.mu.Lock()
	if day == g.lastDay && suffix <= g.lastSuffix {
		suffix = (g.lastSuffix + 1) % 1_000_000
	}
	g.lastDay = day
	g.lastSuffix = suffix
	g.mu.Unlock()

	return fmt.Sprintf("%s%s%06d", g.prefix, day, suffix)
}
