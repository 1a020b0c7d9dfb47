// Package bill generates human-readable bill numbers for printed receipts.
package bill

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultPrefix is used when a Generator is created without an explicit one.
const DefaultPrefix = "BILL"

// Generator produces bill numbers of the form PREFIX-YYMMDD-HHMMSS-RRRR,
// where RRRR is drawn uniformly from [1000, 9999]. The random suffix makes
// collisions unlikely but not impossible; the ledger's order ID, not the
// bill number, is the authoritative identifier. Callers holding a
// pre-assigned bill number simply skip the generator.
type Generator struct {
	prefix string
	now    func() time.Time
	intN   func(n int) int
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand overrides the random source. Used by tests.
func WithRand(intN func(n int) int) Option {
	return func(g *Generator) { g.intN = intN }
}

// NewGenerator creates a Generator with the given prefix, falling back to
// DefaultPrefix when empty.
func NewGenerator(prefix string, opts ...Option) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	g := &Generator{
		prefix: prefix,
		now:    time.Now,
		intN:   rand.IntN,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a fresh bill number.
func (g *Generator) Next() string {
	now := g.now()
	suffix := 1000 + g.intN(9000)
	return fmt.Sprintf("%s-%s-%s-%04d",
		g.prefix,
		now.Format("060102"),
		now.Format("150405"),
		suffix,
	)
}
