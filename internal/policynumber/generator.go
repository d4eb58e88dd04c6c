// Package policynumber produces human-readable policy identifiers.
package policynumber

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "POL"

// Generator builds numbers of the form PREFIX-<6 time digits><4 random digits>.
// It never checks storage; the unique constraint on policy_number is the
// backstop and callers regenerate on collision.
type Generator struct {
	prefix string
	now    func() time.Time
	intn   func(n int) int
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand overrides the random source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(g *Generator) { g.intn = intn }
}

// New returns a Generator. An empty prefix falls back to DefaultPrefix.
func New(prefix string, opts ...Option) *Generator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	g := &Generator{prefix: prefix, now: time.Now, intn: rand.IntN}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a fresh candidate number.
func (g *Generator) Next() string {
	millis := g.now().UnixMilli() % 1_000_000
	suffix := 1000 + g.intn(9000)
	return fmt.Sprintf("%s-%06d%d", g.prefix, millis, suffix)
}
