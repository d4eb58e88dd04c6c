package policynumber

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextFormat(t *testing.T) {
	g := New("")
	pattern := regexp.MustCompile(`^POL-\d{10}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, pattern, g.Next())
	}
}

func TestNextDeterministic(t *testing.T) {
	at := time.UnixMilli(1_700_000_123_456)
	g := New("BT", WithClock(func() time.Time { return at }), WithRand(func(int) int { return 0 }))
	assert.Equal(t, "BT-1234561000", g.Next())

	g = New("BT", WithClock(func() time.Time { return time.UnixMilli(42) }), WithRand(func(n int) int { return n - 1 }))
	assert.Equal(t, "BT-0000429999", g.Next())
}

func TestNextVariesWithRandomness(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	calls := 0
	g := New("POL", WithClock(func() time.Time { return at }), WithRand(func(int) int {
		calls++
		return calls
	}))
	assert.NotEqual(t, g.Next(), g.Next())
}
