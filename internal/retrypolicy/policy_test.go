package retrypolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayDoublesEachRetry(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 300 * time.Second, MaxRetries: 10}
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
}

func TestDelayCapsAtMax(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 300 * time.Second, MaxRetries: 100}
	assert.Equal(t, 300*time.Second, p.Delay(20))
}

func TestShouldRetryRespectsMaxRetries(t *testing.T) {
	p := Policy{MaxRetries: 3}
	assert.True(t, p.ShouldRetry(0))
	assert.True(t, p.ShouldRetry(2))
	assert.False(t, p.ShouldRetry(3))
}

func TestDefaultPolicy(t *testing.T) {
	p := Default()
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 300*time.Second, p.MaxDelay)
	assert.Equal(t, 3, p.MaxRetries)
}

func TestNextAttemptAt(t *testing.T) {
	p := Default()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := p.NextAttemptAt(now, 1)
	assert.Equal(t, now.Add(2*time.Second), got)
}
