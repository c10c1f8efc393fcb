package bandwidth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocateRespectsBudget(t *testing.T) {
	l := NewLedger(1000)
	assert.True(t, l.Allocate(600))
	assert.True(t, l.CanAllocate(400))
	assert.False(t, l.CanAllocate(500))
	assert.False(t, l.Allocate(500))
	assert.True(t, l.Allocate(400))

	allocated, total := l.Usage()
	assert.EqualValues(t, 1000, allocated)
	assert.EqualValues(t, 1000, total)
}

func TestReleaseReturnsBudget(t *testing.T) {
	l := NewLedger(1000)
	l.Allocate(1000)
	l.Release(400)
	assert.True(t, l.CanAllocate(400))
	assert.False(t, l.CanAllocate(401))
}

func TestReleaseNeverGoesNegative(t *testing.T) {
	l := NewLedger(1000)
	l.Release(500)
	allocated, _ := l.Usage()
	assert.EqualValues(t, 0, allocated)
}

func TestUnlimitedBudgetAlwaysAllocates(t *testing.T) {
	l := NewLedger(0)
	assert.True(t, l.CanAllocate(1<<30))
	assert.True(t, l.Allocate(1 << 30))
}

func TestThrottleUnlimitedWhenNoLimit(t *testing.T) {
	limiter := Throttle(0)
	assert.True(t, limiter.Allow())
}
