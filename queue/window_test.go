package queue

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestWindowGrowsWithWaitTime(t *testing.T) {
	cfg := WindowConfig{Start: 100, Step: 50, Interval: 15 * time.Second, Max: 400}

	assert.Equal(t, cfg.WindowAt(0), 100)
	assert.Equal(t, cfg.WindowAt(14*time.Second), 100)
	assert.Equal(t, cfg.WindowAt(15*time.Second), 150)
	assert.Equal(t, cfg.WindowAt(29*time.Second), 150)
	assert.Equal(t, cfg.WindowAt(30*time.Second), 200)
	assert.Equal(t, cfg.WindowAt(90*time.Second), 400)
}

func TestWindowNeverExceedsMax(t *testing.T) {
	cfg := WindowConfig{Start: 100, Step: 50, Interval: 15 * time.Second, Max: 400}
	assert.Equal(t, cfg.WindowAt(10*time.Minute), 400)
	assert.Equal(t, cfg.WindowAt(24*time.Hour), 400)
}

func TestWindowClampsNegativeElapsed(t *testing.T) {
	cfg := WindowConfig{Start: 100, Step: 50, Interval: 15 * time.Second, Max: 400}
	assert.Equal(t, cfg.WindowAt(-time.Minute), 100)
}

func TestWindowStaysFlatWithoutInterval(t *testing.T) {
	cfg := WindowConfig{Start: 120, Step: 50, Max: 400}
	assert.Equal(t, cfg.WindowAt(time.Hour), 120)
}

func TestTierCompatible(t *testing.T) {
	assert.Assert(t, tierCompatible(20, 50, 50))
	assert.Assert(t, tierCompatible(20, 50, 70))
	assert.Assert(t, tierCompatible(20, 70, 50))
	assert.Assert(t, !tierCompatible(20, 50, 71))
	assert.Assert(t, !tierCompatible(20, 80, 50))
	assert.Assert(t, tierCompatible(0, 33, 33))
	assert.Assert(t, !tierCompatible(0, 33, 34))
}
