package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVault_Countdown(t *testing.T) {
	t.Run("fresh vault", func(t *testing.T) {
		v := newActiveVault(t, 90)
		c := v.Countdown(t0)
		assert.Equal(t, t0.Add(90*Day), c.TransferDate)
		assert.Equal(t, 90, c.DaysRemaining)
		assert.Zero(t, c.ProgressPercent)
		assert.False(t, c.Expired)
	})

	t.Run("partial days round up", func(t *testing.T) {
		v := newActiveVault(t, 90)
		c := v.Countdown(t0.Add(89*Day + time.Hour))
		assert.Equal(t, 1, c.DaysRemaining)
		assert.InDelta(t, 98.9, c.ProgressPercent, 0.1)
	})

	t.Run("expired vault clamps", func(t *testing.T) {
		v := newActiveVault(t, 30)
		c := v.Countdown(t0.Add(45 * Day))
		assert.Zero(t, c.DaysRemaining)
		assert.Equal(t, float64(100), c.ProgressPercent)
		assert.True(t, c.Expired)
	})

	t.Run("transferred vault is complete", func(t *testing.T) {
		v := newActiveVault(t, 30)
		v.Status = StatusTransferred
		c := v.Countdown(t0)
		assert.True(t, c.Expired)
		assert.Equal(t, float64(100), c.ProgressPercent)
	})
}
