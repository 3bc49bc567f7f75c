package models

import (
	"math"
	"time"
)

// Countdown is the server-side view of how close a vault is to transfer. It
// is derived from the same fields the trigger reads, so the displayed
// countdown and the transfer decision cannot disagree.
type Countdown struct {
	TransferDate    time.Time `json:"transfer_date"`
	DaysRemaining   int       `json:"days_remaining"`
	ProgressPercent float64   `json:"progress_percent"`
	// Expired is true once the inactivity period has elapsed or the vault
	// has already left Active.
	Expired bool `json:"expired"`
}

func (v *Vault) Countdown(now time.Time) Countdown {
	c := Countdown{TransferDate: v.Deadline()}
	if !v.IsActive() {
		c.ProgressPercent = 100
		c.Expired = true
		return c
	}

	if remaining := c.TransferDate.Sub(now); remaining > 0 {
		c.DaysRemaining = int(math.Ceil(float64(remaining) / float64(Day)))
	}

	elapsed := now.Sub(v.LastActive)
	pct := float64(elapsed) / float64(v.InactivityPeriod()) * 100
	c.ProgressPercent = math.Max(0, math.Min(100, pct))
	c.Expired = v.IsEligible(now)
	return c
}
