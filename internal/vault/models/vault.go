package models

import (
	"math"
	"time"

	id "satvault/pkg/domain"
	dErrors "satvault/pkg/domain-errors"
)

// Vault is the aggregate root for one owner's custody record.
//
// Invariants:
//   - At most one vault per Owner; Owner is immutable
//   - PrimaryAddress != BackupAddress, both pass ValidateAddress
//   - LastActive never decreases and is only updated while Active
//   - Status moves active -> transfer_pending -> transferred and never back
//   - Status transferred implies Balance == 0
//
// The transfer bookkeeping (TransferID, PendingAmount, TransferAttempts,
// NextAttemptAt) is set when the vault enters transfer_pending and lets a
// restarted process resume retries where the previous one stopped.
type Vault struct {
	Owner          string    `json:"owner"`
	PrimaryAddress string    `json:"primary_address"`
	BackupAddress  string    `json:"backup_address"`
	InactivityDays int       `json:"inactivity_period_days"`
	Balance        uint64    `json:"balance"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	LastActive     time.Time `json:"last_active"`
	UpdatedAt      time.Time `json:"updated_at"`

	TransferID       id.TransferID `json:"-"`
	PendingAmount    uint64        `json:"-"`
	TransferAttempts int           `json:"-"`
	NextAttemptAt    time.Time     `json:"-"`
	TransferredAt    *time.Time    `json:"transferred_at,omitempty"`
}

// NewVault builds an Active vault with zero balance and LastActive = CreatedAt = now.
func NewVault(owner, primary, backup string, inactivityDays int, now time.Time) (*Vault, error) {
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if err := ValidateAddressPair(primary, backup); err != nil {
		return nil, err
	}
	if err := ValidateInactivityDays(inactivityDays); err != nil {
		return nil, err
	}
	return &Vault{
		Owner:          owner,
		PrimaryAddress: primary,
		BackupAddress:  backup,
		InactivityDays: inactivityDays,
		Status:         StatusActive,
		CreatedAt:      now,
		LastActive:     now,
		UpdatedAt:      now,
	}, nil
}

func (v *Vault) IsActive() bool {
	return v.Status == StatusActive
}

func (v *Vault) InactivityPeriod() time.Duration {
	return time.Duration(v.InactivityDays) * Day
}

// Deadline is the instant the vault becomes eligible for transfer.
func (v *Vault) Deadline() time.Time {
	return v.LastActive.Add(v.InactivityPeriod())
}

// IsEligible reports now - LastActive >= period for an Active vault.
func (v *Vault) IsEligible(now time.Time) bool {
	return v.IsActive() && !now.Before(v.Deadline())
}

// IsDue reports whether the trigger should act on the vault at now: either it
// just became eligible, or it is pending and its retry delay has elapsed.
func (v *Vault) IsDue(now time.Time) bool {
	switch v.Status {
	case StatusActive:
		return v.IsEligible(now)
	case StatusTransferPending:
		return !now.Before(v.NextAttemptAt)
	default:
		return false
	}
}

// CanRecordActivity rejects activity once the vault has left Active.
func (v *Vault) CanRecordActivity() error {
	if !v.IsActive() {
		return dErrors.New(dErrors.CodeVaultClosed, "vault is no longer active")
	}
	return nil
}

// ApplyActivity moves LastActive forward to now. An older now is ignored so
// LastActive stays monotonic.
func (v *Vault) ApplyActivity(now time.Time) {
	if now.After(v.LastActive) {
		v.LastActive = now
	}
	v.UpdatedAt = now
}

// CanDeposit validates a credit of amount satoshis.
func (v *Vault) CanDeposit(amount uint64) error {
	if !v.IsActive() {
		return dErrors.New(dErrors.CodeVaultClosed, "vault is no longer active")
	}
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "deposit amount must be positive")
	}
	// balances are persisted as BIGINT
	if amount > math.MaxInt64 || v.Balance > math.MaxInt64-amount {
		return dErrors.New(dErrors.CodeInvalidInput, "deposit would overflow the vault balance")
	}
	return nil
}

// ApplyDeposit credits the balance. A deposit is owner activity and resets the timer.
func (v *Vault) ApplyDeposit(amount uint64, now time.Time) {
	v.Balance += amount
	v.ApplyActivity(now)
}

// CanMarkPending is the compare half of the active -> transfer_pending gate.
func (v *Vault) CanMarkPending() error {
	if !v.Status.CanTransitionTo(StatusTransferPending) {
		return dErrors.New(dErrors.CodeInvariantViolation, "vault is not active")
	}
	return nil
}

// ApplyPending captures the balance to move and schedules the first attempt immediately.
func (v *Vault) ApplyPending(transferID id.TransferID, now time.Time) {
	v.Status = StatusTransferPending
	v.TransferID = transferID
	v.PendingAmount = v.Balance
	v.TransferAttempts = 0
	v.NextAttemptAt = now
	v.UpdatedAt = now
}

// CanRecordAttemptFailure requires the vault to still be pending on transferID.
func (v *Vault) CanRecordAttemptFailure(transferID id.TransferID) error {
	if v.Status != StatusTransferPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "vault is not pending transfer")
	}
	if v.TransferID != transferID {
		return dErrors.New(dErrors.CodeInvariantViolation, "transfer id mismatch")
	}
	return nil
}

func (v *Vault) ApplyAttemptFailure(nextAttemptAt, now time.Time) {
	v.TransferAttempts++
	v.NextAttemptAt = nextAttemptAt
	v.UpdatedAt = now
}

// CanApplyTransfer requires a pending vault and an amount that empties it.
func (v *Vault) CanApplyTransfer(amount uint64) error {
	if !v.Status.CanTransitionTo(StatusTransferred) {
		return dErrors.New(dErrors.CodeInvariantViolation, "vault is not pending transfer")
	}
	if amount != v.Balance {
		return dErrors.New(dErrors.CodeInvariantViolation, "transfer must move the entire balance")
	}
	return nil
}

func (v *Vault) ApplyTransfer(amount uint64, now time.Time) {
	v.Balance -= amount
	v.Status = StatusTransferred
	v.TransferAttempts++
	v.NextAttemptAt = time.Time{}
	transferredAt := now
	v.TransferredAt = &transferredAt
	v.UpdatedAt = now
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	c := *v
	if v.TransferredAt != nil {
		t := *v.TransferredAt
		c.TransferredAt = &t
	}
	return &c
}
