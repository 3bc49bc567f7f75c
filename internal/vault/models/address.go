package models

import (
	"time"

	dErrors "satvault/pkg/domain-errors"
)

const (
	MinInactivityDays = 1
	MaxInactivityDays = 3650

	MaxAddressLength = 100

	Day = 24 * time.Hour
)

// ValidateAddress is a light sanity check only: non-empty, bounded length,
// ASCII letters and digits. Chain-specific syntax is the wallet's concern.
func ValidateAddress(addr string) error {
	if addr == "" {
		return dErrors.New(dErrors.CodeInvalidAddress, "address is required")
	}
	if len(addr) > MaxAddressLength {
		return dErrors.New(dErrors.CodeInvalidAddress, "address must be 100 characters or less")
	}
	for i := 0; i < len(addr); i++ {
		c := addr[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return dErrors.New(dErrors.CodeInvalidAddress, "address contains invalid characters")
		}
	}
	return nil
}

// ValidateAddressPair checks both addresses and that they differ.
func ValidateAddressPair(primary, backup string) error {
	if err := ValidateAddress(primary); err != nil {
		return err
	}
	if err := ValidateAddress(backup); err != nil {
		return err
	}
	if primary == backup {
		return dErrors.New(dErrors.CodeInvalidAddress, "primary and backup addresses must differ")
	}
	return nil
}

func ValidateInactivityDays(days int) error {
	if days < MinInactivityDays || days > MaxInactivityDays {
		return dErrors.New(dErrors.CodeInvalidInput, "inactivity period must be between 1 and 3650 days")
	}
	return nil
}
