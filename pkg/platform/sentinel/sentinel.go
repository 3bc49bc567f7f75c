package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into coded domain errors.
//
//   - ErrNotFound: no record for the key
//   - ErrAlreadyUsed: unique key already taken (one vault per owner)
//   - ErrInvalidState: record is in the wrong status for the requested transition
//   - ErrUnavailable: backing service temporarily unreachable
//   - ErrLeaseHeld: another worker holds the lease for this key
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrLeaseHeld    = errors.New("lease held")
)
