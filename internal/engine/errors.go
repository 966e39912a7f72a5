package engine

import "errors"

var (

	// An action in the reconciliation cascade failed. The wrapped error
	// names the tier it failed at; the applied-state record reflects only
	// the tiers that completed, so the same command is safe to retry.
	ErrAction = errors.New("action failed")
)
