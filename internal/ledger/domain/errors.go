package domain

import (
	"github.com/tollgate-io/tollgate/internal/errors"
)

// Ledger-specific error definitions.
var (
	// ErrEntryNotFound indicates no resource entry exists for the lookup key.
	ErrEntryNotFound = errors.Wrap(errors.ErrResourceNotFound, "ledger")

	// ErrPassNotFound indicates the pass id does not resolve to a ledger object.
	ErrPassNotFound = errors.Wrap(errors.ErrPassNotFound, "ledger")

	// ErrCoinNotFound indicates the payment coin does not exist or is already spent.
	ErrCoinNotFound = errors.Wrap(errors.ErrNotFound, "payment coin not found")
)
