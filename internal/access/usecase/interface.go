// Package usecase implements the access verification state machine that
// decides whether a request may be served. The decision composes a fresh
// ledger read of the presented pass with ownership, scope, lifetime and
// signature checks, evaluated in a fixed short-circuiting order.
package usecase

import (
	"context"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
)

// PassReader reads current access pass state from the ledger.
type PassReader interface {
	// FetchPass returns a point-in-time snapshot of the pass, or
	// ErrPassNotFound (via domain) when the id does not resolve.
	FetchPass(ctx context.Context, passID string) (*ledgerDomain.AccessPass, error)
}

// AccessVerifier decides whether a proof grants access to a resource entry.
type AccessVerifier interface {
	// Verify re-reads the pass from the ledger and runs the verification
	// checks. Denials are reported as a Decision, not an error; an error is
	// returned only for infrastructure failures (e.g. ledger unavailable).
	//
	// Decisions are never cached across requests: remaining uses can change
	// between calls, so every request re-evaluates from fresh ledger state.
	Verify(
		ctx context.Context,
		entry *ledgerDomain.ResourceEntry,
		proof *accessDomain.AccessProof,
	) (*accessDomain.Decision, error)
}
