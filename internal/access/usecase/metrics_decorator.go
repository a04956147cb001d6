package usecase

import (
	"context"
	"time"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
	"github.com/tollgate-io/tollgate/internal/metrics"
)

// accessVerifierWithMetrics decorates AccessVerifier with metrics instrumentation.
type accessVerifierWithMetrics struct {
	next    AccessVerifier
	metrics metrics.BusinessMetrics
}

// NewAccessVerifierWithMetrics wraps an AccessVerifier with metrics recording.
func NewAccessVerifierWithMetrics(verifier AccessVerifier, m metrics.BusinessMetrics) AccessVerifier {
	return &accessVerifierWithMetrics{
		next:    verifier,
		metrics: m,
	}
}

// Verify records decision counts and durations. Denials are labeled with
// their deny reason so granted/denied rates can be tracked per cause.
func (v *accessVerifierWithMetrics) Verify(
	ctx context.Context,
	entry *ledgerDomain.ResourceEntry,
	proof *accessDomain.AccessProof,
) (*accessDomain.Decision, error) {
	start := time.Now()
	decision, err := v.next.Verify(ctx, entry, proof)

	status := "error"
	switch {
	case err != nil:
	case decision.Granted:
		status = "granted"
	default:
		status = "denied_" + string(decision.Reason)
	}

	v.metrics.RecordOperation(ctx, "access", "verify", status)
	v.metrics.RecordDuration(ctx, "access", "verify", time.Since(start), status)

	return decision, err
}
