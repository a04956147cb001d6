package domain

import "time"

// AccessPass is the paid access right for one domain/path pair. A pass is
// created exactly once per purchase transaction and only ever mutated by the
// ledger's consume operation, which decrements RemainingUses.
type AccessPass struct {
	// ID is the on-ledger object id of the pass.
	ID string
	// Owner is the ledger address that purchased the pass.
	Owner string
	// Domain is the HTTP host the pass was bought for.
	Domain string
	// Path is the resource path the pass was bought for.
	Path string
	// RemainingUses is the number of accesses left; only ever decreases.
	RemainingUses uint64
	// ExpiryMs is the expiry as milliseconds since epoch; 0 means never expires.
	ExpiryMs int64
	// Nonce is the challenge nonce bound into the purchase transaction.
	Nonce string
	// PricePaid is the amount paid, in smallest currency units.
	PricePaid uint64
}

// Exhausted reports whether the pass has no remaining uses.
func (p *AccessPass) Exhausted() bool {
	return p.RemainingUses == 0
}

// ExpiredAt reports whether the pass validity window has ended at the given
// time. Expiry is edge-inclusive; a zero ExpiryMs never expires.
func (p *AccessPass) ExpiredAt(now time.Time) bool {
	return p.ExpiryMs != 0 && now.UnixMilli() >= p.ExpiryMs
}
