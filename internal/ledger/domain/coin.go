package domain

// PaymentCoin is a value-bearing ledger object spendable in a pass purchase.
// Coins are owned by client addresses; the SDK selects or splits them when
// settling a payment challenge.
type PaymentCoin struct {
	// ID is the on-ledger object id of the coin.
	ID string
	// Owner is the ledger address holding the coin.
	Owner string
	// Value is the coin value in smallest currency units.
	Value uint64
}
