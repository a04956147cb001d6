// Package domain defines the ledger-resident objects the gateway reads and
// the ledger mutates: resource entries, access passes and payment coins.
// The ledger is the system of record; values held here are point-in-time
// snapshots with no coherency guarantee beyond "valid at read time".
package domain

// ResourceEntry maps a protected domain/path pair to its content location,
// price and decryption policy. It is owned and mutated only by the resource
// owner via the ledger; this process treats it as read-only.
type ResourceEntry struct {
	// ID is the on-ledger object id of the entry.
	ID string
	// Domain is the HTTP host the entry protects.
	Domain string
	// Path is the resource path within the domain (leading slash included).
	Path string
	// ContentLocator is the opaque blob store locator returned at upload time.
	ContentLocator string
	// DecryptionPolicyID identifies the threshold decryption policy for the content.
	DecryptionPolicyID string
	// Price is the pass price as a decimal string in ledger currency units.
	Price string
	// Receiver is the ledger address that collects payments.
	Receiver string
	// MaxUsesPerPass is the number of uses granted per purchased pass.
	MaxUsesPerPass uint64
	// ValidityDurationMs is how long a purchased pass stays valid; 0 means no expiry.
	ValidityDurationMs int64
	// Active indicates whether the entry currently accepts purchases.
	Active bool
}
