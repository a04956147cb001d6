package service

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	apperrors "github.com/tollgate-io/tollgate/internal/errors"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
)

// nonceBytes is the challenge nonce entropy (128 bits).
const nonceBytes = 16

// ContractIdentifiers names the on-ledger package and module clients must
// address when purchasing a pass.
type ContractIdentifiers struct {
	// PackageID is the on-ledger package id.
	PackageID string
	// ModuleName is the module within the package.
	ModuleName string
}

// challengeGenerator implements ChallengeGenerator.
type challengeGenerator struct {
	contract ContractIdentifiers
}

// NewChallengeGenerator creates a generator that stamps challenges with the
// given contract identifiers.
func NewChallengeGenerator(contract ContractIdentifiers) ChallengeGenerator {
	return &challengeGenerator{contract: contract}
}

// NewChallenge builds a payment challenge for the entry. The only side
// effect is nonce generation; no pass state is read or leaked.
func (g *challengeGenerator) NewChallenge(
	entry *ledgerDomain.ResourceEntry,
) (*accessDomain.PaymentChallenge, error) {
	smallest, err := PriceToSmallestUnit(entry.Price)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate challenge nonce")
	}

	return &accessDomain.PaymentChallenge{
		Status:              402,
		PaymentRequired:     true,
		Price:               entry.Price,
		PriceInSmallestUnit: strconv.FormatUint(smallest, 10),
		Receiver:            entry.Receiver,
		Domain:              entry.Domain,
		Resource:            entry.Path,
		Nonce:               hex.EncodeToString(nonce),
		ContractIdentifiers: map[string]string{
			"packageId": g.contract.PackageID,
			"module":    g.contract.ModuleName,
		},
	}, nil
}
