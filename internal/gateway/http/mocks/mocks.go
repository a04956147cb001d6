// Package mocks provides mock implementations for testing the gateway handler.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
)

// MockEntryReader is a mock implementation of EntryReader for testing.
type MockEntryReader struct {
	mock.Mock
}

// LookupEntry mocks the LookupEntry method of EntryReader.
func (m *MockEntryReader) LookupEntry(ctx context.Context, domain, path string) (*ledgerDomain.ResourceEntry, error) {
	args := m.Called(ctx, domain, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerDomain.ResourceEntry), args.Error(1)
}

// MockPassConsumer is a mock implementation of PassConsumer for testing.
type MockPassConsumer struct {
	mock.Mock
}

// ConsumePass mocks the ConsumePass method of PassConsumer.
func (m *MockPassConsumer) ConsumePass(
	ctx context.Context,
	passID, owner string,
	signature []byte,
) (uint64, error) {
	args := m.Called(ctx, passID, owner, signature)
	return args.Get(0).(uint64), args.Error(1)
}

// MockChallengeGenerator is a mock implementation of ChallengeGenerator for testing.
type MockChallengeGenerator struct {
	mock.Mock
}

// NewChallenge mocks the NewChallenge method of ChallengeGenerator.
func (m *MockChallengeGenerator) NewChallenge(
	entry *ledgerDomain.ResourceEntry,
) (*accessDomain.PaymentChallenge, error) {
	args := m.Called(entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accessDomain.PaymentChallenge), args.Error(1)
}
