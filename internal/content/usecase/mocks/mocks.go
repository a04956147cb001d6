// Package mocks provides mock implementations for testing content retrieval.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tollgate-io/tollgate/internal/content/authz"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
)

// MockBlobFetcher is a mock implementation of BlobFetcher for testing.
type MockBlobFetcher struct {
	mock.Mock
}

// Fetch mocks the Fetch method of BlobFetcher.
func (m *MockBlobFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	args := m.Called(ctx, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockDecrypter is a mock implementation of Decrypter for testing.
type MockDecrypter struct {
	mock.Mock
}

// Decrypt mocks the Decrypt method of Decrypter.
func (m *MockDecrypter) Decrypt(
	ctx context.Context,
	policyID string,
	ciphertext []byte,
	artifact authz.Artifact,
) ([]byte, error) {
	args := m.Called(ctx, policyID, ciphertext, artifact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockRetriever is a mock implementation of Retriever for testing.
type MockRetriever struct {
	mock.Mock
}

// Retrieve mocks the Retrieve method of Retriever.
func (m *MockRetriever) Retrieve(
	ctx context.Context,
	entry *ledgerDomain.ResourceEntry,
	passID string,
) ([]byte, error) {
	args := m.Called(ctx, entry, passID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
