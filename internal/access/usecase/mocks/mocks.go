// Package mocks provides mock implementations for testing access verification.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
)

// MockPassReader is a mock implementation of PassReader for testing.
type MockPassReader struct {
	mock.Mock
}

// FetchPass mocks the FetchPass method of PassReader.
func (m *MockPassReader) FetchPass(ctx context.Context, passID string) (*ledgerDomain.AccessPass, error) {
	args := m.Called(ctx, passID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerDomain.AccessPass), args.Error(1)
}

// MockSignatureVerifier is a mock implementation of SignatureVerifier for testing.
type MockSignatureVerifier struct {
	mock.Mock
}

// Verify mocks the Verify method of SignatureVerifier.
func (m *MockSignatureVerifier) Verify(
	proof *accessDomain.AccessProof,
	domain, path string,
	now time.Time,
) error {
	args := m.Called(proof, domain, path, now)
	return args.Error(0)
}

// MockAccessVerifier is a mock implementation of AccessVerifier for testing.
type MockAccessVerifier struct {
	mock.Mock
}

// Verify mocks the Verify method of AccessVerifier.
func (m *MockAccessVerifier) Verify(
	ctx context.Context,
	entry *ledgerDomain.ResourceEntry,
	proof *accessDomain.AccessProof,
) (*accessDomain.Decision, error) {
	args := m.Called(ctx, entry, proof)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accessDomain.Decision), args.Error(1)
}
