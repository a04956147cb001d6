package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	accessMocks "github.com/tollgate-io/tollgate/internal/access/usecase/mocks"
	contentMocks "github.com/tollgate-io/tollgate/internal/content/usecase/mocks"
	apperrors "github.com/tollgate-io/tollgate/internal/errors"
	gatewayMocks "github.com/tollgate-io/tollgate/internal/gateway/http/mocks"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
	"github.com/tollgate-io/tollgate/internal/signing"
)

type handlerFixture struct {
	entries    *gatewayMocks.MockEntryReader
	challenges *gatewayMocks.MockChallengeGenerator
	verifier   *accessMocks.MockAccessVerifier
	retriever  *contentMocks.MockRetriever
	consumer   *gatewayMocks.MockPassConsumer
	router     *gin.Engine
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	signer, err := signing.NewSignerFromSeed(make([]byte, signing.SeedSize))
	require.NoError(t, err)

	f := &handlerFixture{
		entries:    new(gatewayMocks.MockEntryReader),
		challenges: new(gatewayMocks.MockChallengeGenerator),
		verifier:   new(accessMocks.MockAccessVerifier),
		retriever:  new(contentMocks.MockRetriever),
		consumer:   new(gatewayMocks.MockPassConsumer),
	}

	handler := NewGatewayHandler(
		f.entries,
		f.challenges,
		f.verifier,
		f.retriever,
		f.consumer,
		signer,
		time.Second,
		slog.New(slog.DiscardHandler),
	)

	f.router = gin.New()
	f.router.GET("/*path", handler.ResourceHandler)
	return f
}

func entryFixture() *ledgerDomain.ResourceEntry {
	return &ledgerDomain.ResourceEntry{
		ID:             "entry-1",
		Domain:         "media.example.com",
		Path:           "/v1/reports/q3.pdf",
		ContentLocator: "bafy-locator-1",
		Price:          "2.5",
		Receiver:       "0xa1b2c3d4",
		Active:         true,
	}
}

func passFixture() *ledgerDomain.AccessPass {
	return &ledgerDomain.AccessPass{
		ID:            "pass-1",
		Owner:         "0xdeadbeef01",
		Domain:        "media.example.com",
		Path:          "/v1/reports/q3.pdf",
		RemainingUses: 3,
	}
}

func proofHeaders(req *http.Request) {
	req.Header.Set(accessDomain.HeaderPassID, "pass-1")
	req.Header.Set(accessDomain.HeaderSigner, "0xdeadbeef01")
	req.Header.Set(accessDomain.HeaderSignerKey, "cHVibGljLWtleQ==")
	req.Header.Set(accessDomain.HeaderSignature, "c2lnbmF0dXJl")
	req.Header.Set(accessDomain.HeaderTimestamp, "1700000000000")
}

func newRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Host = "media.example.com:8080"
	return req
}

func TestGatewayHandler_Challenge(t *testing.T) {
	t.Run("MissingProofGetsPaymentChallenge", func(t *testing.T) {
		f := newFixture(t)
		entry := entryFixture()
		challenge := &accessDomain.PaymentChallenge{
			Status:              http.StatusPaymentRequired,
			PaymentRequired:     true,
			Price:               "2.5",
			PriceInSmallestUnit: "2500000000",
			Receiver:            entry.Receiver,
			Domain:              entry.Domain,
			Resource:            entry.Path,
			Nonce:               "abcdef",
		}
		f.entries.On("LookupEntry", mock.Anything, "media.example.com", "/v1/reports/q3.pdf").Return(entry, nil)
		f.challenges.On("NewChallenge", entry).Return(challenge, nil)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, newRequest("/v1/reports/q3.pdf"))

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		var body accessDomain.PaymentChallenge
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.PaymentRequired)
		assert.Equal(t, "2500000000", body.PriceInSmallestUnit)
		f.verifier.AssertNotCalled(t, "Verify")
	})

	t.Run("PartialProofStillGetsChallenge", func(t *testing.T) {
		f := newFixture(t)
		entry := entryFixture()
		f.entries.On("LookupEntry", mock.Anything, "media.example.com", "/v1/reports/q3.pdf").Return(entry, nil)
		f.challenges.On("NewChallenge", entry).Return(&accessDomain.PaymentChallenge{PaymentRequired: true}, nil)

		req := newRequest("/v1/reports/q3.pdf")
		req.Header.Set(accessDomain.HeaderPassID, "pass-1")

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		f.verifier.AssertNotCalled(t, "Verify")
	})

	t.Run("DomainOverrideHeaderWins", func(t *testing.T) {
		f := newFixture(t)
		entry := entryFixture()
		f.entries.On("LookupEntry", mock.Anything, "other.example.com", "/v1/reports/q3.pdf").Return(entry, nil)
		f.challenges.On("NewChallenge", entry).Return(&accessDomain.PaymentChallenge{PaymentRequired: true}, nil)

		req := newRequest("/v1/reports/q3.pdf")
		req.Header.Set(HeaderDomainOverride, "other.example.com")

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		f.entries.AssertExpectations(t)
	})

	t.Run("InactiveEntryIsNotChallengeable", func(t *testing.T) {
		f := newFixture(t)
		entry := entryFixture()
		entry.Active = false
		f.entries.On("LookupEntry", mock.Anything, "media.example.com", "/v1/reports/q3.pdf").Return(entry, nil)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, newRequest("/v1/reports/q3.pdf"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		f.challenges.AssertNotCalled(t, "NewChallenge")
	})

	t.Run("HostPortIsStripped", func(t *testing.T) {
		f := newFixture(t)
		f.entries.On("LookupEntry", mock.Anything, "media.example.com", "/x").
			Return(nil, ledgerDomain.ErrEntryNotFound)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, newRequest("/x"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		f.entries.AssertExpectations(t)
	})
}

func TestGatewayHandler_Errors(t *testing.T) {
	t.Run("UnknownResourceIs404", func(t *testing.T) {
		f := newFixture(t)
		f.entries.On("LookupEntry", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, ledgerDomain.ErrEntryNotFound)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, newRequest("/nope"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "not_found")
	})

	t.Run("LedgerDownIs503", func(t *testing.T) {
		f := newFixture(t)
		f.entries.On("LookupEntry", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrLedgerUnavailable)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, newRequest("/v1/reports/q3.pdf"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("ContentUnavailableIs502", func(t *testing.T) {
		f := newFixture(t)
		entry := entryFixture()
		f.entries.On("LookupEntry", mock.Anything, mock.Anything, mock.Anything).Return(entry, nil)
		f.verifier.On("Verify", mock.Anything, entry, mock.Anything).
			Return(accessDomain.Grant(passFixture()), nil)
		f.retriever.On("Retrieve", mock.Anything, entry, "pass-1").
			Return(nil, apperrors.ErrContentUnavailable)

		req := newRequest("/v1/reports/q3.pdf")
		proofHeaders(req)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		f.consumer.AssertNotCalled(t, "ConsumePass")
	})
}

func TestGatewayHandler_Denials(t *testing.T) {
	denials := []struct {
		reason accessDomain.DenyReason
		want   string
	}{
		{accessDomain.ReasonPassNotFound, "pass_not_found"},
		{accessDomain.ReasonOwnershipMismatch, "ownership_mismatch"},
		{accessDomain.ReasonScopeMismatch, "scope_mismatch"},
		{accessDomain.ReasonExhausted, "exhausted"},
		{accessDomain.ReasonExpired, "expired"},
		{accessDomain.ReasonBadSignature, "bad_signature"},
	}

	for _, tt := range denials {
		t.Run(string(tt.reason), func(t *testing.T) {
			f := newFixture(t)
			entry := entryFixture()
			f.entries.On("LookupEntry", mock.Anything, mock.Anything, mock.Anything).Return(entry, nil)
			f.verifier.On("Verify", mock.Anything, entry, mock.Anything).
				Return(accessDomain.Deny(tt.reason), nil)

			req := newRequest("/v1/reports/q3.pdf")
			proofHeaders(req)

			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			f.challenges.AssertNotCalled(t, "NewChallenge")
			f.retriever.AssertNotCalled(t, "Retrieve")
		})
	}
}

func TestGatewayHandler_ProofValidation(t *testing.T) {
	t.Run("MalformedSignerIsDeniedWithoutLedgerRead", func(t *testing.T) {
		f := newFixture(t)
		entry := entryFixture()
		f.entries.On("LookupEntry", mock.Anything, mock.Anything, mock.Anything).Return(entry, nil)

		req := newRequest("/v1/reports/q3.pdf")
		proofHeaders(req)
		req.Header.Set(accessDomain.HeaderSigner, "not-an-address")

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "bad_signature")
		f.verifier.AssertNotCalled(t, "Verify")
		f.challenges.AssertNotCalled(t, "NewChallenge")
	})

	t.Run("MalformedTimestampIsDenied", func(t *testing.T) {
		f := newFixture(t)
		entry := entryFixture()
		f.entries.On("LookupEntry", mock.Anything, mock.Anything, mock.Anything).Return(entry, nil)

		req := newRequest("/v1/reports/q3.pdf")
		proofHeaders(req)
		req.Header.Set(accessDomain.HeaderTimestamp, "yesterday")

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "bad_signature")
		f.verifier.AssertNotCalled(t, "Verify")
	})
}

func TestGatewayHandler_Delivery(t *testing.T) {
	t.Run("GrantedRequestDeliversContent", func(t *testing.T) {
		f := newFixture(t)
		entry := entryFixture()
		pass := passFixture()
		consumed := make(chan struct{})

		f.entries.On("LookupEntry", mock.Anything, "media.example.com", "/v1/reports/q3.pdf").Return(entry, nil)
		f.verifier.On("Verify", mock.Anything, entry, mock.Anything).Return(accessDomain.Grant(pass), nil)
		f.retriever.On("Retrieve", mock.Anything, entry, "pass-1").Return([]byte("the content"), nil)
		f.consumer.On("ConsumePass", mock.Anything, "pass-1", "0xdeadbeef01", mock.Anything).
			Run(func(mock.Arguments) { close(consumed) }).
			Return(uint64(2), nil)

		req := newRequest("/v1/reports/q3.pdf")
		proofHeaders(req)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
		assert.Equal(t, "entry-1", w.Header().Get(HeaderResourceEntryID))
		assert.Equal(t, "the content", w.Body.String())

		select {
		case <-consumed:
		case <-time.After(2 * time.Second):
			t.Fatal("pass consumption was not attempted")
		}
	})

	t.Run("ConsumeFailureDoesNotAffectResponse", func(t *testing.T) {
		f := newFixture(t)
		entry := entryFixture()
		consumed := make(chan struct{})

		f.entries.On("LookupEntry", mock.Anything, mock.Anything, mock.Anything).Return(entry, nil)
		f.verifier.On("Verify", mock.Anything, entry, mock.Anything).
			Return(accessDomain.Grant(passFixture()), nil)
		f.retriever.On("Retrieve", mock.Anything, entry, "pass-1").Return([]byte("the content"), nil)
		f.consumer.On("ConsumePass", mock.Anything, "pass-1", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { close(consumed) }).
			Return(uint64(0), apperrors.ErrLedgerUnavailable)

		req := newRequest("/v1/reports/q3.pdf")
		proofHeaders(req)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "the content", w.Body.String())

		select {
		case <-consumed:
		case <-time.After(2 * time.Second):
			t.Fatal("pass consumption was not attempted")
		}
	})
}
