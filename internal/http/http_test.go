package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	accessMocks "github.com/tollgate-io/tollgate/internal/access/usecase/mocks"
	"github.com/tollgate-io/tollgate/internal/config"
	contentMocks "github.com/tollgate-io/tollgate/internal/content/usecase/mocks"
	gatewayHTTP "github.com/tollgate-io/tollgate/internal/gateway/http"
	gatewayMocks "github.com/tollgate-io/tollgate/internal/gateway/http/mocks"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
	"github.com/tollgate-io/tollgate/internal/signing"
)

// TestMain sets Gin to test mode and verifies no goroutines leak.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

func testConfig() *config.Config {
	return &config.Config{
		ServerHost:              "localhost",
		ServerPort:              8080,
		LogLevel:                "error",
		RateLimitEnabled:        false,
		RateLimitRequestsPerSec: 100,
		RateLimitBurst:          10,
	}
}

type serverFixture struct {
	entries    *gatewayMocks.MockEntryReader
	challenges *gatewayMocks.MockChallengeGenerator
	verifier   *accessMocks.MockAccessVerifier
	server     *Server
}

func createTestServer(t *testing.T, cfg *config.Config) *serverFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	signer, err := signing.NewSignerFromSeed(make([]byte, signing.SeedSize))
	require.NoError(t, err)

	f := &serverFixture{
		entries:    new(gatewayMocks.MockEntryReader),
		challenges: new(gatewayMocks.MockChallengeGenerator),
		verifier:   new(accessMocks.MockAccessVerifier),
	}

	gateway := gatewayHTTP.NewGatewayHandler(
		f.entries,
		f.challenges,
		f.verifier,
		new(contentMocks.MockRetriever),
		new(gatewayMocks.MockPassConsumer),
		signer,
		time.Second,
		logger,
	)

	f.server = NewServer(cfg, gateway, nil, logger)
	return f
}

func TestServer_Health(t *testing.T) {
	f := createTestServer(t, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	f.server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestServer_Readiness(t *testing.T) {
	f := createTestServer(t, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	f.server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ready", response["status"])
}

func TestServer_UnmatchedPathReachesGateway(t *testing.T) {
	f := createTestServer(t, testConfig())

	entry := &ledgerDomain.ResourceEntry{
		ID:       "entry-1",
		Domain:   "media.example.com",
		Path:     "/v1/reports/q3.pdf",
		Price:    "2.5",
		Receiver: "0xa1b2c3d4",
		Active:   true,
	}
	f.entries.On("LookupEntry", mock.Anything, "media.example.com", "/v1/reports/q3.pdf").Return(entry, nil)
	f.challenges.On("NewChallenge", entry).
		Return(&accessDomain.PaymentChallenge{Status: http.StatusPaymentRequired, PaymentRequired: true}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/q3.pdf", nil)
	req.Host = "media.example.com"
	f.server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "paymentRequired")
	f.entries.AssertExpectations(t)
}

func TestServer_NonGetOnResourcePathIs405(t *testing.T) {
	f := createTestServer(t, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports/q3.pdf", nil)
	f.server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	f.entries.AssertNotCalled(t, "LookupEntry")
}

func TestServer_RequestIDHeaderIsSet(t *testing.T) {
	f := createTestServer(t, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	f.server.GetHandler().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequestsPerSec = 1
	cfg.RateLimitBurst = 2
	f := createTestServer(t, cfg)

	statuses := make([]int, 0, 4)
	for range 4 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		f.server.GetHandler().ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Contains(t, statuses[2:], http.StatusTooManyRequests)
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := gin.New()
	router.Use(RecoveryMiddleware(logger))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestCustomLoggerMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := gin.New()
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/ok", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
