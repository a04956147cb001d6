// Package app provides the dependency injection container for assembling
// gateway components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	accessService "github.com/tollgate-io/tollgate/internal/access/service"
	accessUseCase "github.com/tollgate-io/tollgate/internal/access/usecase"
	"github.com/tollgate-io/tollgate/internal/config"
	"github.com/tollgate-io/tollgate/internal/content/blobstore"
	"github.com/tollgate-io/tollgate/internal/content/decryption"
	contentUseCase "github.com/tollgate-io/tollgate/internal/content/usecase"
	gatewayHTTP "github.com/tollgate-io/tollgate/internal/gateway/http"
	"github.com/tollgate-io/tollgate/internal/http"
	"github.com/tollgate-io/tollgate/internal/ledger/rpc"
	"github.com/tollgate-io/tollgate/internal/metrics"
	"github.com/tollgate-io/tollgate/internal/signing"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	metricsProvider *metrics.Provider
	ledgerClient    *rpc.Client
	signer          *signing.Signer

	// Services
	signatureVerifier  accessService.SignatureVerifier
	challengeGenerator accessService.ChallengeGenerator

	// Use Cases
	accessVerifier accessUseCase.AccessVerifier
	retriever      contentUseCase.Retriever

	// Clients
	blobStore        *blobstore.Client
	decryptionClient *decryption.Client

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                 sync.Mutex
	loggerInit         sync.Once
	metricsInit        sync.Once
	ledgerInit         sync.Once
	signerInit         sync.Once
	sigVerifierInit    sync.Once
	challengeInit      sync.Once
	accessVerifierInit sync.Once
	blobStoreInit      sync.Once
	decryptionInit     sync.Once
	retrieverInit      sync.Once
	httpServerInit     sync.Once
	metricsServerInit  sync.Once
	initErrors         map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// MetricsProvider returns the Prometheus/OpenTelemetry metrics provider, or
// nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// LedgerClient returns the ledger JSON-RPC client.
func (c *Container) LedgerClient() *rpc.Client {
	c.ledgerInit.Do(func() {
		c.ledgerClient = rpc.NewClient(rpc.Config{
			URL:            c.config.LedgerRPCURL,
			RequestTimeout: c.config.LedgerRequestTimeout,
			MaxAttempts:    c.config.LedgerMaxAttempts,
			RetryBaseDelay: c.config.LedgerRetryBaseDelay,
		}, c.Logger())
	})
	return c.ledgerClient
}

// Signer returns the gateway's signing identity, unwrapping the configured
// key on first access.
func (c *Container) Signer(ctx context.Context) (*signing.Signer, error) {
	c.signerInit.Do(func() {
		signer, err := signing.NewKeyLoader().LoadSigner(ctx, c.config.SignerKeyURI, c.config.SignerWrappedKey)
		if err != nil {
			c.initErrors["signer"] = fmt.Errorf("failed to load gateway signer: %w", err)
			return
		}
		c.signer = signer
	})
	if storedErr, exists := c.initErrors["signer"]; exists {
		return nil, storedErr
	}
	return c.signer, nil
}

// SignatureVerifier returns the request signature verifier.
func (c *Container) SignatureVerifier() accessService.SignatureVerifier {
	c.sigVerifierInit.Do(func() {
		c.signatureVerifier = accessService.NewSignatureVerifier(c.config.ProofFreshnessWindow)
	})
	return c.signatureVerifier
}

// ChallengeGenerator returns the payment challenge generator.
func (c *Container) ChallengeGenerator() accessService.ChallengeGenerator {
	c.challengeInit.Do(func() {
		c.challengeGenerator = accessService.NewChallengeGenerator(accessService.ContractIdentifiers{
			PackageID:  c.config.LedgerPackageID,
			ModuleName: c.config.LedgerModuleName,
		})
	})
	return c.challengeGenerator
}

// AccessVerifier returns the access verification use case, wrapped with
// metrics when enabled.
func (c *Container) AccessVerifier() (accessUseCase.AccessVerifier, error) {
	c.accessVerifierInit.Do(func() {
		verifier := accessUseCase.NewAccessVerifier(c.LedgerClient(), c.SignatureVerifier(), nil)

		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["accessVerifier"] = fmt.Errorf("failed to get metrics provider for access verifier: %w", err)
			return
		}
		if provider != nil {
			businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
			if err != nil {
				c.initErrors["accessVerifier"] = fmt.Errorf("failed to create business metrics: %w", err)
				return
			}
			verifier = accessUseCase.NewAccessVerifierWithMetrics(verifier, businessMetrics)
		}
		c.accessVerifier = verifier
	})
	if storedErr, exists := c.initErrors["accessVerifier"]; exists {
		return nil, storedErr
	}
	return c.accessVerifier, nil
}

// BlobStore returns the blob store client.
func (c *Container) BlobStore() *blobstore.Client {
	c.blobStoreInit.Do(func() {
		c.blobStore = blobstore.NewClient(blobstore.Config{
			Endpoints:      c.config.BlobStoreEndpoints,
			RequestTimeout: c.config.BlobStoreTimeout,
		}, c.Logger())
	})
	return c.blobStore
}

// DecryptionClient returns the threshold decryption service client.
func (c *Container) DecryptionClient() *decryption.Client {
	c.decryptionInit.Do(func() {
		c.decryptionClient = decryption.NewClient(decryption.Config{
			URL:            c.config.DecryptionServiceURL,
			RequestTimeout: c.config.DecryptionTimeout,
		}, c.Logger())
	})
	return c.decryptionClient
}

// Retriever returns the content retrieval use case.
func (c *Container) Retriever(ctx context.Context) (contentUseCase.Retriever, error) {
	c.retrieverInit.Do(func() {
		signer, err := c.Signer(ctx)
		if err != nil {
			c.initErrors["retriever"] = fmt.Errorf("failed to get signer for retriever: %w", err)
			return
		}
		c.retriever = contentUseCase.NewRetriever(
			c.BlobStore(),
			c.DecryptionClient(),
			signer,
			c.config.ServerSideDecryption,
			c.Logger(),
			nil,
		)
	})
	if storedErr, exists := c.initErrors["retriever"]; exists {
		return nil, storedErr
	}
	return c.retriever, nil
}

// HTTPServer returns the gateway HTTP server with all its dependencies.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	c.httpServerInit.Do(func() {
		verifier, err := c.AccessVerifier()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get access verifier for http server: %w", err)
			return
		}
		retriever, err := c.Retriever(ctx)
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get retriever for http server: %w", err)
			return
		}
		signer, err := c.Signer(ctx)
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get signer for http server: %w", err)
			return
		}
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get metrics provider for http server: %w", err)
			return
		}

		handler := gatewayHTTP.NewGatewayHandler(
			c.LedgerClient(),
			c.ChallengeGenerator(),
			verifier,
			retriever,
			c.LedgerClient(),
			signer,
			c.config.ConsumeTimeout,
			c.Logger(),
		)

		c.httpServer = http.NewServer(c.config, handler, provider, c.Logger())
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server, or nil when metrics
// are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}
