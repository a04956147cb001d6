// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the gateway server will bind to.
	ServerHost string
	// ServerPort is the port number the gateway server will listen on.
	ServerPort int

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// LedgerRPCURL is the JSON-RPC endpoint of the ledger fullnode.
	LedgerRPCURL string
	// LedgerRequestTimeout is the per-call timeout for ledger RPCs.
	LedgerRequestTimeout time.Duration
	// LedgerMaxAttempts is the maximum number of attempts for retryable ledger RPCs.
	LedgerMaxAttempts int
	// LedgerRetryBaseDelay is the initial backoff delay between ledger RPC retries.
	LedgerRetryBaseDelay time.Duration
	// LedgerPackageID identifies the on-ledger package implementing the access protocol.
	LedgerPackageID string
	// LedgerModuleName is the module name within the ledger package.
	LedgerModuleName string

	// BlobStoreEndpoints is the ordered, comma-separated list of blob store base URLs.
	BlobStoreEndpoints []string
	// BlobStoreTimeout is the per-endpoint timeout for blob fetches.
	BlobStoreTimeout time.Duration

	// DecryptionServiceURL is the base URL of the threshold decryption service.
	DecryptionServiceURL string
	// DecryptionTimeout is the per-call timeout for decryption service requests.
	DecryptionTimeout time.Duration
	// ServerSideDecryption indicates whether the gateway decrypts content before
	// returning it (otherwise the encrypted blob is returned as-is).
	ServerSideDecryption bool

	// ProofFreshnessWindow bounds how old a signed request timestamp may be.
	ProofFreshnessWindow time.Duration

	// SignerKeyURI is the gocloud secrets keeper URI used to unwrap the gateway
	// signing key (e.g., "base64key://...", "hashivault://keys/gateway").
	SignerKeyURI string
	// SignerWrappedKey is the base64-encoded wrapped ed25519 seed for the
	// gateway signer. Required; the key is produced by the create-signer-key
	// command.
	SignerWrappedKey string
	// ConsumeTimeout is the timeout for the post-delivery consume transaction.
	ConsumeTimeout time.Duration

	// RateLimitEnabled indicates whether gateway rate limiting is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the global number of requests allowed per second.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size for gateway rate limiting.
	RateLimitBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Ledger configuration
		LedgerRPCURL:         env.GetString("LEDGER_RPC_URL", "http://localhost:9000"),
		LedgerRequestTimeout: env.GetDuration("LEDGER_REQUEST_TIMEOUT_SECONDS", 10, time.Second),
		LedgerMaxAttempts:    env.GetInt("LEDGER_MAX_ATTEMPTS", 3),
		LedgerRetryBaseDelay: env.GetDuration("LEDGER_RETRY_BASE_DELAY_MS", 200, time.Millisecond),
		LedgerPackageID:      env.GetString("LEDGER_PACKAGE_ID", ""),
		LedgerModuleName:     env.GetString("LEDGER_MODULE_NAME", "tollgate"),

		// Blob store configuration
		BlobStoreEndpoints: splitAndTrim(
			env.GetString("BLOB_STORE_ENDPOINTS", "http://localhost:9181"),
		),
		BlobStoreTimeout: env.GetDuration("BLOB_STORE_TIMEOUT_SECONDS", 15, time.Second),

		// Decryption service configuration
		DecryptionServiceURL: env.GetString("DECRYPTION_SERVICE_URL", "http://localhost:9281"),
		DecryptionTimeout:    env.GetDuration("DECRYPTION_TIMEOUT_SECONDS", 15, time.Second),
		ServerSideDecryption: env.GetBool("SERVER_SIDE_DECRYPTION", false),

		// Access proof freshness
		ProofFreshnessWindow: env.GetDuration("PROOF_FRESHNESS_WINDOW_SECONDS", 300, time.Second),

		// Gateway signer
		SignerKeyURI:     env.GetString("SIGNER_KEY_URI", ""),
		SignerWrappedKey: env.GetString("SIGNER_WRAPPED_KEY", ""),
		ConsumeTimeout:   env.GetDuration("CONSUME_TIMEOUT_SECONDS", 10, time.Second),

		// Rate Limiting
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 10.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 20),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "tollgate"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	case "info", "warn", "error":
		return "release"
	default:
		return "release"
	}
}

// splitAndTrim splits a comma-separated list, trimming whitespace and
// dropping empty items.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
