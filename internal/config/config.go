package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=120s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestBytes       int64         `env:"MAX_REQUEST_BYTES,default=104857600"`

	// DSS validation/signing oracle settings
	DSSBaseURL string        `env:"DSS_BASE_URL,default=http://java-webapp:5555/services/rest"`
	DSSTimeout time.Duration `env:"DSS_TIMEOUT,default=10s"`

	// trust anchor settings
	TrustedCertsDir string `env:"TRUSTED_CERTS_DIR,default=/app/trustedcerts"`

	// TrustFailOpen controls what happens when the trusted certificate store
	// is absent or empty: true treats every chain as trusted (the historical
	// behavior, intended for local/dev), false rejects every chain.
	TrustFailOpen bool `env:"TRUST_FAIL_OPEN,default=true"`

	// worker pool limits for archive validation.
	// 0 means derive from CPU count (two thirds of GOMAXPROCS, minimum 1).
	StepWorkers int `env:"STEP_WORKERS,default=0"`
	DocWorkers  int `env:"DOC_WORKERS,default=0"`

	// audit database settings (optional - the service runs without a
	// database when DATABASE_URL is empty, e.g. in CLI mode)
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	if cfg.DSSBaseURL == "" {
		return fmt.Errorf("DSS_BASE_URL must not be empty")
	}
	if cfg.DSSTimeout <= 0 {
		return fmt.Errorf("DSS_TIMEOUT must be greater than zero")
	}

	if cfg.StepWorkers < 0 {
		return fmt.Errorf("STEP_WORKERS must be 0 (auto) or greater")
	}
	if cfg.DocWorkers < 0 {
		return fmt.Errorf("DOC_WORKERS must be 0 (auto) or greater")
	}

	// Validate database pool configuration (only relevant when a DB is configured)
	if cfg.DatabaseURL != "" {
		if cfg.DBMaxConnections < 1 {
			return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
		}
		if cfg.DBMinConnections < 0 {
			return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
		}
		if cfg.DBMinConnections > cfg.DBMaxConnections {
			return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
				cfg.DBMinConnections, cfg.DBMaxConnections)
		}
	}

	return nil
}
