package taskAuth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/taskAuth/jwt"
)

// Config holds every engine setting. It is copied at Build and fixed afterwards.
type Config struct {
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig carries the HS256 signing secret and the two token lifetimes.
// Lifetimes are whole seconds because exp and iat are encoded in epoch seconds.
type JWTConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// String redacts the secret.
func (c JWTConfig) String() string {
	return fmt.Sprintf("JWTConfig{Secret:<%d bytes redacted> AccessTTL:%s RefreshTTL:%s}", len(c.Secret), c.AccessTTL, c.RefreshTTL)
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls login and refresh throttling. A Redis client passed to
// the Builder shares budgets across processes; without one, budgets are per process.
type RateLimitConfig struct {
	Enabled               bool
	RedisPrefix           string
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginWindow           time.Duration
	EnableRefreshThrottle bool
	MaxRefreshAttempts    int
	RefreshWindow         time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and the authenticate latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when the Builder is given none.
// The secret is left empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:               true,
			RedisPrefix:           "ta:",
			EnableIPThrottle:      true,
			MaxLoginAttempts:      5,
			LoginWindow:           15 * time.Minute,
			EnableRefreshThrottle: true,
			MaxRefreshAttempts:    20,
			RefreshWindow:         time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting. It never includes the secret in the error.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) < jwt.MinSecretLength {
		return fmt.Errorf("JWT Secret must be at least %d bytes", jwt.MinSecretLength)
	}
	if err := validateTTL("AccessTTL", c.JWT.AccessTTL); err != nil {
		return err
	}
	if err := validateTTL("RefreshTTL", c.JWT.RefreshTTL); err != nil {
		return err
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}

	// Rate limiting
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxLoginAttempts <= 0 {
			return errors.New("RateLimit MaxLoginAttempts must be > 0")
		}
		if c.RateLimit.LoginWindow <= 0 {
			return errors.New("RateLimit LoginWindow must be > 0")
		}
		if c.RateLimit.EnableRefreshThrottle {
			if c.RateLimit.MaxRefreshAttempts <= 0 {
				return errors.New("RateLimit MaxRefreshAttempts must be > 0")
			}
			if c.RateLimit.RefreshWindow <= 0 {
				return errors.New("RateLimit RefreshWindow must be > 0")
			}
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func validateTTL(name string, ttl time.Duration) error {
	if ttl < time.Second {
		return fmt.Errorf("JWT %s must be >= 1s", name)
	}
	if ttl%time.Second != 0 {
		return fmt.Errorf("JWT %s must be a whole number of seconds", name)
	}
	return nil
}
