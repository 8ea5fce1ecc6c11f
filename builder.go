package taskAuth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/taskAuth/internal/audit"
	"github.com/MrEthical07/taskAuth/internal/rate"
	"github.com/MrEthical07/taskAuth/jwt"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	principals PrincipalProvider
	ownership  OwnershipProvider
	auditSink  AuditSink
	logger     *slog.Logger
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The secret is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis makes rate limit budgets shared through client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPrincipalProvider sets the principal lookup used by login and refresh.
func (b *Builder) WithPrincipalProvider(p PrincipalProvider) *Builder {
	b.principals = p
	return b
}

// WithOwnershipProvider sets the task ownership lookup used by CanAccessTask.
func (b *Builder) WithOwnershipProvider(o OwnershipProvider) *Builder {
	b.ownership = o
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in Config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for operational warnings. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.principals == nil {
		return nil, errors.New("principal provider required")
	}
	if b.ownership == nil {
		return nil, errors.New("ownership provider required")
	}

	key, err := jwt.NewSigningKey(cfg.JWT.Secret)
	if err != nil {
		return nil, err
	}
	codec, err := jwt.NewCodec(key)
	if err != nil {
		return nil, err
	}
	// The codec holds its own copy; drop ours so the secret lives in one place.
	cfg.JWT.Secret = nil

	engine := &Engine{
		config:     cfg,
		codec:      codec,
		principals: b.principals,
		ownership:  b.ownership,
		logger:     b.logger,
		now:        b.now,
	}
	if engine.logger == nil {
		engine.logger = slog.Default()
	}
	if engine.now == nil {
		engine.now = time.Now
	}

	if cfg.RateLimit.Enabled {
		var backend rate.Backend
		if b.redis != nil {
			backend = rate.NewRedisBackend(b.redis)
		} else {
			backend = rate.NewLocalBackend()
		}
		engine.rateLimiter = rate.New(backend, rate.Config{
			KeyPrefix:             cfg.RateLimit.RedisPrefix,
			EnableIPThrottle:      cfg.RateLimit.EnableIPThrottle,
			EnableRefreshThrottle: cfg.RateLimit.EnableRefreshThrottle,
			MaxLoginAttempts:      cfg.RateLimit.MaxLoginAttempts,
			LoginWindow:           cfg.RateLimit.LoginWindow,
			MaxRefreshAttempts:    cfg.RateLimit.MaxRefreshAttempts,
			RefreshWindow:         cfg.RateLimit.RefreshWindow,
		})
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
