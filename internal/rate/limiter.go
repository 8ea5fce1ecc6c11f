package rate

import (
	"context"
	"time"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	KeyPrefix             string
	EnableIPThrottle      bool
	EnableRefreshThrottle bool
	MaxLoginAttempts      int
	LoginWindow           time.Duration
	MaxRefreshAttempts    int
	RefreshWindow         time.Duration
}

// Backend stores attempt counters.
type Backend interface {
	// Exhausted reports whether key already used max attempts.
	Exhausted(ctx context.Context, key string, max int, window time.Duration) (bool, error)
	// Hit records one attempt and reports whether key is now over budget.
	Hit(ctx context.Context, key string, max int, window time.Duration) (bool, error)
	// Reset drops the counters for keys.
	Reset(ctx context.Context, keys ...string) error
}

// Limiter enforces per-username and per-IP login budgets and a per-principal
// refresh budget.
type Limiter struct {
	backend Backend
	config  Config
}

// New creates a Limiter on top of backend.
func New(backend Backend, cfg Config) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ta:"
	}
	return &Limiter{
		backend: backend,
		config:  cfg,
	}
}

// CheckLogin returns ErrRateLimited once the username or the IP has used its budget
// of failed attempts in the current window.
func (l *Limiter) CheckLogin(ctx context.Context, username, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.check(ctx, l.loginUserKey(username), l.config.MaxLoginAttempts, l.config.LoginWindow); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.check(ctx, l.loginIPKey(ip), l.config.MaxLoginAttempts, l.config.LoginWindow)
	}
	return nil
}

// IncrementLogin records a failed login attempt.
func (l *Limiter) IncrementLogin(ctx context.Context, username, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.hit(ctx, l.loginUserKey(username), l.config.MaxLoginAttempts, l.config.LoginWindow); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.hit(ctx, l.loginIPKey(ip), l.config.MaxLoginAttempts, l.config.LoginWindow)
	}
	return nil
}

// ResetLogin clears the username counter after a successful login.
// The IP counter is kept so one good account cannot launder a sprayed IP.
func (l *Limiter) ResetLogin(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	return l.backend.Reset(ctx, l.loginUserKey(username))
}

// CheckRefresh counts a refresh call for subject and refuses it once over budget.
func (l *Limiter) CheckRefresh(ctx context.Context, subject string) error {
	if l == nil || !l.config.EnableRefreshThrottle {
		return nil
	}
	return l.hit(ctx, l.refreshKey(subject), l.config.MaxRefreshAttempts, l.config.RefreshWindow)
}

func (l *Limiter) check(ctx context.Context, key string, max int, window time.Duration) error {
	exhausted, err := l.backend.Exhausted(ctx, key, max, window)
	if err != nil {
		return err
	}
	if exhausted {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) hit(ctx context.Context, key string, max int, window time.Duration) error {
	over, err := l.backend.Hit(ctx, key, max, window)
	if err != nil {
		return err
	}
	if over {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) loginUserKey(username string) string {
	return l.config.KeyPrefix + "lu:" + username
}

func (l *Limiter) loginIPKey(ip string) string {
	return l.config.KeyPrefix + "li:" + ip
}

func (l *Limiter) refreshKey(subject string) string {
	return l.config.KeyPrefix + "rf:" + subject
}
