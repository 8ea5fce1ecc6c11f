package taskAuth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/taskAuth/internal/audit"
	"github.com/MrEthical07/taskAuth/internal/rate"
	"github.com/MrEthical07/taskAuth/jwt"
)

// Engine issues and validates tokens and evaluates access guards.
//
// Engine methods are safe for concurrent use after Build. The only state shared
// between calls is the signing key, the fixed configuration, and the counters.
type Engine struct {
	config      Config
	codec       *jwt.Codec
	principals  PrincipalProvider
	ownership   OwnershipProvider
	rateLimiter *rate.Limiter
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// Close flushes pending audit events. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counters. Exporters poll it.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AccessTTL returns the configured access token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.JWT.AccessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (e *Engine) RefreshTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.JWT.RefreshTTL
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// IssueAccessToken mints an access token for the principal with exp = iat + AccessTTL.
//
// roles must be non-empty and every role must belong to the closed role set.
// The token lists roles in sorted order.
func (e *Engine) IssueAccessToken(principalID int64, username string, roles []Role) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}
	if len(roles) == 0 {
		return "", fmt.Errorf("%w: access token requires at least one role", jwt.ErrInvalidClaims)
	}

	normalized := NormalizeRoles(roles)
	names := make([]string, 0, len(normalized))
	for _, r := range normalized {
		if _, err := ParseRole(string(r)); err != nil {
			return "", fmt.Errorf("%w: %v", jwt.ErrInvalidClaims, err)
		}
		names = append(names, string(r))
	}

	return e.codec.Encode(jwt.NewAccessClaims(principalID, username, names, e.now(), e.config.JWT.AccessTTL))
}

// IssueRefreshToken mints a refresh token with exp = iat + RefreshTTL and no roles.
func (e *Engine) IssueRefreshToken(principalID int64, username string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}
	return e.codec.Encode(jwt.NewRefreshClaims(principalID, username, e.now(), e.config.JWT.RefreshTTL))
}

// Validate verifies the signature of token and rejects it unless exp is strictly
// after now. It is the only way claims leave the engine.
func (e *Engine) Validate(token string) (*jwt.Claims, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.Decode(token)
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			e.metricInc(MetricSignatureInvalid)
		}
		return nil, err
	}
	if claims.ExpiredAt(e.now()) {
		e.metricInc(MetricTokenExpired)
		return nil, ErrTokenExpired
	}
	return claims, nil
}

func (e *Engine) issuePair(p Principal) (*LoginResult, error) {
	access, err := e.IssueAccessToken(p.ID, p.Username, p.Roles)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := e.IssueRefreshToken(p.ID, p.Username)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &LoginResult{
		ID:           p.ID,
		Username:     p.Username,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
