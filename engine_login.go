package taskAuth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/taskAuth/internal/rate"
	"github.com/MrEthical07/taskAuth/jwt"
)

// IssueLoginTokens exchanges a username and raw secret for a token pair.
//
// Any credential failure returns ErrAuthFailed, whether the username is unknown or the
// secret is wrong. Failed attempts count against the login budget, and once it is used
// up further attempts return ErrLoginRateLimited until the window passes.
func (e *Engine) IssueLoginTokens(ctx context.Context, username, rawSecret string) (*LoginResult, error) {
	if e == nil || e.codec == nil || e.principals == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if err := e.rateLimiter.CheckLogin(ctx, username, ip); err != nil {
		if !errors.Is(err, rate.ErrRateLimited) {
			e.noteLimiterError(err, "login")
			e.emitAudit(ctx, AuditEventLoginFailure, false, 0, username, ErrRateLimiterUnavailable, nil)
			return nil, fmt.Errorf("%w: %w", ErrRateLimiterUnavailable, err)
		}
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, AuditEventLoginFailure, false, 0, username, ErrLoginRateLimited, nil)
		e.emitRateLimit(ctx, "login", username, 0)
		return nil, ErrLoginRateLimited
	}

	p, err := e.principals.VerifyCredential(ctx, username, rawSecret)
	if err != nil {
		if !errors.Is(err, ErrAuthFailed) && !errors.Is(err, ErrPrincipalNotFound) {
			e.emitAudit(ctx, AuditEventLoginFailure, false, 0, username, err, nil)
			return nil, fmt.Errorf("verify credential: %w", err)
		}
		if lerr := e.rateLimiter.IncrementLogin(ctx, username, ip); lerr != nil && !errors.Is(lerr, rate.ErrRateLimited) {
			e.noteLimiterError(lerr, "login")
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEventLoginFailure, false, 0, username, ErrAuthFailed, nil)
		return nil, ErrAuthFailed
	}

	result, err := e.issuePair(p)
	if err != nil {
		e.emitAudit(ctx, AuditEventLoginFailure, false, p.ID, p.Username, err, nil)
		return nil, err
	}

	if err := e.rateLimiter.ResetLogin(ctx, username); err != nil {
		e.noteLimiterError(err, "login")
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEventLoginSuccess, true, p.ID, p.Username, nil, nil)

	return result, nil
}

// RefreshTokens exchanges a live refresh token for a new pair.
//
// Any problem with the presented token, including expiry or an access token in its
// place, returns ErrAccessDenied. The principal is looked up again by id so the new
// access token carries current roles; a principal that no longer exists returns
// ErrPrincipalNotFound. The old refresh token stays valid until it expires.
func (e *Engine) RefreshTokens(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.codec == nil || e.principals == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.Validate(refreshToken)
	if err != nil {
		return nil, e.refreshDenied(ctx, 0, "", auditErrorCode(err))
	}
	if claims.TokenKind() != jwt.KindRefresh {
		return nil, e.refreshDenied(ctx, claims.PrincipalID, claims.Subject, "wrong_token_kind")
	}

	subject := strconv.FormatInt(claims.PrincipalID, 10)
	if err := e.rateLimiter.CheckRefresh(ctx, subject); err != nil {
		if !errors.Is(err, rate.ErrRateLimited) {
			e.noteLimiterError(err, "refresh")
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, AuditEventRefreshFailure, false, claims.PrincipalID, claims.Subject, ErrRateLimiterUnavailable, nil)
			return nil, fmt.Errorf("%w: %w", ErrRateLimiterUnavailable, err)
		}
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, AuditEventRefreshFailure, false, claims.PrincipalID, claims.Subject, ErrRefreshRateLimited, nil)
		e.emitRateLimit(ctx, "refresh", claims.Subject, claims.PrincipalID)
		return nil, ErrRefreshRateLimited
	}

	p, err := e.principals.FindPrincipalByID(ctx, claims.PrincipalID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		if errors.Is(err, ErrPrincipalNotFound) {
			e.emitAudit(ctx, AuditEventRefreshFailure, false, claims.PrincipalID, claims.Subject, ErrPrincipalNotFound, nil)
			return nil, ErrPrincipalNotFound
		}
		e.emitAudit(ctx, AuditEventRefreshFailure, false, claims.PrincipalID, claims.Subject, err, nil)
		return nil, fmt.Errorf("find principal: %w", err)
	}

	result, err := e.issuePair(p)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditEventRefreshFailure, false, p.ID, p.Username, err, nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEventRefreshSuccess, true, p.ID, p.Username, nil, nil)
	return result, nil
}

// refreshDenied records why a refresh token was refused. The caller only ever
// sees ErrAccessDenied.
func (e *Engine) refreshDenied(ctx context.Context, principalID int64, username string, cause AuditErrorCode) error {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, AuditEventRefreshFailure, false, principalID, username, ErrAccessDenied, func() map[string]string {
		return map[string]string{"cause": string(cause)}
	})
	return ErrAccessDenied
}

func (e *Engine) noteLimiterError(err error, scope string) {
	if err == nil || errors.Is(err, rate.ErrRateLimited) {
		return
	}
	e.metricInc(MetricRateLimitBackendError)
	e.logger.Warn("rate limiter backend failure", "scope", scope, "error", err)
}
