package taskAuth

import (
	"fmt"
	"time"

	"github.com/MrEthical07/taskAuth/jwt"
)

// Authenticate resolves an access token to the calling Principal.
//
// It fails with ErrMalformed when a refresh token is presented, with ErrSignatureInvalid
// for forged tokens and with ErrTokenExpired once exp has passed. Authenticate does no
// I/O; roles come from the token, not from storage.
func (e *Engine) Authenticate(accessToken string) (*Principal, error) {
	start := time.Now()
	p, err := e.authenticate(accessToken)
	if e != nil && e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, err
	}
	e.metricInc(MetricAuthenticateSuccess)
	return p, nil
}

func (e *Engine) authenticate(accessToken string) (*Principal, error) {
	claims, err := e.Validate(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenKind() != jwt.KindAccess || len(claims.Roles) == 0 {
		return nil, fmt.Errorf("%w: access token required", ErrMalformed)
	}

	roles := make([]Role, 0, len(claims.Roles))
	for _, name := range claims.Roles {
		r, err := ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		roles = append(roles, r)
	}

	return &Principal{
		ID:       claims.PrincipalID,
		Username: claims.Subject,
		Roles:    NormalizeRoles(roles),
	}, nil
}
