package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	// KindAccess marks a short-lived token carrying roles.
	KindAccess TokenKind = "access"
	// KindRefresh marks a token that can only mint a new pair.
	KindRefresh TokenKind = "refresh"
)

// Claims is the payload carried by every taskAuth token.
//
// Wire names are sub, id, roles, kind, iat and exp. Roles is only populated on access tokens.
type Claims struct {
	PrincipalID int64     `json:"id"`
	Roles       []string  `json:"roles,omitempty"`
	Kind        TokenKind `json:"kind,omitempty"`
	jwt.RegisteredClaims
}

// TokenKind returns the explicit kind claim, falling back to roles presence for
// tokens minted before the kind claim existed.
func (c *Claims) TokenKind() TokenKind {
	if c == nil {
		return ""
	}
	if c.Kind != "" {
		return c.Kind
	}
	if len(c.Roles) > 0 {
		return KindAccess
	}
	return KindRefresh
}

// Username returns the subject claim.
func (c *Claims) Username() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// IssuedAtTime returns iat, or the zero time when absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c == nil || c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns exp, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ExpiredAt reports whether the claims are no longer valid at now.
// A token is live only while exp is strictly after now.
func (c *Claims) ExpiredAt(now time.Time) bool {
	exp := c.ExpiresAtTime()
	if exp.IsZero() {
		return true
	}
	return !exp.After(now)
}

func (c *Claims) checkStructure() error {
	switch {
	case c.PrincipalID <= 0:
		return errMissingPrincipalID
	case c.Subject == "":
		return errMissingSubject
	case c.IssuedAt == nil || c.ExpiresAt == nil:
		return errMissingTimestamps
	case !c.ExpiresAt.Time.After(c.IssuedAt.Time):
		return errExpiryBeforeIssue
	}

	switch c.Kind {
	case "":
	case KindAccess:
		if len(c.Roles) == 0 {
			return errKindMismatch
		}
	case KindRefresh:
		if len(c.Roles) != 0 {
			return errKindMismatch
		}
	default:
		return errUnknownKind
	}
	for _, role := range c.Roles {
		if role == "" {
			return errEmptyRole
		}
	}
	return nil
}

// NewAccessClaims builds access claims with iat=issuedAt truncated to the second
// and exp=iat+ttl. Each call gets a fresh jti.
func NewAccessClaims(principalID int64, username string, roles []string, issuedAt time.Time, ttl time.Duration) Claims {
	return newClaims(principalID, username, roles, KindAccess, issuedAt, ttl)
}

// NewRefreshClaims builds refresh claims. They never carry roles.
func NewRefreshClaims(principalID int64, username string, issuedAt time.Time, ttl time.Duration) Claims {
	return newClaims(principalID, username, nil, KindRefresh, issuedAt, ttl)
}

func newClaims(principalID int64, username string, roles []string, kind TokenKind, issuedAt time.Time, ttl time.Duration) Claims {
	iat := issuedAt.Truncate(time.Second)
	return Claims{
		PrincipalID: principalID,
		Roles:       roles,
		Kind:        kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
		},
	}
}
