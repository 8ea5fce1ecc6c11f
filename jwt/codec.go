package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when a token is not a three-segment HS256 token or its claims do not parse.
	ErrMalformed = errors.New("malformed token")
	// ErrSignatureInvalid is returned when the MAC does not verify under the configured key.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrInvalidClaims is returned by Encode for structurally invalid claims.
	ErrInvalidClaims = errors.New("invalid token claims")
)

var (
	errMissingPrincipalID = errors.New("principal id must be positive")
	errMissingSubject     = errors.New("subject is required")
	errMissingTimestamps  = errors.New("iat and exp are required")
	errExpiryBeforeIssue  = errors.New("exp must be after iat")
	errKindMismatch       = errors.New("kind does not match roles")
	errUnknownKind        = errors.New("unknown token kind")
	errEmptyRole          = errors.New("empty role name")
)

var method = jwt.SigningMethodHS256

// Codec signs and verifies tokens with a single SigningKey.
//
// Codec is safe for concurrent use.
type Codec struct {
	key    SigningKey
	parser *jwt.Parser
}

// NewCodec builds a Codec bound to key.
func NewCodec(key SigningKey) (*Codec, error) {
	if key.IsZero() {
		return nil, ErrWeakSecret
	}
	return &Codec{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Encode serializes claims as header.payload.signature.
//
// Encode fails only when claims are structurally invalid.
func (c *Codec) Encode(claims Claims) (string, error) {
	if err := claims.checkStructure(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	token := jwt.NewWithClaims(method, claims)
	return token.SignedString(c.key.secret)
}

// Decode verifies the signature of token and returns its claims.
//
// Decode does not check exp. Callers must enforce expiry themselves.
func (c *Codec) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != method {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.key.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	if parsed == nil || !parsed.Valid {
		return nil, ErrSignatureInvalid
	}
	if err := claims.checkStructure(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	default:
		return ErrMalformed
	}
}
