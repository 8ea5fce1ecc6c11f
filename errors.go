package taskAuth

import (
	"errors"

	"github.com/MrEthical07/taskAuth/jwt"
)

var (
	// ErrMalformed is returned for tokens that are structurally invalid, including a refresh
	// token presented where an access token is required.
	ErrMalformed = jwt.ErrMalformed
	// ErrSignatureInvalid is returned when the token MAC does not verify. Treat as tampering.
	ErrSignatureInvalid = jwt.ErrSignatureInvalid
	// ErrTokenExpired is returned for a correctly signed token at or past its exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrAccessDenied is returned when a refresh exchange fails its trust checks.
	ErrAccessDenied = errors.New("access denied")
	// ErrPrincipalNotFound is returned when a principal id no longer resolves.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrAuthFailed is returned for a bad login credential. Unknown usernames and wrong
	// passwords are not distinguished.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrRejected is returned when an authorization guard denies the request.
	ErrRejected = errors.New("rejected")
	// ErrLoginRateLimited is returned when the login attempt budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned when the refresh budget is exhausted.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrRateLimiterUnavailable is returned when the attempt counters cannot be read.
	// The call is refused; it classifies as internal, not as a rate limit.
	ErrRateLimiterUnavailable = errors.New("rate limiter unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Outcome is the caller-facing class of an engine error.
type Outcome int

const (
	// OutcomeOK means err was nil.
	OutcomeOK Outcome = iota
	// OutcomeUnauthenticated covers malformed, forged and expired tokens.
	OutcomeUnauthenticated
	// OutcomeForbidden covers refresh trust failures and rejected guards.
	OutcomeForbidden
	// OutcomeBadCredential covers failed logins.
	OutcomeBadCredential
	// OutcomeNotFound covers principals that no longer exist.
	OutcomeNotFound
	// OutcomeRateLimited covers exhausted attempt budgets.
	OutcomeRateLimited
	// OutcomeInternal covers everything else, including collaborator failures.
	OutcomeInternal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeBadCredential:
		return "bad_credential"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Classify maps an error returned by the Engine to its Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrMalformed),
		errors.Is(err, ErrSignatureInvalid),
		errors.Is(err, ErrTokenExpired):
		return OutcomeUnauthenticated
	case errors.Is(err, ErrAccessDenied),
		errors.Is(err, ErrRejected):
		return OutcomeForbidden
	case errors.Is(err, ErrAuthFailed):
		return OutcomeBadCredential
	case errors.Is(err, ErrPrincipalNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited):
		return OutcomeRateLimited
	default:
		return OutcomeInternal
	}
}
