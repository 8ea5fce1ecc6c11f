package taskAuth

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Role is a member of the closed role set.
type Role string

const (
	// RoleUser is granted to every registered user.
	RoleUser Role = "USER"
	// RoleAdmin may act on any user record.
	RoleAdmin Role = "ADMIN"
)

const legacyRolePrefix = "ROLE_"

// ParseRole accepts a role name with or without the ROLE_ prefix.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimPrefix(s, legacyRolePrefix)); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// NormalizeRoles returns roles sorted and without duplicates.
func NormalizeRoles(roles []Role) []Role {
	out := slices.Clone(roles)
	slices.Sort(out)
	return slices.Compact(out)
}

// Principal is the resolved identity of a caller.
//
// A Principal is never mutated after it is resolved. DisplayName is empty when the
// principal was resolved from a token, since tokens do not carry it.
type Principal struct {
	ID          int64
	Username    string
	DisplayName string
	Roles       []Role
}

// HasRole reports whether p holds role. A nil principal holds nothing.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

// LoginResult is returned by login and refresh.
type LoginResult struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// PrincipalProvider resolves principals from persistent storage.
//
// FindPrincipalByID and FindPrincipalByUsername must return an error wrapping
// ErrPrincipalNotFound when nothing matches. VerifyCredential must return an error
// wrapping ErrAuthFailed for an unknown username or a wrong secret.
type PrincipalProvider interface {
	FindPrincipalByID(ctx context.Context, id int64) (Principal, error)
	FindPrincipalByUsername(ctx context.Context, username string) (Principal, error)
	VerifyCredential(ctx context.Context, username, rawSecret string) (Principal, error)
}

// OwnershipProvider answers whether a user owns a task.
type OwnershipProvider interface {
	IsOwner(ctx context.Context, userID, taskID int64) (bool, error)
}
