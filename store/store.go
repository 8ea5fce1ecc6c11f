package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/taskAuth"
	"github.com/MrEthical07/taskAuth/password"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrUserExists is returned by CreateUser when the username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrPasswordMismatch is returned by CreateUser when the confirmation differs.
	ErrPasswordMismatch = errors.New("password and password confirmation do not match")
	// ErrTaskNotFound is returned when a task id does not resolve.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidTaskStatus is returned for a status outside TODO, IN_PROGRESS and DONE.
	ErrInvalidTaskStatus = errors.New("invalid task status")
)

// Store reads and writes users, roles and tasks.
type Store struct {
	db     *sqlx.DB
	hasher *password.Argon2
}

var (
	_ taskAuth.PrincipalProvider = (*Store)(nil)
	_ taskAuth.OwnershipProvider = (*Store)(nil)
)

// New returns a Store over db. hasher verifies and produces password hashes.
func New(db *sqlx.DB, hasher *password.Argon2) *Store {
	return &Store{db: db, hasher: hasher}
}

type userRow struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Username string `db:"username"`
	Password string `db:"password"`
}

const (
	selectUserByID = `
		SELECT id, name, username, password
		FROM users
		WHERE id = ?`
	selectUserByUsername = `
		SELECT id, name, username, password
		FROM users
		WHERE username = ?`
	selectUserRoles = `
		SELECT role
		FROM users_roles
		WHERE user_id = ?
		ORDER BY role`
	updateUserPassword = `
		UPDATE users
		SET password = ?
		WHERE id = ?`
	selectIsOwner = `
		SELECT EXISTS (SELECT 1
		               FROM users_tasks
		               WHERE user_id = ?
		                 AND task_id = ?)`
)

// FindPrincipalByID loads a user and its roles.
func (s *Store) FindPrincipalByID(ctx context.Context, id int64) (taskAuth.Principal, error) {
	return s.findPrincipal(ctx, selectUserByID, id)
}

// FindPrincipalByUsername loads a user and its roles.
func (s *Store) FindPrincipalByUsername(ctx context.Context, username string) (taskAuth.Principal, error) {
	return s.findPrincipal(ctx, selectUserByUsername, username)
}

func (s *Store) findPrincipal(ctx context.Context, query string, arg any) (taskAuth.Principal, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return taskAuth.Principal{}, taskAuth.ErrPrincipalNotFound
		}
		return taskAuth.Principal{}, fmt.Errorf("select user: %w", err)
	}
	return s.principalFromRow(ctx, row)
}

func (s *Store) principalFromRow(ctx context.Context, row userRow) (taskAuth.Principal, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names, selectUserRoles, row.ID); err != nil {
		return taskAuth.Principal{}, fmt.Errorf("select roles: %w", err)
	}

	roles := make([]taskAuth.Role, 0, len(names))
	for _, name := range names {
		r, err := taskAuth.ParseRole(name)
		if err != nil {
			return taskAuth.Principal{}, fmt.Errorf("user %d: %w", row.ID, err)
		}
		roles = append(roles, r)
	}

	return taskAuth.Principal{
		ID:          row.ID,
		Username:    row.Username,
		DisplayName: row.Name,
		Roles:       taskAuth.NormalizeRoles(roles),
	}, nil
}

// VerifyCredential checks rawSecret against the stored hash for username.
//
// Unknown usernames still pay for one hash computation, and both an unknown
// username and a wrong secret return taskAuth.ErrAuthFailed.
func (s *Store) VerifyCredential(ctx context.Context, username, rawSecret string) (taskAuth.Principal, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, selectUserByUsername, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.hasher.VerifyDummy(rawSecret)
			return taskAuth.Principal{}, taskAuth.ErrAuthFailed
		}
		return taskAuth.Principal{}, fmt.Errorf("select user: %w", err)
	}

	ok, err := s.hasher.Verify(rawSecret, row.Password)
	if err != nil {
		return taskAuth.Principal{}, fmt.Errorf("verify password for user %d: %w", row.ID, err)
	}
	if !ok {
		return taskAuth.Principal{}, taskAuth.ErrAuthFailed
	}
	s.rehashIfNeeded(ctx, row, rawSecret)

	return s.principalFromRow(ctx, row)
}

// rehashIfNeeded upgrades a hash produced with weaker parameters. Failure leaves
// the old hash in place; it still verifies.
func (s *Store) rehashIfNeeded(ctx context.Context, row userRow, rawSecret string) {
	needs, err := s.hasher.NeedsRehash(row.Password)
	if err != nil || !needs {
		return
	}
	hash, err := s.hasher.Hash(rawSecret)
	if err != nil {
		return
	}
	_, _ = s.db.ExecContext(ctx, updateUserPassword, hash, row.ID)
}

// IsOwner reports whether userID owns taskID. An unknown task is owned by nobody.
func (s *Store) IsOwner(ctx context.Context, userID, taskID int64) (bool, error) {
	var owner bool
	if err := s.db.GetContext(ctx, &owner, selectIsOwner, userID, taskID); err != nil {
		return false, fmt.Errorf("select owner: %w", err)
	}
	return owner, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// expectRow returns notFound when res touched no row.
func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
