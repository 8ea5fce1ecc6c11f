package store

import (
	"context"
	"fmt"

	"github.com/MrEthical07/taskAuth"
	"github.com/jmoiron/sqlx"
)

// NewUser is a registration request.
type NewUser struct {
	Name                 string `json:"name"`
	Username             string `json:"username"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

// UserUpdate replaces a user's name and username. A blank Password keeps the
// current one.
type UserUpdate struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	Username             string `json:"username"`
	Password             string `json:"password,omitempty"`
	PasswordConfirmation string `json:"passwordConfirmation,omitempty"`
}

const (
	insertUser = `
		INSERT INTO users (name, username, password)
		VALUES (:name, :username, :password)`
	insertUserRole = `
		INSERT INTO users_roles (user_id, role)
		VALUES (?, ?)`
	updateUser = `
		UPDATE users
		SET name = ?,
		    username = ?
		WHERE id = ?`
	deleteUserTasks = `
		DELETE FROM tasks
		WHERE id IN (SELECT task_id FROM users_tasks WHERE user_id = ?)`
	deleteUser = `
		DELETE FROM users
		WHERE id = ?`
)

// CreateUser registers u with the USER role and returns the new principal.
func (s *Store) CreateUser(ctx context.Context, u NewUser) (taskAuth.Principal, error) {
	if u.Password != u.PasswordConfirmation {
		return taskAuth.Principal{}, ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(u.Password)
	if err != nil {
		return taskAuth.Principal{}, fmt.Errorf("hash password: %w", err)
	}

	var id int64
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, insertUser, userRow{
			Name:     u.Name,
			Username: u.Username,
			Password: hash,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return ErrUserExists
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertUserRole, id, string(taskAuth.RoleUser)); err != nil {
			return fmt.Errorf("insert role: %w", err)
		}
		return nil
	})
	if err != nil {
		return taskAuth.Principal{}, err
	}

	return taskAuth.Principal{
		ID:          id,
		Username:    u.Username,
		DisplayName: u.Name,
		Roles:       []taskAuth.Role{taskAuth.RoleUser},
	}, nil
}

// AssignRole grants role to userID. Granting a role twice is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID int64, role taskAuth.Role) error {
	if _, err := taskAuth.ParseRole(string(role)); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, insertUserRole, userID, string(role))
	if err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

// UpdateUser applies u and returns the stored principal. An unknown id returns
// taskAuth.ErrPrincipalNotFound and a taken username ErrUserExists.
func (s *Store) UpdateUser(ctx context.Context, u UserUpdate) (taskAuth.Principal, error) {
	var hash string
	if u.Password != "" || u.PasswordConfirmation != "" {
		if u.Password != u.PasswordConfirmation {
			return taskAuth.Principal{}, ErrPasswordMismatch
		}
		var err error
		if hash, err = s.hasher.Hash(u.Password); err != nil {
			return taskAuth.Principal{}, fmt.Errorf("hash password: %w", err)
		}
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, updateUser, u.Name, u.Username, u.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrUserExists
			}
			return fmt.Errorf("update user: %w", err)
		}
		if err := expectRow(res, taskAuth.ErrPrincipalNotFound); err != nil {
			return err
		}
		if hash == "" {
			return nil
		}
		if _, err := tx.ExecContext(ctx, updateUserPassword, hash, u.ID); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
	if err != nil {
		return taskAuth.Principal{}, err
	}
	return s.FindPrincipalByID(ctx, u.ID)
}

// DeleteUser removes a user together with its roles and tasks.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteUserTasks, id); err != nil {
			return fmt.Errorf("delete user tasks: %w", err)
		}
		res, err := tx.ExecContext(ctx, deleteUser, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return expectRow(res, taskAuth.ErrPrincipalNotFound)
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
