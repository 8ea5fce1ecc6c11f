package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/taskAuth"
	"github.com/jmoiron/sqlx"
)

// TaskStatus is the progress state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

// Valid reports whether st is one of the known statuses.
func (st TaskStatus) Valid() bool {
	switch st {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task is a unit of work owned by one user.
type Task struct {
	ID             int64      `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	Status         TaskStatus `db:"status" json:"status"`
	ExpirationDate *time.Time `db:"expiration_date" json:"expirationDate,omitempty"`
}

const (
	insertTask = `
		INSERT INTO tasks (title, description, status, expiration_date)
		VALUES (:title, :description, :status, :expiration_date)`
	insertUserTask = `
		INSERT INTO users_tasks (user_id, task_id)
		VALUES (?, ?)`
	selectTaskByID = `
		SELECT id, title, description, status, expiration_date
		FROM tasks
		WHERE id = ?`
	selectTasksByUser = `
		SELECT t.id, t.title, t.description, t.status, t.expiration_date
		FROM tasks t
		JOIN users_tasks ut ON ut.task_id = t.id
		WHERE ut.user_id = ?
		ORDER BY t.id`
	updateTask = `
		UPDATE tasks
		SET title = :title,
		    description = :description,
		    status = :status,
		    expiration_date = :expiration_date
		WHERE id = :id`
	deleteTask = `
		DELETE FROM tasks
		WHERE id = ?`
)

// CreateTask stores t and assigns it to userID. A blank status becomes TODO.
// An unknown userID returns taskAuth.ErrPrincipalNotFound.
func (s *Store) CreateTask(ctx context.Context, userID int64, t Task) (Task, error) {
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if !t.Status.Valid() {
		return Task{}, ErrInvalidTaskStatus
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, insertTask, t)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertUserTask, userID, t.ID); err != nil {
			if isForeignKeyViolation(err) {
				return taskAuth.ErrPrincipalNotFound
			}
			return fmt.Errorf("insert task owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// GetTask loads one task.
func (s *Store) GetTask(ctx context.Context, id int64) (Task, error) {
	var t Task
	if err := s.db.GetContext(ctx, &t, selectTaskByID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrTaskNotFound
		}
		return Task{}, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

// ListTasks returns the tasks owned by userID in id order.
func (s *Store) ListTasks(ctx context.Context, userID int64) ([]Task, error) {
	tasks := []Task{}
	if err := s.db.SelectContext(ctx, &tasks, selectTasksByUser, userID); err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask overwrites the fields of the task with t.ID. Ownership is unchanged.
// A blank status becomes TODO.
func (s *Store) UpdateTask(ctx context.Context, t Task) (Task, error) {
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if !t.Status.Valid() {
		return Task{}, ErrInvalidTaskStatus
	}

	res, err := s.db.NamedExecContext(ctx, updateTask, t)
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := expectRow(res, ErrTaskNotFound); err != nil {
		return Task{}, err
	}
	return t, nil
}

// DeleteTask removes a task and its owner link.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, deleteTask, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectRow(res, ErrTaskNotFound)
}
