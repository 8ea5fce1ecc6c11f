package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/taskAuth"
	"github.com/MrEthical07/taskAuth/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db))

	cfg := password.DefaultConfig()
	cfg.Memory = 8 * 1024
	cfg.Time = 1
	cfg.Parallelism = 1
	hasher, err := password.NewArgon2(cfg)
	require.NoError(t, err)

	return New(db, hasher)
}

func createUser(t *testing.T, s *Store, username, secret string) taskAuth.Principal {
	t.Helper()

	p, err := s.CreateUser(context.Background(), NewUser{
		Name:                 strings.ToUpper(username[:1]) + username[1:],
		Username:             username,
		Password:             secret,
		PasswordConfirmation: secret,
	})
	require.NoError(t, err)
	return p
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN("/tmp/test.sqlite")

	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.True(t, strings.HasPrefix(dsn, "/tmp/test.sqlite?"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, Migrate(s.db))
}

func TestCreateUserAndFind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := createUser(t, s, "alice", "alice-password")
	assert.Positive(t, created.ID)
	assert.Equal(t, []taskAuth.Role{taskAuth.RoleUser}, created.Roles)

	byID, err := s.FindPrincipalByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	byName, err := s.FindPrincipalByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created, byName)
}

func TestCreateUserRejectsDuplicatesAndMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	createUser(t, s, "alice", "alice-password")

	_, err := s.CreateUser(ctx, NewUser{Name: "A", Username: "alice", Password: "another-one", PasswordConfirmation: "another-one"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = s.CreateUser(ctx, NewUser{Name: "B", Username: "bob", Password: "bob-password", PasswordConfirmation: "bob-passw0rd"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = s.FindPrincipalByUsername(ctx, "bob")
	assert.ErrorIs(t, err, taskAuth.ErrPrincipalNotFound)
}

func TestFindPrincipalNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.FindPrincipalByID(context.Background(), 42)
	assert.ErrorIs(t, err, taskAuth.ErrPrincipalNotFound)
}

func TestAssignRole(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := createUser(t, s, "root", "root-password")

	require.NoError(t, s.AssignRole(ctx, p.ID, taskAuth.RoleAdmin))
	require.NoError(t, s.AssignRole(ctx, p.ID, taskAuth.RoleAdmin))
	assert.Error(t, s.AssignRole(ctx, p.ID, taskAuth.Role("OWNER")))

	got, err := s.FindPrincipalByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []taskAuth.Role{taskAuth.RoleAdmin, taskAuth.RoleUser}, got.Roles)
}

func TestVerifyCredential(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created := createUser(t, s, "alice", "alice-password")

	p, err := s.VerifyCredential(ctx, "alice", "alice-password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, p.ID)

	_, err = s.VerifyCredential(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, taskAuth.ErrAuthFailed)

	_, err = s.VerifyCredential(ctx, "mallory", "alice-password")
	assert.ErrorIs(t, err, taskAuth.ErrAuthFailed)

	_, err = s.VerifyCredential(ctx, "alice", strings.Repeat("x", 1024))
	assert.ErrorIs(t, err, taskAuth.ErrAuthFailed)
}

func TestTasksAndOwnership(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice", "alice-password")
	bob := createUser(t, s, "bob", "bob-password")

	due := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	task, err := s.CreateTask(ctx, alice.ID, Task{Title: "write docs", ExpirationDate: &due})
	require.NoError(t, err)
	assert.Equal(t, StatusTodo, task.Status)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "write docs", got.Title)
	require.NotNil(t, got.ExpirationDate)
	assert.True(t, due.Equal(*got.ExpirationDate))

	owner, err := s.IsOwner(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, owner)

	owner, err = s.IsOwner(ctx, bob.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, owner)

	owner, err = s.IsOwner(ctx, alice.ID, task.ID+100)
	require.NoError(t, err)
	assert.False(t, owner)

	tasks, err := s.ListTasks(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	_, err = s.GetTask(ctx, 9999)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestStoreBacksEngine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice", "alice-password")
	task, err := s.CreateTask(ctx, alice.ID, Task{Title: "t"})
	require.NoError(t, err)

	cfg := taskAuth.DefaultConfig()
	cfg.JWT.Secret = []byte(strings.Repeat("s", 32))
	engine, err := taskAuth.New().WithConfig(cfg).WithPrincipalProvider(s).WithOwnershipProvider(s).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	login, err := engine.IssueLoginTokens(ctx, "alice", "alice-password")
	require.NoError(t, err)

	p, err := engine.Authenticate(login.AccessToken)
	require.NoError(t, err)
	assert.True(t, engine.CanAccessTask(ctx, p, task.ID))
	assert.True(t, engine.CanAccessUser(p, alice.ID))

	_, err = engine.IssueLoginTokens(ctx, "alice", "nope")
	assert.ErrorIs(t, err, taskAuth.ErrAuthFailed)
}

func TestVerifyCredentialUpgradesWeakHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := createUser(t, s, "alice", "alice-password")

	var before string
	require.NoError(t, s.db.GetContext(ctx, &before, "SELECT password FROM users WHERE id = ?", p.ID))

	stronger := password.DefaultConfig()
	stronger.Memory = 16 * 1024
	stronger.Time = 1
	stronger.Parallelism = 1
	hasher, err := password.NewArgon2(stronger)
	require.NoError(t, err)
	upgraded := New(s.db, hasher)

	_, err = upgraded.VerifyCredential(ctx, "alice", "alice-password")
	require.NoError(t, err)

	var after string
	require.NoError(t, s.db.GetContext(ctx, &after, "SELECT password FROM users WHERE id = ?", p.ID))
	assert.NotEqual(t, before, after)
	assert.Contains(t, after, "m=16384")

	_, err = upgraded.VerifyCredential(ctx, "alice", "alice-password")
	require.NoError(t, err)
}

func TestCreateTaskForUnknownUser(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateTask(context.Background(), 4242, Task{Title: "orphan"})
	assert.ErrorIs(t, err, taskAuth.ErrPrincipalNotFound)
	assert.Equal(t, taskAuth.OutcomeNotFound, taskAuth.Classify(err))

	_, err = s.GetTask(context.Background(), 1)
	assert.ErrorIs(t, err, ErrTaskNotFound, "insert must roll back with the owner link")
}

func TestUpdateAndDeleteTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice", "alice-password")
	task, err := s.CreateTask(ctx, alice.ID, Task{Title: "draft"})
	require.NoError(t, err)

	updated, err := s.UpdateTask(ctx, Task{ID: task.ID, Title: "final", Description: "done now", Status: StatusDone})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, updated.Status)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, StatusDone, got.Status)

	got, err = s.UpdateTask(ctx, Task{ID: task.ID, Title: "reopened"})
	require.NoError(t, err)
	assert.Equal(t, StatusTodo, got.Status)

	_, err = s.UpdateTask(ctx, Task{ID: task.ID, Title: "x", Status: "PAUSED"})
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)
	_, err = s.UpdateTask(ctx, Task{ID: 9999, Title: "x"})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	require.NoError(t, s.DeleteTask(ctx, task.ID))
	owner, err := s.IsOwner(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, owner)
	assert.ErrorIs(t, s.DeleteTask(ctx, task.ID), ErrTaskNotFound)
}

func TestUpdateUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice", "alice-password")
	createUser(t, s, "bob", "bob-password")

	p, err := s.UpdateUser(ctx, UserUpdate{ID: alice.ID, Name: "Alice L.", Username: "alice2"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", p.Username)
	assert.Equal(t, "Alice L.", p.DisplayName)
	assert.Equal(t, []taskAuth.Role{taskAuth.RoleUser}, p.Roles)

	_, err = s.VerifyCredential(ctx, "alice2", "alice-password")
	require.NoError(t, err, "blank password keeps the old hash")

	_, err = s.UpdateUser(ctx, UserUpdate{ID: alice.ID, Name: "A", Username: "alice2", Password: "new-password", PasswordConfirmation: "new-password"})
	require.NoError(t, err)
	_, err = s.VerifyCredential(ctx, "alice2", "new-password")
	require.NoError(t, err)

	_, err = s.UpdateUser(ctx, UserUpdate{ID: alice.ID, Name: "A", Username: "bob"})
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = s.UpdateUser(ctx, UserUpdate{ID: alice.ID, Name: "A", Username: "alice2", Password: "x1", PasswordConfirmation: "x2"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	_, err = s.UpdateUser(ctx, UserUpdate{ID: 9999, Name: "A", Username: "ghost"})
	assert.ErrorIs(t, err, taskAuth.ErrPrincipalNotFound)
}

func TestDeleteUserRemovesTasks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice", "alice-password")
	bob := createUser(t, s, "bob", "bob-password")
	aliceTask, err := s.CreateTask(ctx, alice.ID, Task{Title: "a"})
	require.NoError(t, err)
	bobTask, err := s.CreateTask(ctx, bob.ID, Task{Title: "b"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, alice.ID))

	_, err = s.FindPrincipalByID(ctx, alice.ID)
	assert.ErrorIs(t, err, taskAuth.ErrPrincipalNotFound)
	_, err = s.GetTask(ctx, aliceTask.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = s.GetTask(ctx, bobTask.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.DeleteUser(ctx, alice.ID), taskAuth.ErrPrincipalNotFound)
}
