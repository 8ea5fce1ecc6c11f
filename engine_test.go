package taskAuth

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/taskAuth/jwt"
	"github.com/alicebob/miniredis/v2"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte(strings.Repeat("s", 32))

type fakeUser struct {
	principal Principal
	secret    string
}

type fakeDirectory struct {
	mu        sync.Mutex
	users     map[int64]fakeUser
	owners    map[[2]int64]bool
	lookupErr error
	ownerErr  error

	findByIDCalls int
	verifyCalls   int
	isOwnerCalls  int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: map[int64]fakeUser{
			1: {principal: Principal{ID: 1, Username: "alice", DisplayName: "Alice", Roles: []Role{RoleUser}}, secret: "alice-password"},
			2: {principal: Principal{ID: 2, Username: "bob", DisplayName: "Bob", Roles: []Role{RoleUser}}, secret: "bob-password"},
			3: {principal: Principal{ID: 3, Username: "root", DisplayName: "Root", Roles: []Role{RoleAdmin, RoleUser}}, secret: "root-password"},
		},
		owners: map[[2]int64]bool{
			{1, 10}: true,
			{2, 20}: true,
		},
	}
}

func (d *fakeDirectory) FindPrincipalByID(_ context.Context, id int64) (Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.findByIDCalls++

	if d.lookupErr != nil {
		return Principal{}, d.lookupErr
	}
	u, ok := d.users[id]
	if !ok {
		return Principal{}, fmt.Errorf("id %d: %w", id, ErrPrincipalNotFound)
	}
	return u.principal, nil
}

func (d *fakeDirectory) FindPrincipalByUsername(_ context.Context, username string) (Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range d.users {
		if u.principal.Username == username {
			return u.principal, nil
		}
	}
	return Principal{}, ErrPrincipalNotFound
}

func (d *fakeDirectory) VerifyCredential(_ context.Context, username, rawSecret string) (Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verifyCalls++

	if d.lookupErr != nil {
		return Principal{}, d.lookupErr
	}
	for _, u := range d.users {
		if u.principal.Username == username && u.secret == rawSecret {
			return u.principal, nil
		}
	}
	return Principal{}, ErrAuthFailed
}

func (d *fakeDirectory) IsOwner(_ context.Context, userID, taskID int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.isOwnerCalls++

	if d.ownerErr != nil {
		return false, d.ownerErr
	}
	return d.owners[[2]int64{userID, taskID}], nil
}

func (d *fakeDirectory) setRoles(id int64, roles ...Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.users[id]
	u.principal.Roles = roles
	d.users[id] = u
}

func (d *fakeDirectory) remove(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, id)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 24 * time.Hour
	cfg.RateLimit.MaxLoginAttempts = 3
	return cfg
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newTestEngine(t *testing.T, cfg Config, dir *fakeDirectory, clock *testClock) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithPrincipalProvider(dir).
		WithOwnershipProvider(dir).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestAuthenticateRoundTrip(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), newTestClock())

	principals := []Principal{
		{ID: 1, Username: "alice", Roles: []Role{RoleUser}},
		{ID: 3, Username: "root", Roles: []Role{RoleAdmin, RoleUser}},
		{ID: 99, Username: "ünïcode user", Roles: []Role{RoleAdmin}},
	}
	for _, want := range principals {
		token, err := engine.IssueAccessToken(want.ID, want.Username, want.Roles)
		if err != nil {
			t.Fatalf("IssueAccessToken(%s): %v", want.Username, err)
		}
		got, err := engine.Authenticate(token)
		if err != nil {
			t.Fatalf("Authenticate(%s): %v", want.Username, err)
		}
		if !reflect.DeepEqual(*got, want) {
			t.Fatalf("round trip mismatch: got %+v want %+v", *got, want)
		}
	}
}

func TestAuthenticateNormalizesRoleOrder(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), newTestClock())

	token, err := engine.IssueAccessToken(3, "root", []Role{RoleUser, RoleAdmin, RoleUser})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	p, err := engine.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !reflect.DeepEqual(p.Roles, []Role{RoleAdmin, RoleUser}) {
		t.Fatalf("expected normalized roles, got %v", p.Roles)
	}
}

func TestIssueAccessTokenRejectsBadRoles(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), newTestClock())

	if _, err := engine.IssueAccessToken(1, "alice", nil); !errors.Is(err, jwt.ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims for no roles, got %v", err)
	}
	if _, err := engine.IssueAccessToken(1, "alice", []Role{"SUPERUSER"}); !errors.Is(err, jwt.ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims for unknown role, got %v", err)
	}
}

func TestValidateRejectsTokenFromOtherKey(t *testing.T) {
	dir := newFakeDirectory()
	clock := newTestClock()
	engine := newTestEngine(t, testConfig(), dir, clock)

	other := testConfig()
	other.JWT.Secret = []byte(strings.Repeat("o", 32))
	otherEngine := newTestEngine(t, other, dir, clock)

	token, err := otherEngine.IssueAccessToken(1, "alice", []Role{RoleUser})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := engine.Validate(token); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if _, err := engine.Authenticate(token); Classify(err) != OutcomeUnauthenticated {
		t.Fatalf("expected unauthenticated outcome, got %v", err)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	cfg := testConfig()
	clock := newTestClock()
	engine := newTestEngine(t, cfg, newFakeDirectory(), clock)

	access, err := engine.IssueAccessToken(1, "alice", []Role{RoleUser})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	refresh, err := engine.IssueRefreshToken(1, "alice")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	tests := []struct {
		name  string
		token string
		ttl   time.Duration
	}{
		{name: "access", token: access, ttl: cfg.JWT.AccessTTL},
		{name: "refresh", token: refresh, ttl: cfg.JWT.RefreshTTL},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			at := newTestClock()
			e := newTestEngine(t, cfg, newFakeDirectory(), at)

			at.Advance(tc.ttl - time.Second)
			if _, err := e.Validate(tc.token); err != nil {
				t.Fatalf("expected token to be valid at TTL-1s, got %v", err)
			}
			at.Advance(time.Second)
			if _, err := e.Validate(tc.token); !errors.Is(err, ErrTokenExpired) {
				t.Fatalf("expected ErrTokenExpired at exactly exp, got %v", err)
			}
			at.Advance(time.Second)
			if _, err := e.Validate(tc.token); !errors.Is(err, ErrTokenExpired) {
				t.Fatalf("expected ErrTokenExpired at TTL+1s, got %v", err)
			}
		})
	}
}

func TestIssueTruncatesIssuedAtToSeconds(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 999_000_000)}
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), clock)

	token, err := engine.IssueAccessToken(1, "alice", []Role{RoleUser})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	claims, err := engine.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := claims.ExpiresAtTime().Sub(claims.IssuedAtTime()); got != engine.AccessTTL() {
		t.Fatalf("expected exp-iat=%v, got %v", engine.AccessTTL(), got)
	}
	if claims.IssuedAtTime().Unix() != 1_700_000_000 {
		t.Fatalf("unexpected iat %v", claims.IssuedAtTime())
	}
}

func TestLoginScenarioAlice(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), newTestClock())

	result, err := engine.IssueLoginTokens(context.Background(), "alice", "alice-password")
	if err != nil {
		t.Fatalf("IssueLoginTokens: %v", err)
	}
	if result.ID != 1 || result.Username != "alice" {
		t.Fatalf("unexpected result %+v", result)
	}

	claims, err := engine.Validate(result.AccessToken)
	if err != nil {
		t.Fatalf("Validate access: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("expected sub=alice, got %q", claims.Subject)
	}
	if !reflect.DeepEqual(claims.Roles, []string{"USER"}) {
		t.Fatalf("expected roles=[USER], got %v", claims.Roles)
	}
	if got := claims.ExpiresAtTime().Sub(claims.IssuedAtTime()); got != 15*time.Minute {
		t.Fatalf("expected exp-iat to equal access TTL, got %v", got)
	}

	refreshClaims, err := engine.Validate(result.RefreshToken)
	if err != nil {
		t.Fatalf("Validate refresh: %v", err)
	}
	if len(refreshClaims.Roles) != 0 || refreshClaims.TokenKind() != jwt.KindRefresh {
		t.Fatalf("expected refresh token without roles, got %+v", refreshClaims)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), newTestClock())
	ctx := context.Background()

	_, unknownErr := engine.IssueLoginTokens(ctx, "mallory", "whatever")
	_, wrongErr := engine.IssueLoginTokens(ctx, "bob", "not-bobs-password")

	if !errors.Is(unknownErr, ErrAuthFailed) || !errors.Is(wrongErr, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed for both, got %v and %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("expected identical messages, got %q and %q", unknownErr, wrongErr)
	}
	if Classify(unknownErr) != OutcomeBadCredential {
		t.Fatalf("expected bad credential outcome, got %v", Classify(unknownErr))
	}
}

func TestLoginProviderFailureIsInternal(t *testing.T) {
	dir := newFakeDirectory()
	dir.lookupErr = errors.New("connection reset")
	engine := newTestEngine(t, testConfig(), dir, newTestClock())

	for i := 0; i < 5; i++ {
		_, err := engine.IssueLoginTokens(context.Background(), "alice", "alice-password")
		if err == nil || errors.Is(err, ErrAuthFailed) {
			t.Fatalf("expected wrapped provider error, got %v", err)
		}
		if Classify(err) != OutcomeInternal {
			t.Fatalf("expected internal outcome, got %v", Classify(err))
		}
	}
}

func TestLoginRateLimitedAfterBudget(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), newTestClock())
	ctx := WithClientIP(context.Background(), "192.0.2.1")

	for i := 0; i < 3; i++ {
		if _, err := engine.IssueLoginTokens(ctx, "alice", "wrong"); !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("attempt %d: expected ErrAuthFailed, got %v", i, err)
		}
	}
	if _, err := engine.IssueLoginTokens(ctx, "alice", "alice-password"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricLoginRateLimited]; got != 1 {
		t.Fatalf("expected one rate limited login, got %d", got)
	}
}

func TestLoginRateLimitSharedThroughRedis(t *testing.T) {
	mr, rdb := newTestRedis(t)
	dir := newFakeDirectory()
	cfg := testConfig()

	build := func() *Engine {
		e, err := New().WithConfig(cfg).WithRedis(rdb).WithPrincipalProvider(dir).WithOwnershipProvider(dir).Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		t.Cleanup(e.Close)
		return e
	}
	first, second := build(), build()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = first.IssueLoginTokens(ctx, "bob", "wrong")
	}
	if !mr.Exists("ta:lu:bob") {
		t.Fatal("expected login counter in redis")
	}
	if _, err := second.IssueLoginTokens(ctx, "bob", "bob-password"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected budget to be shared, got %v", err)
	}
}

func TestSuccessfulLoginResetsBudget(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), newTestClock())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = engine.IssueLoginTokens(ctx, "alice", "wrong")
	}
	if _, err := engine.IssueLoginTokens(ctx, "alice", "alice-password"); err != nil {
		t.Fatalf("expected login within budget, got %v", err)
	}
	for i := 0; i < 2; i++ {
		_, _ = engine.IssueLoginTokens(ctx, "alice", "wrong")
	}
	if _, err := engine.IssueLoginTokens(ctx, "alice", "alice-password"); err != nil {
		t.Fatalf("expected budget to reset after success, got %v", err)
	}
}

func TestRefreshIssuesNewPairWithFreshRoles(t *testing.T) {
	dir := newFakeDirectory()
	clock := newTestClock()
	engine := newTestEngine(t, testConfig(), dir, clock)
	ctx := context.Background()

	login, err := engine.IssueLoginTokens(ctx, "alice", "alice-password")
	if err != nil {
		t.Fatalf("IssueLoginTokens: %v", err)
	}

	dir.setRoles(1, RoleAdmin)
	clock.Advance(time.Hour)

	refreshed, err := engine.RefreshTokens(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if refreshed.ID != 1 || refreshed.Username != "alice" {
		t.Fatalf("unexpected refresh result %+v", refreshed)
	}

	p, err := engine.Authenticate(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate refreshed access: %v", err)
	}
	if !p.HasRole(RoleAdmin) || p.HasRole(RoleUser) {
		t.Fatalf("expected roles to be re-fetched, got %v", p.Roles)
	}
	if dir.findByIDCalls != 1 {
		t.Fatalf("expected one principal lookup, got %d", dir.findByIDCalls)
	}
}

func TestRefreshExpiredTokenDenied(t *testing.T) {
	dir := newFakeDirectory()
	clock := newTestClock()
	engine := newTestEngine(t, testConfig(), dir, clock)

	refresh, err := engine.IssueRefreshToken(1, "alice")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	clock.Advance(engine.RefreshTTL() + time.Second)

	result, err := engine.RefreshTokens(context.Background(), refresh)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if result != nil {
		t.Fatal("expected no token pair")
	}
	if dir.findByIDCalls != 0 {
		t.Fatal("expected no principal lookup for an expired token")
	}
}

func TestRefreshDeniedForInvalidTokens(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), newTestClock())
	access, err := engine.IssueAccessToken(1, "alice", []Role{RoleUser})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	forged, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"sub": "alice", "id": 1, "kind": "refresh", "iat": time.Now().Unix(), "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(strings.Repeat("x", 32)))

	for name, token := range map[string]string{
		"access token": access,
		"forged":       forged,
		"garbage":      "not-a-token",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := engine.RefreshTokens(context.Background(), token); !errors.Is(err, ErrAccessDenied) {
				t.Fatalf("expected ErrAccessDenied, got %v", err)
			}
		})
	}
}

func TestRefreshPrincipalGone(t *testing.T) {
	dir := newFakeDirectory()
	engine := newTestEngine(t, testConfig(), dir, newTestClock())

	refresh, err := engine.IssueRefreshToken(2, "bob")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	dir.remove(2)

	if _, err := engine.RefreshTokens(context.Background(), refresh); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}
}

func TestRefreshRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxRefreshAttempts = 2
	engine := newTestEngine(t, cfg, newFakeDirectory(), newTestClock())

	refresh, err := engine.IssueRefreshToken(1, "alice")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := engine.RefreshTokens(context.Background(), refresh); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	if _, err := engine.RefreshTokens(context.Background(), refresh); !errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("expected ErrRefreshRateLimited, got %v", err)
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), newTestClock())

	login, err := engine.IssueLoginTokens(context.Background(), "alice", "alice-password")
	if err != nil {
		t.Fatalf("IssueLoginTokens: %v", err)
	}
	if _, err := engine.Authenticate(login.RefreshToken); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestAuthenticateLegacyAndUnknownRoles(t *testing.T) {
	clock := newTestClock()
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), clock)
	now := clock.Now()

	sign := func(claims gjwt.MapClaims) string {
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	legacy := sign(gjwt.MapClaims{"sub": "alice", "id": 1, "roles": []string{"ROLE_USER"}, "iat": now.Unix(), "exp": now.Add(time.Minute).Unix()})
	p, err := engine.Authenticate(legacy)
	if err != nil {
		t.Fatalf("expected legacy token to authenticate, got %v", err)
	}
	if !reflect.DeepEqual(p.Roles, []Role{RoleUser}) {
		t.Fatalf("expected USER role, got %v", p.Roles)
	}

	legacyRefresh := sign(gjwt.MapClaims{"sub": "alice", "id": 1, "iat": now.Unix(), "exp": now.Add(time.Minute).Unix()})
	if _, err := engine.Authenticate(legacyRefresh); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for legacy refresh token, got %v", err)
	}

	unknown := sign(gjwt.MapClaims{"sub": "alice", "id": 1, "roles": []string{"GOD"}, "kind": "access", "iat": now.Unix(), "exp": now.Add(time.Minute).Unix()})
	if _, err := engine.Authenticate(unknown); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for unknown role, got %v", err)
	}
}

func TestAuthenticateDoesNotCallProviders(t *testing.T) {
	dir := newFakeDirectory()
	engine := newTestEngine(t, testConfig(), dir, newTestClock())

	token, err := engine.IssueAccessToken(1, "alice", []Role{RoleUser})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := engine.Authenticate(token); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if dir.findByIDCalls != 0 || dir.verifyCalls != 0 || dir.isOwnerCalls != 0 {
		t.Fatalf("expected no provider calls, got %+v", dir)
	}
}

func TestConcurrentAuthenticate(t *testing.T) {
	engine := newTestEngine(t, testConfig(), newFakeDirectory(), newTestClock())

	const goroutines = 32
	tokens := make([]string, goroutines)
	for i := range tokens {
		tok, err := engine.IssueAccessToken(int64(i+1), fmt.Sprintf("user-%d", i), []Role{RoleUser})
		if err != nil {
			t.Fatalf("IssueAccessToken: %v", err)
		}
		tokens[i] = tok
	}

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p, err := engine.Authenticate(tokens[i])
				if err != nil {
					errs <- err
					return
				}
				if p.ID != int64(i+1) {
					errs <- fmt.Errorf("goroutine %d got principal %d", i, p.ID)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestNilEngineIsNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Authenticate("x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.IssueLoginTokens(context.Background(), "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.RefreshTokens(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
}

func TestLimiterOutageIsInternalNotRateLimited(t *testing.T) {
	mr, rdb := newTestRedis(t)
	dir := newFakeDirectory()
	engine, err := New().WithConfig(testConfig()).WithRedis(rdb).WithPrincipalProvider(dir).WithOwnershipProvider(dir).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	refresh, err := engine.IssueRefreshToken(1, "alice")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	mr.Close()
	ctx := context.Background()

	_, err = engine.IssueLoginTokens(ctx, "alice", "alice-password")
	if !errors.Is(err, ErrRateLimiterUnavailable) || errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("login: expected ErrRateLimiterUnavailable, got %v", err)
	}
	if got := Classify(err); got != OutcomeInternal {
		t.Fatalf("login outcome = %v, want internal", got)
	}

	_, err = engine.RefreshTokens(ctx, refresh)
	if !errors.Is(err, ErrRateLimiterUnavailable) || errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("refresh: expected ErrRateLimiterUnavailable, got %v", err)
	}
	if got := Classify(err); got != OutcomeInternal {
		t.Fatalf("refresh outcome = %v, want internal", got)
	}
	if dir.verifyCalls != 0 {
		t.Fatalf("credential checked during limiter outage: %d calls", dir.verifyCalls)
	}
}
