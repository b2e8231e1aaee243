package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// testClock is a mutable time source shared by the engine and the test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
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

// mockAccountStore is an in-memory AccountStore.
type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	byEmail  map[string]string
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		accounts: map[string]*Account{},
		byEmail:  map[string]string{},
	}
}

func (s *mockAccountStore) GetByEmail(_ context.Context, email string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return *s.accounts[id], nil
}

func (s *mockAccountStore) GetByID(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return *account, nil
}

func (s *mockAccountStore) Create(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[account.Email]; exists {
		return ErrDuplicateEmail
	}
	copied := account
	s.accounts[account.ID] = &copied
	s.byEmail[account.Email] = account.ID
	return nil
}

func (s *mockAccountStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.PasswordHash = hash
	return nil
}

func (s *mockAccountStore) MarkVerified(_ context.Context, id string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.EmailVerified = true
	account.Active = true
	return nil
}

func (s *mockAccountStore) RecordLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	when := at
	account.LastLogin = &when
	return nil
}

func (s *mockAccountStore) IncrementFailedLogins(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return 0, ErrAccountNotFound
	}
	account.FailedLoginAttempts++
	return account.FailedLoginAttempts, nil
}

func (s *mockAccountStore) SetLockedUntil(_ context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	when := until
	account.LockedUntil = &when
	return nil
}

func (s *mockAccountStore) ResetLockout(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.FailedLoginAttempts = 0
	account.LockedUntil = nil
	return nil
}

// get returns the current state of an account, for assertions.
func (s *mockAccountStore) get(t *testing.T, id string) Account {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		t.Fatalf("account %q not in store", id)
	}
	return *account
}

// recordingNotifier captures every message the engine sends.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []Message
}

func (n *recordingNotifier) Send(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) last(t *testing.T, kind MessageKind) Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.messages) - 1; i >= 0; i-- {
		if n.messages[i].Kind == kind {
			return n.messages[i]
		}
	}
	t.Fatalf("no %s message recorded", kind)
	return Message{}
}

func (n *recordingNotifier) count(kind MessageKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.messages {
		if m.Kind == kind {
			c++
		}
	}
	return c
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.Secret = testSecret
	// Cheap argon2 parameters keep the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type testEnv struct {
	engine   *Engine
	store    *mockAccountStore
	notifier *recordingNotifier
	clock    *testClock
	redis    *miniredis.Miniredis
}

func newTestEngine(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	store := newMockAccountStore()
	notifier := &recordingNotifier{}
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(store).
		WithNotifier(notifier).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine:   engine,
		store:    store,
		notifier: notifier,
		clock:    clock,
		redis:    mr,
	}
}

// register creates and verifies an account, returning its ID.
func (env *testEnv) register(t *testing.T, email, password string) string {
	t.Helper()

	result, err := env.engine.Register(context.Background(), RegisterRequest{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		FirstName:       "Jan",
		LastName:        "Kowalski",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return result.AccountID
}

func (env *testEnv) registerVerified(t *testing.T, email, password string) string {
	t.Helper()

	id := env.register(t, email, password)
	code := env.notifier.last(t, MessageVerificationCode).Code
	if err := env.engine.VerifyEmail(context.Background(), email, code); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	return id
}
