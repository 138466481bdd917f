package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

var testUser = &types.User{ID: "user-1", Email: "ana@dela.pe", RoleID: 2}

func testSession(access, renewal string) types.Session {
	u := *testUser
	return types.Session{AccessToken: access, RenewalToken: renewal, User: &u}
}

var errUnreachable = apierr.Transport(errors.New("dial tcp: connection refused"))

// fakeAuth is a scripted AuthAPI. Unset funcs succeed with a fixed answer.
type fakeAuth struct {
	mu sync.Mutex

	verify func(token string) (bool, error)
	renew  func(token string) (types.TokenPair, error)
	login  func(creds types.Credentials) (types.Session, error)
	logout func(access, renewal string) error

	verifyCalls int
	renewCalls  int
	logoutCalls int
}

func (f *fakeAuth) Login(_ context.Context, creds types.Credentials) (types.Session, error) {
	if f.login != nil {
		return f.login(creds)
	}
	return testSession("access-login", "renewal-login"), nil
}

func (f *fakeAuth) Logout(_ context.Context, access, renewal string) error {
	f.mu.Lock()
	f.logoutCalls++
	f.mu.Unlock()
	if f.logout != nil {
		return f.logout(access, renewal)
	}
	return nil
}

func (f *fakeAuth) Verify(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	f.verifyCalls++
	f.mu.Unlock()
	if f.verify != nil {
		return f.verify(token)
	}
	return true, nil
}

func (f *fakeAuth) Renew(_ context.Context, token string) (types.TokenPair, error) {
	f.mu.Lock()
	f.renewCalls++
	f.mu.Unlock()
	if f.renew != nil {
		return f.renew(token)
	}
	return types.TokenPair{AccessToken: "access-renewed", RenewalToken: "renewal-renewed"}, nil
}

func (f *fakeAuth) Register(_ context.Context, reg types.Registration) error {
	if reg.Password == "" {
		return apierr.Validation("", errors.New("password is required"))
	}
	return nil
}

func (f *fakeAuth) counts() (verify, renew, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls, f.renewCalls, f.logoutCalls
}

// fakeTimers captures scheduled callbacks instead of running them.
type fakeTimers struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	ft.pending = append(ft.pending, t)
	return t
}

func (ft *fakeTimers) all() []*fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]*fakeTimer(nil), ft.pending...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
