package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"farmsmart/internal/domain"
	"farmsmart/internal/identity"
	"farmsmart/internal/notify"
	"farmsmart/internal/query"
	sessionrepo "farmsmart/internal/repository/session"
)

type stubProvider struct {
	issuer  *identity.Issuer
	errs    []error
	logins  int
	logouts int
}

func (p *stubProvider) Login(_ context.Context, assertion string) (identity.Delegation, error) {
	p.logins++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return identity.Delegation{}, err
		}
	}
	return p.issuer.Sign(assertion, time.Hour)
}

func (p *stubProvider) Logout(context.Context) error {
	p.logouts++
	return nil
}

func newTestService(t *testing.T, errs ...error) (*Service, *stubProvider, *notify.Queue, *query.Cache, sessionrepo.Repository) {
	t.Helper()
	issuer := identity.NewIssuer("test-secret")
	p := &stubProvider{issuer: issuer, errs: errs}
	q := notify.NewQueue(nil)
	c := query.New(nil)
	st := sessionrepo.NewMemory()
	return New("sid-1", p, issuer, st, c, q, nil), p, q, c, st
}

func TestLogin_Success(t *testing.T) {
	svc, _, q, _, st := newTestService(t)

	var seen []domain.Session
	svc.Subscribe(func(s domain.Session) { seen = append(seen, s) })

	sess, err := svc.Login(context.Background(), "farmer-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sess.Authenticated || sess.Principal != "farmer-1" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if svc.Status() != StatusSuccess {
		t.Fatalf("expected success status, got %s", svc.Status())
	}
	if len(seen) != 1 || seen[0].Principal != "farmer-1" {
		t.Fatalf("subscriber not notified: %+v", seen)
	}
	if got := q.Drain(); len(got) != 0 {
		t.Fatalf("unexpected toasts %+v", got)
	}
	if _, err := st.Get(context.Background(), "sid-1"); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
}

func TestLogin_AlreadyAuthenticatedRetriesOnce(t *testing.T) {
	svc, p, q, _, _ := newTestService(t, domain.ErrAlreadyAuthenticated)

	sess, err := svc.Login(context.Background(), "farmer-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sess.Authenticated {
		t.Fatalf("expected authenticated session after retry")
	}
	if p.logins != 2 || p.logouts != 1 {
		t.Fatalf("expected one logout+retry cycle, got logins=%d logouts=%d", p.logins, p.logouts)
	}
	if got := q.Drain(); len(got) != 0 {
		t.Fatalf("unexpected toasts %+v", got)
	}
}

func TestLogin_SecondAlreadyAuthenticatedFailsWithToast(t *testing.T) {
	svc, p, q, _, _ := newTestService(t, domain.ErrAlreadyAuthenticated, domain.ErrAlreadyAuthenticated, domain.ErrAlreadyAuthenticated)

	_, err := svc.Login(context.Background(), "farmer-1")
	if !errors.Is(err, domain.ErrAlreadyAuthenticated) {
		t.Fatalf("expected already authenticated error, got %v", err)
	}
	if p.logins != 2 || p.logouts != 1 {
		t.Fatalf("expected exactly one retry, got logins=%d logouts=%d", p.logins, p.logouts)
	}
	if svc.Current().Authenticated {
		t.Fatalf("user must stay unauthenticated")
	}
	if svc.Status() != StatusLoginError {
		t.Fatalf("expected loginError status, got %s", svc.Status())
	}
	toasts := q.Drain()
	if len(toasts) != 1 || toasts[0].Level != notify.LevelError || toasts[0].Message != "Login failed. Please try again." {
		t.Fatalf("unexpected toasts %+v", toasts)
	}
}

func TestLogin_OtherFailureDoesNotRetry(t *testing.T) {
	svc, p, q, _, _ := newTestService(t, errors.New("popup closed"))

	if _, err := svc.Login(context.Background(), "farmer-1"); err == nil {
		t.Fatalf("expected error")
	}
	if p.logins != 1 || p.logouts != 0 {
		t.Fatalf("unexpected retry: logins=%d logouts=%d", p.logins, p.logouts)
	}
	if len(q.Drain()) != 1 {
		t.Fatalf("expected one failure toast")
	}
}

func TestLogin_RejectsDuplicateWhilePending(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	svc.status = StatusLoggingIn

	if _, err := svc.Login(context.Background(), "farmer-1"); !errors.Is(err, ErrLoginInProgress) {
		t.Fatalf("expected ErrLoginInProgress, got %v", err)
	}
}

func TestLogout_RefusedWhileLoginPending(t *testing.T) {
	svc, p, _, _, _ := newTestService(t)
	svc.mu.Lock()
	svc.status = StatusLoggingIn
	svc.mu.Unlock()

	if err := svc.Logout(context.Background()); !errors.Is(err, ErrLoginInProgress) {
		t.Fatalf("expected ErrLoginInProgress, got %v", err)
	}
	if svc.Status() != StatusLoggingIn {
		t.Fatalf("status changed to %s", svc.Status())
	}
	if p.logouts != 0 {
		t.Fatalf("provider logout called %d times", p.logouts)
	}
	if _, err := svc.Login(context.Background(), "farmer-2"); !errors.Is(err, ErrLoginInProgress) {
		t.Fatalf("second login admitted: %v", err)
	}
}

func TestLogout_ProfileRefetchedUnderNewIdentity(t *testing.T) {
	svc, _, _, c, st := newTestService(t)
	ctx := context.Background()
	key := query.Key{"currentUserProfile"}

	fetch := func(ctx context.Context) (*domain.UserProfile, error) {
		if svc.Principal() == "" {
			return nil, nil
		}
		return &domain.UserProfile{Username: svc.Principal(), Location: "Nakuru"}, nil
	}

	if _, err := svc.Login(ctx, "farmer-1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	p, err := query.Fetch(ctx, c, key, fetch)
	if err != nil || p == nil || p.Username != "farmer-1" {
		t.Fatalf("unexpected profile %+v (%v)", p, err)
	}

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if c.Has(key) {
		t.Fatalf("profile still cached after logout")
	}
	p, err = query.Fetch(ctx, c, key, fetch)
	if err != nil || p != nil {
		t.Fatalf("expected no profile after logout, got %+v (%v)", p, err)
	}
	if _, err := st.Get(ctx, "sid-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("persisted session not deleted: %v", err)
	}
	if svc.Status() != StatusIdle {
		t.Fatalf("expected idle status, got %s", svc.Status())
	}
}

func TestRestore(t *testing.T) {
	svc, _, _, _, st := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Restore(ctx)
	if err != nil || sess.Authenticated {
		t.Fatalf("expected empty restore, got %+v (%v)", sess, err)
	}

	d, err := identity.NewIssuer("test-secret").Sign("farmer-2", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := st.Save(ctx, sessionrepo.Record{ID: "sid-1", Principal: d.Principal, Token: d.Token, ExpiresAt: d.ExpiresAt}); err != nil {
		t.Fatalf("save: %v", err)
	}
	sess, err = svc.Restore(ctx)
	if err != nil || sess.Principal != "farmer-2" {
		t.Fatalf("unexpected restore %+v (%v)", sess, err)
	}
	if svc.Token() != d.Token {
		t.Fatalf("token not restored")
	}
}

func TestRestore_DropsForgedToken(t *testing.T) {
	svc, _, _, _, st := newTestService(t)
	ctx := context.Background()

	d, _ := identity.NewIssuer("someone-else").Sign("farmer-2", time.Hour)
	_ = st.Save(ctx, sessionrepo.Record{ID: "sid-1", Principal: d.Principal, Token: d.Token, ExpiresAt: d.ExpiresAt})

	sess, err := svc.Restore(ctx)
	if err != nil || sess.Authenticated {
		t.Fatalf("forged token restored: %+v (%v)", sess, err)
	}
	if _, err := st.Get(ctx, "sid-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("forged record not deleted")
	}
}

func TestCurrent_ExpiredIsLoggedOut(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	if _, err := svc.Login(context.Background(), "farmer-1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if svc.Current().Authenticated {
		t.Fatalf("expired session reported authenticated")
	}
	if _, err := svc.Require(); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
