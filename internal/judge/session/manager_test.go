package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/js-808/cc-cli/internal/judge"
	"github.com/js-808/cc-cli/internal/judge/session"
	appErr "github.com/js-808/cc-cli/pkg/errors"
)

type fakeClient struct {
	name     string
	attempts atomic.Int64
	failN    int64 // first failN Authenticate calls fail
	delay    time.Duration
	ttl      time.Duration
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Authenticate(ctx context.Context, cred judge.Credential) (*judge.Session, error) {
	n := f.attempts.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if n <= f.failN {
		return nil, appErr.AuthError(f.name, "bad credentials")
	}
	sess := &judge.Session{Judge: f.name, Account: cred.Username, CreatedAt: time.Now()}
	if f.ttl > 0 {
		sess.ExpiresAt = time.Now().Add(f.ttl)
	}
	return sess, nil
}

func (f *fakeClient) Submit(ctx context.Context, sess *judge.Session, p judge.ProblemID, a judge.SourceArtifact) (string, error) {
	return "", nil
}

func (f *fakeClient) FetchStatus(ctx context.Context, sess *judge.Session, id string) (judge.RawStatus, error) {
	return judge.RawStatus{}, nil
}

func creds(judgeName, account string) (judge.Credential, error) {
	return judge.Credential{Username: account, Secret: "secret"}, nil
}

func TestAcquireConcurrentSingleAuth(t *testing.T) {
	t.Parallel()
	client := &fakeClient{name: "kattis", delay: 20 * time.Millisecond}
	mgr := session.NewManager([]judge.Client{client}, creds)

	const callers = 8
	sessions := make([]*judge.Session, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := mgr.Acquire(context.Background(), "kattis", "alice")
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			sessions[i] = sess
		}()
	}
	wg.Wait()

	if got := client.attempts.Load(); got != 1 {
		t.Fatalf("expected exactly 1 authentication attempt, got %d", got)
	}
	for i := 1; i < callers; i++ {
		if sessions[i] != sessions[0] {
			t.Fatal("concurrent callers must share the same session")
		}
	}
}

func TestAcquireCachesLiveSession(t *testing.T) {
	t.Parallel()
	client := &fakeClient{name: "kattis", ttl: time.Hour}
	mgr := session.NewManager([]judge.Client{client}, creds)

	first, err := mgr.Acquire(context.Background(), "kattis", "alice")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	second, err := mgr.Acquire(context.Background(), "kattis", "alice")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if first != second {
		t.Fatal("expected cached session")
	}
	if client.attempts.Load() != 1 {
		t.Fatalf("expected 1 attempt, got %d", client.attempts.Load())
	}
}

func TestAcquireRetriesOnce(t *testing.T) {
	t.Parallel()
	t.Run("second-attempt-succeeds", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{name: "kattis", failN: 1}
		mgr := session.NewManager([]judge.Client{client}, creds)
		if _, err := mgr.Acquire(context.Background(), "kattis", "alice"); err != nil {
			t.Fatalf("expected success after one retry, got %v", err)
		}
		if client.attempts.Load() != 2 {
			t.Fatalf("expected 2 attempts, got %d", client.attempts.Load())
		}
	})

	t.Run("both-attempts-fail", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{name: "kattis", failN: 10}
		mgr := session.NewManager([]judge.Client{client}, creds)
		_, err := mgr.Acquire(context.Background(), "kattis", "alice")
		if err == nil {
			t.Fatal("expected auth error")
		}
		if !appErr.GetCode(err).IsAuth() {
			t.Fatalf("expected auth-coded error, got %v", err)
		}
		// One retry, never more: repeated logins risk account lockout.
		if client.attempts.Load() != 2 {
			t.Fatalf("expected 2 attempts, got %d", client.attempts.Load())
		}
	})
}

func TestInvalidateForcesReauth(t *testing.T) {
	t.Parallel()
	client := &fakeClient{name: "kattis", ttl: time.Hour}
	mgr := session.NewManager([]judge.Client{client}, creds)

	if _, err := mgr.Acquire(context.Background(), "kattis", "alice"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	mgr.Invalidate("kattis", "alice")
	if _, err := mgr.Acquire(context.Background(), "kattis", "alice"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if client.attempts.Load() != 2 {
		t.Fatalf("expected re-authentication after invalidate, got %d attempts", client.attempts.Load())
	}
}

func TestSessionsNotSharedAcrossAccounts(t *testing.T) {
	t.Parallel()
	client := &fakeClient{name: "kattis", ttl: time.Hour}
	mgr := session.NewManager([]judge.Client{client}, creds)

	alice, err := mgr.Acquire(context.Background(), "kattis", "alice")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	bob, err := mgr.Acquire(context.Background(), "kattis", "bob")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if alice == bob {
		t.Fatal("accounts must not share a session")
	}
	if alice.Account != "alice" || bob.Account != "bob" {
		t.Fatalf("session accounts wrong: %s, %s", alice.Account, bob.Account)
	}
}

func TestWithSessionRetriesStaleToken(t *testing.T) {
	t.Parallel()
	client := &fakeClient{name: "kattis", ttl: time.Hour}
	mgr := session.NewManager([]judge.Client{client}, creds)

	calls := 0
	err := mgr.WithSession(context.Background(), "kattis", "alice", func(sess *judge.Session) error {
		calls++
		if calls == 1 {
			return appErr.New(appErr.StaleForgeryToken)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected transparent retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected fn to run twice, got %d", calls)
	}
	// The stale session was dropped and a fresh login happened.
	if client.attempts.Load() != 2 {
		t.Fatalf("expected 2 authentications, got %d", client.attempts.Load())
	}
}

func TestWithSessionNoRetryOnOtherErrors(t *testing.T) {
	t.Parallel()
	client := &fakeClient{name: "kattis", ttl: time.Hour}
	mgr := session.NewManager([]judge.Client{client}, creds)

	calls := 0
	err := mgr.WithSession(context.Background(), "kattis", "alice", func(sess *judge.Session) error {
		calls++
		return appErr.New(appErr.ProblemUnknown)
	})
	if !appErr.Is(err, appErr.ProblemUnknown) {
		t.Fatalf("expected ProblemUnknown, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestClientUnknownJudge(t *testing.T) {
	t.Parallel()
	mgr := session.NewManager(nil, creds)
	if _, err := mgr.Client("codeforces"); !appErr.Is(err, appErr.JudgeUnsupported) {
		t.Fatalf("expected JudgeUnsupported, got %v", err)
	}
}
