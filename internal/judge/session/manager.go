// Package session owns authenticated judge sessions: one live session per
// (judge, account) pair, created lazily and refreshed on expiry.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/js-808/cc-cli/internal/judge"
	appErr "github.com/js-808/cc-cli/pkg/errors"
	"github.com/js-808/cc-cli/pkg/utils/logger"
)

// CredentialSource resolves the secret material for a (judge, account)
// pair. Credentials stay in the source; the manager holds only sessions.
type CredentialSource func(judgeName, account string) (judge.Credential, error)

// Manager caches sessions and serializes all use of one account's
// session. Judges reject overlapping requests on one cookie/token, so
// serialization covers session use, not only creation.
type Manager struct {
	clients map[string]judge.Client
	creds   CredentialSource
	now     func() time.Time

	mu      sync.Mutex
	entries map[pairKey]*entry
	group   singleflight.Group
}

type pairKey struct {
	judge   string
	account string
}

type entry struct {
	useMu   sync.Mutex // serializes network calls on this pair's session
	mu      sync.Mutex // guards session pointer
	session *judge.Session
}

// NewManager builds a Manager over the given judge clients.
func NewManager(clients []judge.Client, creds CredentialSource) *Manager {
	byName := make(map[string]judge.Client, len(clients))
	for _, c := range clients {
		byName[c.Name()] = c
	}
	return &Manager{
		clients: byName,
		creds:   creds,
		now:     time.Now,
		entries: make(map[pairKey]*entry),
	}
}

// Acquire returns the cached live session for the pair, or authenticates.
// Concurrent callers for the same pair share one authentication attempt.
func (m *Manager) Acquire(ctx context.Context, judgeName, account string) (*judge.Session, error) {
	e := m.entry(judgeName, account)

	e.mu.Lock()
	if e.session != nil && e.session.Live(m.now()) {
		sess := e.session
		e.mu.Unlock()
		return sess, nil
	}
	e.mu.Unlock()

	key := judgeName + "\x00" + account
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		// A waiter may arrive after the winner already stored a session.
		e.mu.Lock()
		if e.session != nil && e.session.Live(m.now()) {
			sess := e.session
			e.mu.Unlock()
			return sess, nil
		}
		e.mu.Unlock()

		sess, err := m.authenticate(ctx, judgeName, account)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.session = sess
		e.mu.Unlock()
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*judge.Session), nil
}

// Invalidate drops the cached session so the next Acquire re-authenticates.
func (m *Manager) Invalidate(judgeName, account string) {
	e := m.entry(judgeName, account)
	e.mu.Lock()
	e.session = nil
	e.mu.Unlock()
}

// WithSession runs fn under the pair's use lock with a live session. If fn
// fails with an auth-coded error (stale anti-forgery token, expired
// session) the manager re-authenticates once and retries fn transparently
// before surfacing the failure.
func (m *Manager) WithSession(ctx context.Context, judgeName, account string, fn func(*judge.Session) error) error {
	e := m.entry(judgeName, account)
	e.useMu.Lock()
	defer e.useMu.Unlock()

	sess, err := m.Acquire(ctx, judgeName, account)
	if err != nil {
		return err
	}

	err = fn(sess)
	if err == nil || !appErr.GetCode(err).IsAuth() {
		return err
	}

	logger.Warn(ctx, "session rejected, re-authenticating once",
		zap.String("judge", judgeName), zap.String("account", account))
	m.Invalidate(judgeName, account)
	sess, acqErr := m.Acquire(ctx, judgeName, account)
	if acqErr != nil {
		return acqErr
	}
	return fn(sess)
}

// Client returns the judge client registered under the given name.
func (m *Manager) Client(judgeName string) (judge.Client, error) {
	c, ok := m.clients[judgeName]
	if !ok {
		return nil, appErr.New(appErr.JudgeUnsupported).WithDetail("judge", judgeName)
	}
	return c, nil
}

func (m *Manager) entry(judgeName, account string) *entry {
	key := pairKey{judge: judgeName, account: account}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	return e
}

// authenticate performs the login with at most one retry. Further retries
// are avoided so repeated bad credentials cannot trip account lockout.
func (m *Manager) authenticate(ctx context.Context, judgeName, account string) (*judge.Session, error) {
	client, err := m.Client(judgeName)
	if err != nil {
		return nil, err
	}
	cred, err := m.creds(judgeName, account)
	if err != nil {
		return nil, err
	}

	sess, err := client.Authenticate(ctx, cred)
	if err == nil {
		logger.Info(ctx, "authenticated",
			zap.String("judge", judgeName), zap.String("account", account))
		return sess, nil
	}
	if ctx.Err() != nil {
		return nil, appErr.Wrap(ctx.Err(), appErr.Canceled)
	}

	logger.Warn(ctx, "authentication failed, retrying once",
		zap.String("judge", judgeName), zap.Error(err))
	sess, retryErr := client.Authenticate(ctx, cred)
	if retryErr != nil {
		return nil, retryErr
	}
	return sess, nil
}
