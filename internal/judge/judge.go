// Package judge defines the contract every remote judge client implements
// and the shared types that flow through it.
package judge

import (
	"context"
	"net/http"
	"time"
)

// ProblemID identifies a problem on a specific judge.
type ProblemID struct {
	Judge string `json:"judge"`
	Code  string `json:"code"`
}

func (p ProblemID) String() string {
	return p.Judge + "/" + p.Code
}

// Language identifies the submission language as the judge names it.
type Language string

// SourceArtifact references the local solution to upload.
type SourceArtifact struct {
	Path     string
	Language Language
}

// Credential holds judge account secret material. It lives for the
// process lifetime and is never persisted.
type Credential struct {
	Username string
	Secret   string
}

// String redacts the secret so a Credential can never leak through logs.
func (c Credential) String() string {
	return c.Username + ":[redacted]"
}

// Session is an authenticated handle to a judge. A Session belongs to
// exactly one (judge, account) pair and is owned by the session manager;
// callers must not share it across accounts.
type Session struct {
	Judge     string
	Account   string
	Jar       http.CookieJar // cookie-based judges
	Token     string         // bearer-token judges
	CSRFToken string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Live reports whether the session is still usable at the given instant.
// A zero ExpiresAt means the judge gave no expiry hint; the session is
// assumed live until an operation fails with an auth error.
func (s *Session) Live(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// RawStatus is one judge-specific status payload, untouched except for
// field extraction. The normalizer turns it into a canonical verdict.
type RawStatus struct {
	Judge        string
	SubmissionID string
	Payload      []byte
	Fields       map[string]string
}

// Client is implemented once per judge. All methods perform network I/O
// and mutate nothing outside the Session passed in. New judges are added
// by adding implementations; shared logic never branches on judge name.
type Client interface {
	// Name returns the judge identifier used in ProblemID.Judge.
	Name() string

	// Authenticate logs in and returns a fresh Session.
	Authenticate(ctx context.Context, cred Credential) (*Session, error)

	// Submit uploads the artifact and returns the judge-assigned
	// submission id.
	Submit(ctx context.Context, sess *Session, problem ProblemID, artifact SourceArtifact) (string, error)

	// FetchStatus retrieves the current judge-specific status payload
	// for a submission. Safe to call repeatedly.
	FetchStatus(ctx context.Context, sess *Session, submissionID string) (RawStatus, error)
}
