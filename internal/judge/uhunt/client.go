// Package uhunt implements the judge client for UVA through its uHunt
// API surface: a JSON token exchange for login, JSON submission upload
// and a JSON status endpoint keyed by numeric verdict codes.
package uhunt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/js-808/cc-cli/internal/judge"
	appErr "github.com/js-808/cc-cli/pkg/errors"
)

const (
	defaultBaseURL = "https://uhunt.onlinejudge.org"
	defaultTimeout = 30 * time.Second

	loginPath  = "/api/login"
	submitPath = "/api/submit"
	statusPath = "/api/subs"
)

// Config holds the wire-level knobs for the uHunt client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

func (c Config) defaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = "cc-cli"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Client talks to one uHunt endpoint.
type Client struct {
	cfg   Config
	httpc *http.Client
}

func New(cfg Config) *Client {
	cfg = cfg.defaults()
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "uva" }

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

// Authenticate exchanges credentials for a bearer token. The token is a
// JWT; its exp claim seeds the session expiry estimate. The signature is
// the judge's business, so the claim is read without verification.
func (c *Client) Authenticate(ctx context.Context, cred judge.Credential) (*judge.Session, error) {
	body, err := json.Marshal(loginRequest{Username: cred.Username, Password: cred.Secret})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.InternalError)
	}

	status, payload, err := c.doJSON(ctx, http.MethodPost, loginPath, "", body)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.AuthUnreachable, "login request failed")
	}

	var lr loginResponse
	if jsonErr := json.Unmarshal(payload, &lr); jsonErr != nil && status == http.StatusOK {
		return nil, appErr.Wrapf(jsonErr, appErr.AuthUnreachable, "malformed login response")
	}
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return nil, appErr.AuthError(c.Name(), lr.Error)
	case status != http.StatusOK:
		return nil, appErr.Newf(appErr.AuthUnreachable, "login returned status %d", status)
	case lr.AccessToken == "":
		return nil, appErr.New(appErr.TokenExtractFailed)
	}

	now := time.Now()
	sess := &judge.Session{
		Judge:     c.Name(),
		Account:   cred.Username,
		Token:     lr.AccessToken,
		CreatedAt: now,
	}
	if exp := tokenExpiry(lr.AccessToken); !exp.IsZero() {
		sess.ExpiresAt = exp
	}
	return sess, nil
}

type submitRequest struct {
	Problem  string `json:"problem"`
	Language string `json:"language"`
	Source   string `json:"source"`
}

type submitResponse struct {
	SubmissionID int64  `json:"submission_id"`
	Error        string `json:"error"`
}

// Submit uploads the source through the API and returns the judge-assigned
// submission id.
func (c *Client) Submit(ctx context.Context, sess *judge.Session, problem judge.ProblemID, artifact judge.SourceArtifact) (string, error) {
	source, err := os.ReadFile(artifact.Path)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.ArtifactInvalid, "read solution failed")
	}
	body, err := json.Marshal(submitRequest{
		Problem:  problem.Code,
		Language: string(artifact.Language),
		Source:   string(source),
	})
	if err != nil {
		return "", appErr.Wrap(err, appErr.InternalError)
	}

	status, payload, err := c.doJSON(ctx, http.MethodPost, submitPath, sess.Token, body)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.UploadRejected, "submit request failed")
	}

	var sr submitResponse
	_ = json.Unmarshal(payload, &sr)
	switch status {
	case http.StatusOK, http.StatusCreated:
		if sr.SubmissionID <= 0 {
			return "", appErr.SubmissionError(appErr.UploadRejected, sr.Error)
		}
		return strconv.FormatInt(sr.SubmissionID, 10), nil
	case http.StatusUnauthorized:
		return "", appErr.New(appErr.SessionExpired)
	case http.StatusNotFound:
		return "", appErr.SubmissionError(appErr.ProblemUnknown, sr.Error)
	case http.StatusUnprocessableEntity:
		return "", appErr.SubmissionError(appErr.LanguageNotSupported, sr.Error)
	default:
		return "", appErr.SubmissionError(appErr.UploadRejected,
			fmt.Sprintf("status %d: %s", status, sr.Error))
	}
}

type statusResponse struct {
	SubmissionID int64  `json:"sid"`
	Verdict      int    `json:"ver"`
	RuntimeMs    int64  `json:"run"`
	MemoryKB     int64  `json:"mem"`
	Rank         int    `json:"rank"`
	Error        string `json:"error"`
}

// FetchStatus polls the API for the submission's current verdict code.
func (c *Client) FetchStatus(ctx context.Context, sess *judge.Session, submissionID string) (judge.RawStatus, error) {
	raw := judge.RawStatus{Judge: c.Name(), SubmissionID: submissionID}

	status, payload, err := c.doJSON(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s", statusPath, submissionID), sess.Token, nil)
	if err != nil {
		return raw, appErr.TransientPoll(err)
	}
	raw.Payload = payload

	switch {
	case status == http.StatusNotFound:
		return raw, appErr.New(appErr.SubmissionUnknown).WithDetail("submission_id", submissionID)
	case status == http.StatusUnauthorized:
		return raw, appErr.New(appErr.SessionExpired)
	case status == http.StatusTooManyRequests:
		return raw, appErr.New(appErr.PollRateLimited)
	case status >= http.StatusInternalServerError:
		return raw, appErr.New(appErr.PollBadGateway)
	case status != http.StatusOK:
		return raw, appErr.TransientPoll(fmt.Errorf("unexpected status %d", status))
	}

	var st statusResponse
	if jsonErr := json.Unmarshal(payload, &st); jsonErr != nil {
		return raw, appErr.TransientPoll(jsonErr)
	}
	raw.Fields = map[string]string{
		"ver":       strconv.Itoa(st.Verdict),
		"cpu_ms":    strconv.FormatInt(st.RuntimeMs, 10),
		"memory_kb": strconv.FormatInt(st.MemoryKB, 10),
	}
	return raw, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, payload, nil
}

// tokenExpiry reads the exp claim from a JWT without verifying it.
func tokenExpiry(token string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
