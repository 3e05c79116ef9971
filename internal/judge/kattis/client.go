// Package kattis implements the judge client for Kattis, which speaks a
// form-based HTML protocol: cookie session, hidden CSRF fields, multipart
// submission upload and an HTML status page.
package kattis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/js-808/cc-cli/internal/judge"
	appErr "github.com/js-808/cc-cli/pkg/errors"
)

const (
	defaultBaseURL    = "https://open.kattis.com"
	defaultTimeout    = 30 * time.Second
	defaultSessionTTL = time.Hour

	loginPath  = "/login/email"
	submitPath = "/submit"
)

var submissionIDRe = regexp.MustCompile(`/submissions/(\d+)`)

// Config holds the wire-level knobs for the Kattis client. The protocol is
// judge-owned and versioned outside this system; paths and field names
// here track what the site serves today.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	SessionTTL time.Duration
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
	if c.SessionTTL <= 0 {
		// Kattis gives no expiry hint; assume an hour and let auth
		// failures refresh earlier.
		c.SessionTTL = defaultSessionTTL
	}
	return c
}

// Client talks to one Kattis instance.
type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg.defaults()}
}

func (c *Client) Name() string { return "kattis" }

// Authenticate performs the email/password form login and returns a
// cookie-jar session carrying the CSRF token of the login page.
func (c *Client) Authenticate(ctx context.Context, cred judge.Credential) (*judge.Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.InternalError)
	}
	httpc := c.httpClient(jar)

	body, _, err := c.get(ctx, httpc, loginPath)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.AuthUnreachable, "fetch login page failed")
	}
	token, err := extractCSRFToken(body)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"user":       {cred.Username},
		"password":   {cred.Secret},
		"csrf_token": {token},
		"submit":     {"Submit"},
	}
	respBody, status, final, err := c.postForm(ctx, httpc, loginPath, form)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.AuthUnreachable, "login request failed")
	}
	// A successful login redirects away from the login page.
	if strings.Contains(final.Path, loginPath) || status == http.StatusForbidden {
		return nil, appErr.AuthError(c.Name(), rejectionBody(respBody))
	}

	now := time.Now()
	return &judge.Session{
		Judge:     c.Name(),
		Account:   cred.Username,
		Jar:       jar,
		CSRFToken: token,
		CreatedAt: now,
		ExpiresAt: now.Add(c.cfg.SessionTTL),
	}, nil
}

// Submit uploads the source file as a multipart form and returns the
// submission id from the redirect target.
func (c *Client) Submit(ctx context.Context, sess *judge.Session, problem judge.ProblemID, artifact judge.SourceArtifact) (string, error) {
	httpc := c.httpClient(sess.Jar)

	// The submit page serves a fresh CSRF token per view.
	page, status, err := c.get(ctx, httpc, submitPath)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.PollTransient, "fetch submit page failed")
	}
	if status == http.StatusForbidden || strings.Contains(string(page), "Please log in") {
		return "", appErr.New(appErr.SessionExpired)
	}
	token, err := extractCSRFToken(page)
	if err != nil {
		return "", err
	}

	source, err := os.ReadFile(artifact.Path)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.ArtifactInvalid, "read solution failed")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"csrf_token": token,
		"problem":    problem.Code,
		"language":   string(artifact.Language),
		"submit":     "true",
		"script":     "true",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", appErr.Wrap(err, appErr.InternalError)
		}
	}
	part, err := w.CreateFormFile("sub_file[]", filepath.Base(artifact.Path))
	if err != nil {
		return "", appErr.Wrap(err, appErr.InternalError)
	}
	if _, err := part.Write(source); err != nil {
		return "", appErr.Wrap(err, appErr.InternalError)
	}
	if err := w.Close(); err != nil {
		return "", appErr.Wrap(err, appErr.InternalError)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+submitPath, &buf)
	if err != nil {
		return "", appErr.Wrap(err, appErr.InternalError)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httpc.Do(req)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.UploadRejected, "submit request failed")
	}
	defer func() { _ = resp.Body.Close() }()
	payload, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusForbidden:
		// Tokens on the submit form are short-lived; the session layer
		// retries once after re-authentication.
		return "", appErr.New(appErr.StaleForgeryToken)
	case resp.StatusCode >= http.StatusBadRequest:
		return "", c.classifyRejection(resp.StatusCode, payload)
	}

	if m := submissionIDRe.FindStringSubmatch(resp.Request.URL.Path); m != nil {
		return m[1], nil
	}
	if m := submissionIDRe.FindSubmatch(payload); m != nil {
		return string(m[1]), nil
	}
	return "", appErr.SubmissionError(appErr.UploadRejected, rejectionBody(payload))
}

// FetchStatus retrieves and scrapes the submission status page.
func (c *Client) FetchStatus(ctx context.Context, sess *judge.Session, submissionID string) (judge.RawStatus, error) {
	raw := judge.RawStatus{Judge: c.Name(), SubmissionID: submissionID}
	httpc := c.httpClient(sess.Jar)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/submissions/%s", c.cfg.BaseURL, submissionID), nil)
	if err != nil {
		return raw, appErr.Wrap(err, appErr.InternalError)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httpc.Do(req)
	if err != nil {
		return raw, appErr.TransientPoll(err)
	}
	defer func() { _ = resp.Body.Close() }()
	payload, _ := io.ReadAll(resp.Body)
	raw.Payload = payload

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return raw, appErr.New(appErr.SubmissionUnknown).WithDetail("submission_id", submissionID)
	case resp.StatusCode == http.StatusTooManyRequests:
		return raw, appErr.New(appErr.PollRateLimited)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return raw, appErr.New(appErr.SessionExpired)
	case resp.StatusCode >= http.StatusInternalServerError:
		return raw, appErr.New(appErr.PollBadGateway)
	case resp.StatusCode != http.StatusOK:
		return raw, appErr.TransientPoll(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	raw.Fields = scrapeStatusFields(payload)
	return raw, nil
}

func (c *Client) httpClient(jar http.CookieJar) *http.Client {
	return &http.Client{Jar: jar, Timeout: c.cfg.Timeout}
}

func (c *Client) get(ctx context.Context, httpc *http.Client, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	return body, resp.StatusCode, err
}

// postForm posts a urlencoded form and returns the response body, status
// and the URL the client ended on after redirects.
func (c *Client) postForm(ctx context.Context, httpc *http.Client, path string, form url.Values) ([]byte, int, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return body, resp.StatusCode, resp.Request.URL, nil
}

func (c *Client) classifyRejection(status int, payload []byte) error {
	body := string(payload)
	switch {
	case strings.Contains(body, "Problem not found"):
		return appErr.SubmissionError(appErr.ProblemUnknown, rejectionBody(payload))
	case strings.Contains(body, "language"):
		return appErr.SubmissionError(appErr.LanguageNotSupported, rejectionBody(payload))
	default:
		return appErr.SubmissionError(appErr.UploadRejected,
			fmt.Sprintf("status %d: %s", status, rejectionBody(payload)))
	}
}

// rejectionBody keeps the judge's reason verbatim but bounded.
func rejectionBody(payload []byte) string {
	const max = 512
	s := strings.TrimSpace(string(payload))
	if len(s) > max {
		s = s[:max]
	}
	return s
}
