package uhunt_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/js-808/cc-cli/internal/judge"
	"github.com/js-808/cc-cli/internal/judge/uhunt"
	appErr "github.com/js-808/cc-cli/pkg/errors"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": exp.Unix(),
	}).SignedString([]byte("judge-side-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

type fakeUhunt struct {
	mux      *http.ServeMux
	token    string
	verdict  int
	subsCode int
}

func newFakeUhunt(t *testing.T, tokenExp time.Time) (*fakeUhunt, *uhunt.Client) {
	t.Helper()
	f := &fakeUhunt{
		mux:      http.NewServeMux(),
		token:    signedToken(t, tokenExp),
		verdict:  90,
		subsCode: http.StatusOK,
	}

	f.mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": f.token})
	})
	f.mux.HandleFunc("POST /api/submit", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			Problem  string `json:"problem"`
			Language string `json:"language"`
			Source   string `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Source == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case req.Problem == "99999":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no such problem"})
		case req.Language == "COBOL":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "language not accepted"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]int64{"submission_id": 30042177})
		}
	})
	f.mux.HandleFunc("GET /api/subs/30042177", func(w http.ResponseWriter, r *http.Request) {
		if f.subsCode != http.StatusOK {
			w.WriteHeader(f.subsCode)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sid": 30042177, "ver": f.verdict, "run": 120, "mem": 2048,
		})
	})

	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)
	return f, uhunt.New(uhunt.Config{BaseURL: srv.URL})
}

func apiLogin(t *testing.T, client *uhunt.Client) *judge.Session {
	t.Helper()
	sess, err := client.Authenticate(context.Background(), judge.Credential{
		Username: "alice",
		Secret:   "hunter2",
	})
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	return sess
}

func writeSolution(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.cpp")
	if err := os.WriteFile(path, []byte("int main(){return 0;}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAuthenticateSeedsExpiryFromToken(t *testing.T) {
	t.Parallel()
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	_, client := newFakeUhunt(t, exp)

	sess := apiLogin(t, client)
	if sess.Judge != "uva" {
		t.Fatalf("expected judge uva, got %s", sess.Judge)
	}
	if sess.Token == "" {
		t.Fatal("session must carry the bearer token")
	}
	if !sess.ExpiresAt.Equal(exp) {
		t.Fatalf("expected expiry %s from the token, got %s", exp, sess.ExpiresAt)
	}
}

func TestAuthenticateRejected(t *testing.T) {
	t.Parallel()
	_, client := newFakeUhunt(t, time.Now().Add(time.Hour))

	_, err := client.Authenticate(context.Background(), judge.Credential{
		Username: "alice",
		Secret:   "wrong",
	})
	if code := appErr.GetCode(err); code != appErr.CredentialsRejected {
		t.Fatalf("expected CredentialsRejected, got %v", err)
	}
}

func TestSubmitReturnsID(t *testing.T) {
	t.Parallel()
	_, client := newFakeUhunt(t, time.Now().Add(time.Hour))
	sess := apiLogin(t, client)

	id, err := client.Submit(context.Background(), sess,
		judge.ProblemID{Judge: "uva", Code: "100"},
		judge.SourceArtifact{Path: writeSolution(t), Language: "C++"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if id != "30042177" {
		t.Fatalf("expected id 30042177, got %q", id)
	}
}

func TestSubmitErrorClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		problem  string
		language judge.Language
		token    string
		want     appErr.ErrorCode
	}{
		{name: "unknown problem", problem: "99999", language: "C++", want: appErr.ProblemUnknown},
		{name: "unsupported language", problem: "100", language: "COBOL", want: appErr.LanguageNotSupported},
		{name: "stale token", problem: "100", language: "C++", token: "stale", want: appErr.SessionExpired},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, client := newFakeUhunt(t, time.Now().Add(time.Hour))
			sess := apiLogin(t, client)
			if tt.token != "" {
				sess.Token = tt.token
			}

			_, err := client.Submit(context.Background(), sess,
				judge.ProblemID{Judge: "uva", Code: tt.problem},
				judge.SourceArtifact{Path: writeSolution(t), Language: tt.language})
			if code := appErr.GetCode(err); code != tt.want {
				t.Fatalf("expected code %d, got %v", tt.want, err)
			}
		})
	}
}

func TestFetchStatusFields(t *testing.T) {
	t.Parallel()
	f, client := newFakeUhunt(t, time.Now().Add(time.Hour))
	sess := apiLogin(t, client)
	f.verdict = 70

	raw, err := client.FetchStatus(context.Background(), sess, "30042177")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if raw.Fields["ver"] != "70" {
		t.Fatalf("verdict code not extracted: %v", raw.Fields)
	}
	if raw.Fields["cpu_ms"] != "120" || raw.Fields["memory_kb"] != "2048" {
		t.Fatalf("resource fields not extracted: %v", raw.Fields)
	}
	if len(raw.Payload) == 0 {
		t.Fatal("raw payload must be preserved")
	}
}

func TestFetchStatusErrorClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		want   appErr.ErrorCode
	}{
		{name: "not found", status: http.StatusNotFound, want: appErr.SubmissionUnknown},
		{name: "unauthorized", status: http.StatusUnauthorized, want: appErr.SessionExpired},
		{name: "rate limited", status: http.StatusTooManyRequests, want: appErr.PollRateLimited},
		{name: "server error", status: http.StatusInternalServerError, want: appErr.PollBadGateway},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, client := newFakeUhunt(t, time.Now().Add(time.Hour))
			sess := apiLogin(t, client)
			f.subsCode = tt.status

			_, err := client.FetchStatus(context.Background(), sess, "30042177")
			if code := appErr.GetCode(err); code != tt.want {
				t.Fatalf("expected code %d, got %v", tt.want, err)
			}
		})
	}
}
