package proxy

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n0madic/go-lanbridge/internal/config"
)

// upstreamCall is one request seen by the fake upstream.
type upstreamCall struct {
	Body   []byte
	Header http.Header
}

// fakeUpstream records every request and answers with handler.
type fakeUpstream struct {
	mu      sync.Mutex
	calls   []upstreamCall
	handler http.HandlerFunc
	srv     *httptest.Server
}

func newFakeUpstream(t *testing.T, handler http.HandlerFunc) *fakeUpstream {
	t.Helper()
	up := &fakeUpstream{handler: handler}
	up.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		up.mu.Lock()
		up.calls = append(up.calls, upstreamCall{Body: body, Header: r.Header.Clone()})
		up.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		up.handler(w, r)
	}))
	t.Cleanup(up.srv.Close)
	return up
}

func (u *fakeUpstream) Calls() []upstreamCall {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]upstreamCall(nil), u.calls...)
}

func (u *fakeUpstream) lastCall(t *testing.T) upstreamCall {
	t.Helper()
	calls := u.Calls()
	require.NotEmpty(t, calls, "expected an upstream call")
	return calls[len(calls)-1]
}

func jsonReply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newBridge starts a bridge pointed at upstreamURL with env credentials.
func newBridge(t *testing.T, upstreamURL string, mutate func(*config.ServerConfig)) *httptest.Server {
	t.Helper()
	t.Setenv("CHATGPT_ACCESS_TOKEN", "test-access-token")
	t.Setenv("CHATGPT_ACCOUNT_ID", "acct_test")
	t.Setenv("CODEX_INTERNAL_ORIGINATOR_OVERRIDE", "")

	cfg := config.Default()
	cfg.CodexHome = t.TempDir()
	cfg.UpstreamURL = upstreamURL
	if mutate != nil {
		mutate(cfg)
	}
	srv := httptest.NewServer(New(cfg, testLogger(t)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postBridge(t *testing.T, srv *httptest.Server, path string, body []byte, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "post %s", path)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func writeAuthFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.json"), []byte(content), 0o600))
}
