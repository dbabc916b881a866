package devserver_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/devserver"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newServer(t *testing.T) (*devserver.Server, *mocks.MockLogger) {
	t.Helper()
	log := mocks.NewMockLogger(gomock.NewController(t))
	return devserver.New(log), log
}

func upstream(t *testing.T, handler http.HandlerFunc) *url.URL {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return u
}

func frontEnd(t *testing.T, s *devserver.Server, cfg ports.DevServerConfig) *httptest.Server {
	t.Helper()
	handler, err := s.Handler(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, rawURL string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(rawURL) //nolint:noctx // test helper
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHandler_ProxiesAndInjectsIntoHTML(t *testing.T) {
	var gotPath, gotEncoding, gotForwarded string
	up := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotEncoding = r.Header.Get("Accept-Encoding")
		gotForwarded = r.Header.Get("X-Forwarded-Host")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><body><h1>hi</h1></body></html>")
	})

	s, _ := newServer(t)
	srv := frontEnd(t, s, ports.DevServerConfig{Upstream: up, AssetsPrefix: "/dist", DestRoot: t.TempDir(), LiveReload: true})

	resp, body := get(t, srv.URL+"/page?id=1")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/page?id=1", gotPath)
	assert.Equal(t, "identity", gotEncoding)
	assert.NotEmpty(t, gotForwarded)
	assert.Equal(t, `<html><body><h1>hi</h1><script src="/__kiln/livereload.js"></script></body></html>`, body)
	assert.Equal(t, int64(len(body)), resp.ContentLength)
}

func TestHandler_LeavesNonHTMLUntouched(t *testing.T) {
	up := upstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"body":"</body>"}`)
	})

	s, _ := newServer(t)
	srv := frontEnd(t, s, ports.DevServerConfig{Upstream: up, AssetsPrefix: "/dist", DestRoot: t.TempDir(), LiveReload: true})

	_, body := get(t, srv.URL+"/api")
	assert.JSONEq(t, `{"body":"</body>"}`, body)
}

func TestHandler_NoInjectionWithoutLiveReload(t *testing.T) {
	up := upstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<body></body>")
	})

	s, _ := newServer(t)
	srv := frontEnd(t, s, ports.DevServerConfig{Upstream: up, AssetsPrefix: "/dist", DestRoot: t.TempDir()})

	_, body := get(t, srv.URL+"/")
	assert.Equal(t, "<body></body>", body)

	resp, _ := get(t, srv.URL+"/__kiln/livereload.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "without live reload the path is proxied")
}

func TestHandler_ServesAssetsFromDestRoot(t *testing.T) {
	proxied := false
	up := upstream(t, func(w http.ResponseWriter, _ *http.Request) {
		proxied = true
		w.WriteHeader(http.StatusTeapot)
	})

	dest := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "css"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "css", "main.css"), []byte("a{}"), 0o600))

	s, _ := newServer(t)
	srv := frontEnd(t, s, ports.DevServerConfig{Upstream: up, AssetsPrefix: "/dist", DestRoot: dest, LiveReload: true})

	resp, body := get(t, srv.URL+"/dist/css/main.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a{}", body)
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	resp, _ = get(t, srv.URL+"/dist/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, proxied, "asset requests must not reach the upstream")
}

func TestHandler_UpstreamDown(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	dead, err := url.Parse(closed.URL)
	require.NoError(t, err)
	closed.Close()

	s, log := newServer(t)
	log.EXPECT().Warn(gomock.Any()).Times(1)
	srv := frontEnd(t, s, ports.DevServerConfig{Upstream: dead, AssetsPrefix: "/dist", DestRoot: t.TempDir()})

	resp, _ := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHandler_RequiresUpstream(t *testing.T) {
	s, _ := newServer(t)
	_, err := s.Handler(ports.DevServerConfig{AssetsPrefix: "/dist"})
	require.ErrorIs(t, err, domain.ErrInvalidUpstream)
}

func TestHandler_ServesScript(t *testing.T) {
	up := upstream(t, func(http.ResponseWriter, *http.Request) {})
	s, _ := newServer(t)
	srv := frontEnd(t, s, ports.DevServerConfig{Upstream: up, AssetsPrefix: "/dist", DestRoot: t.TempDir(), LiveReload: true})

	resp, body := get(t, srv.URL+"/__kiln/livereload.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Contains(t, body, "/__kiln/events")
}

func TestReload_StreamsDestinationPaths(t *testing.T) {
	up := upstream(t, func(http.ResponseWriter, *http.Request) {})
	s, _ := newServer(t)
	srv := frontEnd(t, s, ports.DevServerConfig{Upstream: up, AssetsPrefix: "/dist", DestRoot: t.TempDir(), LiveReload: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/__kiln/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "retry: 1000\n", line)

	s.Reload([]string{"css/main.css", "js/app.js"})

	var event []string
	for len(event) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event:") || strings.HasPrefix(line, "data:") {
			event = append(event, strings.TrimSpace(line))
		}
	}
	assert.Equal(t, []string{
		"event: reload",
		`data: ["/dist/css/main.css","/dist/js/app.js"]`,
	}, event)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	up := upstream(t, func(http.ResponseWriter, *http.Request) {})
	s, log := newServer(t)
	log.EXPECT().Info(gomock.Any()).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ports.DevServerConfig{Upstream: up, AssetsPrefix: "/dist", DestRoot: t.TempDir(), LiveReload: true})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		require.FailNow(t, "Serve did not return after cancel")
	}
}

func TestServe_PortInUse(t *testing.T) {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	up := upstream(t, func(http.ResponseWriter, *http.Request) {})
	s, _ := newServer(t)

	err = s.Serve(context.Background(), ports.DevServerConfig{Port: port, Upstream: up, AssetsPrefix: "/dist"})
	require.ErrorContains(t, err, domain.ErrServerFailed.Error())
}
