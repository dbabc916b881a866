// Package devserver implements the watch mode HTTP front end: a reverse proxy to the
// application server, a static server for built assets and a live reload event stream.
package devserver

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/http/httputil"
	"path"
	"strconv"
	"sync"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.DevServer = (*Server)(nil)

const (
	scriptPath = "/__kiln/livereload.js"
	eventsPath = "/__kiln/events"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

//go:embed livereload.js
var liveReloadScript []byte

var scriptTag = `<script src="` + scriptPath + `"></script>`

// Server is the development HTTP server.
type Server struct {
	logger ports.Logger
	hub    *hub

	mu     sync.RWMutex
	prefix string
}

// New creates a development server.
func New(logger ports.Logger) *Server {
	return &Server{logger: logger, hub: newHub()}
}

// Serve listens on cfg.Port until ctx is cancelled, then disconnects live reload clients
// and shuts down gracefully.
func (s *Server) Serve(ctx context.Context, cfg ports.DevServerConfig) error {
	handler, err := s.Handler(cfg)
	if err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strconv.Itoa(cfg.Port)))
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "port", cfg.Port)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	s.logger.Info(fmt.Sprintf("serving http://localhost:%d, proxying %s", cfg.Port, cfg.Upstream))

	select {
	case err := <-serveErr:
		s.hub.close()
		return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "port", cfg.Port)
	case <-ctx.Done():
	}

	s.hub.close()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "port", cfg.Port)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "port", cfg.Port)
	}
	return nil
}

// Handler builds the request router for cfg.
// Requests under the assets prefix are served from the destination root and never proxied.
func (s *Server) Handler(cfg ports.DevServerConfig) (http.Handler, error) {
	if cfg.Upstream == nil || cfg.Upstream.Host == "" {
		return nil, domain.ErrInvalidUpstream
	}

	prefix := path.Clean("/" + cfg.AssetsPrefix)
	s.mu.Lock()
	s.prefix = prefix
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.Handle(prefix+"/", http.StripPrefix(prefix, noCache(http.FileServer(http.Dir(cfg.DestRoot)))))

	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(cfg.Upstream)
			r.SetXForwarded()
			r.Out.Host = r.In.Host
			if cfg.LiveReload {
				r.Out.Header.Set("Accept-Encoding", "identity")
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Warn(fmt.Sprintf("upstream %s unavailable: %v", cfg.Upstream, err))
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	}

	if cfg.LiveReload {
		proxy.ModifyResponse = injectLiveReload
		mux.HandleFunc(scriptPath, serveScript)
		mux.HandleFunc(eventsPath, s.serveEvents)
	}

	mux.Handle("/", proxy)

	return mux, nil
}

// Reload notifies live reload clients that the given destinations changed.
// Destinations are relative to the destination root and are sent as URL paths.
func (s *Server) Reload(destinations []string) {
	if len(destinations) == 0 {
		return
	}

	s.mu.RLock()
	prefix := s.prefix
	s.mu.RUnlock()

	paths := make([]string, len(destinations))
	for i, dest := range destinations {
		paths[i] = path.Join(prefix, dest)
	}
	s.hub.broadcast(paths)
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func serveScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(liveReloadScript)
}

func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	_, _ = io.WriteString(w, "retry: 1000\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case paths, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(paths)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: reload\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// injectLiveReload adds the live reload script to uncompressed HTML responses.
func injectLiveReload(resp *http.Response) error {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/html" {
		return nil
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return err
	}

	body = injectScript(body, scriptTag)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return nil
}
