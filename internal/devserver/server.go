// Package devserver serves the dashboard during development: the wasm bundle
// and its assets, the page shell for every in-app path, a reverse proxy to the
// floe server and live reload.
package devserver

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/floeit/floedash/config"
	"github.com/floeit/floedash/pages"
)

// ReloadPath is the SSE endpoint pages listen on for reloads.
const ReloadPath = "/_reload"

// DatastarScript is the client used by the page shell for live reload.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

//go:embed index.gohtml
var indexSrc string

var index = template.Must(template.New("index").Parse(indexSrc))

type shell struct {
	ScriptID   string
	Config     template.JS
	Layout     template.HTML
	Reload     bool
	ReloadPath string
	Datastar   string
}

// Server is the development server.
type Server struct {
	cfg    *config.Config
	log    *slog.Logger
	reload *Reloader
	page   []byte
	mux    *http.ServeMux
}

// New builds the server from cfg.
func New(cfg *config.Config, log *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	backend, err := url.Parse(cfg.Server.Backend)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, log: log, reload: NewReloader(log)}
	if s.page, err = s.renderShell(); err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(backend)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("proxy", "path", r.URL.Path, "err", err)
		w.WriteHeader(http.StatusBadGateway)
	}

	base := cfg.Client.BasePath
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, base+"/dash", http.StatusFound)
	})
	s.mux.HandleFunc(base, s.serveShell)
	s.mux.HandleFunc(base+"/", s.serveShell)
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.Server.StaticDir))))
	s.mux.Handle(cfg.Client.APIPrefix+"/", proxy)
	s.mux.Handle(cfg.Client.StreamPath, proxy)
	if cfg.Server.Watch {
		s.mux.Handle(ReloadPath, s.reload)
	}
	return s, nil
}

func (s *Server) renderShell() ([]byte, error) {
	js, err := s.cfg.Client.JSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = index.Execute(&buf, shell{
		ScriptID:   config.ClientScriptID,
		Config:     template.JS(js),
		Layout:     template.HTML(pages.Layout),
		Reload:     s.cfg.Server.Watch,
		ReloadPath: ReloadPath,
		Datastar:   DatastarScript,
	})
	return buf.Bytes(), err
}

func (s *Server) serveShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(s.page)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return logRequests(s.log, s.mux)
}

// Reloader returns the live reload hub.
func (s *Server) Reloader() *Reloader { return s.reload }

// ListenAndServe serves until ctx is done, watching the static directory when
// live reload is on.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	if s.cfg.Server.Watch {
		go func() {
			err := Watch(ctx, s.cfg.Server.StaticDir, s.cfg.Server.Debounce.Duration, s.reload.Broadcast, s.log)
			if err != nil {
				s.log.Error("live reload disabled", "dir", s.cfg.Server.StaticDir, "err", err)
			}
		}()
	}
	go func() {
		<-ctx.Done()
		shut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shut)
	}()

	s.log.Info("serving", "addr", srv.Addr, "base", s.cfg.Client.BasePath, "backend", s.cfg.Server.Backend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logRequests(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}
