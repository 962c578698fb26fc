// Package app assembles the dashboard: the UI loop, the event bus, the
// gateways, the pages, the controller and the router, on top of a document.
//
// The same assembly runs in the browser, on the syscall/js document, and
// natively on the headless document for the render command and the tests.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"

	ui "github.com/floeit/floedash"
	"github.com/floeit/floedash/config"
	"github.com/floeit/floedash/dom"
	"github.com/floeit/floedash/pages"
)

// Options configures an App.
type Options struct {
	Client config.ClientConfig
	// Origin is where the API and the stream are served from. Defaults to the
	// document location.
	Origin     *url.URL
	HTTPClient *http.Client
	Dial       *websocket.DialOptions
	// NoStream disables live updates.
	NoStream bool
	Logger   *slog.Logger
}

// App is an assembled dashboard.
type App struct {
	Loop       *ui.Loop
	Bus        *ui.EventBus
	Rest       *ui.RestGateway
	Router     *ui.Router
	Controller *ui.Controller
	Pages      pages.Set

	doc     dom.Document
	home    string
	log     *slog.Logger
	started chan struct{}
}

// New assembles the dashboard on doc. Nothing happens until Run.
func New(doc dom.Document, opts Options) (*App, error) {
	cfg := opts.Client
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	origin := opts.Origin
	if origin == nil {
		origin = doc.Location()
	}
	if origin == nil || origin.Host == "" {
		return nil, errors.New("app: no origin to reach the server")
	}

	a := &App{
		Loop:    ui.NewLoop(),
		Bus:     ui.NewEventBus(log),
		doc:     doc,
		home:    cfg.BasePath + "/dash",
		log:     log,
		started: make(chan struct{}),
	}
	a.Rest = ui.NewRestGateway(a.Bus, a.Loop, ui.RestConfig{
		Origin:    origin,
		APIPrefix: cfg.APIPrefix,
		Timeout:   cfg.RequestTimeout.Duration,
		Client:    opts.HTTPClient,
		Logger:    log,
	})

	env := ui.Env{Doc: doc, Rest: a.Rest, Bus: a.Bus, Post: a.Loop, Log: log, Base: cfg.BasePath}
	a.Pages = pages.NewSet(env, settings(cfg, origin))

	var newStream func() ui.Stream
	if !opts.NoStream {
		sc := ui.StreamConfig{
			URL:        ui.StreamURL(origin, cfg.StreamPath),
			Reconnect:  cfg.Reconnect.Enabled,
			MinBackoff: cfg.Reconnect.MinBackoff.Duration,
			MaxBackoff: cfg.Reconnect.MaxBackoff.Duration,
			Dial:       opts.Dial,
			Logger:     log,
		}
		newStream = func() ui.Stream {
			g := ui.NewStreamGateway(a.Bus, a.Loop, sc)
			g.Open()
			return g
		}
	}

	a.Router = ui.NewRouter(cfg.BasePath, a.notFound, nil).WithLogger(log)
	a.Controller = ui.NewController(ui.ControllerConfig{
		Header:        a.Pages.Header,
		Panels:        a.Pages.Panels,
		Bus:           a.Bus,
		Rest:          a.Rest,
		Doc:           doc,
		Nav:           a.Router,
		NewStream:     newStream,
		Base:          cfg.BasePath,
		SessionCookie: cfg.SessionCookie,
		VerifyPath:    cfg.VerifyPath,
		Logger:        log,
	})
	a.routes()
	return a, nil
}

func (a *App) routes() {
	show := func(name string, keys ...string) ui.RouteHandler {
		return func(p ui.Params) {
			ids := make([]string, 0, len(keys))
			for _, k := range keys {
				ids = append(ids, p[k])
			}
			a.Controller.Activate(name, ids...)
		}
	}
	a.Router.Handle("/", show(ui.PageDash))
	a.Router.Handle("/dash", show(ui.PageDash))
	a.Router.Handle("/login", show(ui.PageLogin))
	a.Router.Handle("/settings", show(ui.PageSettings))
	a.Router.Handle("/flows/:id", show(ui.PageFlow, "id"))
	a.Router.Handle("/flows/:fid/runs/:rid", show(ui.PageRun, "fid", "rid"))
}

func (a *App) notFound(path string) {
	a.log.Warn("no page", "path", path)
	if path == a.home {
		return
	}
	a.Router.Navigate(a.home)
}

// Run starts the dashboard on the current location and serves the UI loop
// until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.Loop.Do(a.start)
	err := a.Loop.Run(ctx)
	a.Controller.Close()
	return err
}

func (a *App) start() {
	a.Router.TrapAnchors(a.doc, a.Loop)
	a.doc.OnUnload(func() { a.Loop.Do(a.Controller.Close) })
	a.Controller.Start()
	a.Router.Route(a.doc.Location().EscapedPath())
	close(a.started)
}

// Settle waits for the app to start, then for the REST calls and the UI loop
// to drain.
func (a *App) Settle(ctx context.Context) error {
	select {
	case <-a.started:
	case <-ctx.Done():
		return ctx.Err()
	}
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		var idle bool
		if err := a.Loop.DoSync(ctx, func() { idle = a.Rest.InFlight() == 0 }); err != nil {
			return err
		}
		if idle && a.Loop.Pending() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

func settings(cfg config.ClientConfig, origin *url.URL) map[string]any {
	return map[string]any{
		"Server":          origin.Scheme + "://" + origin.Host,
		"API prefix":      cfg.APIPrefix,
		"Live updates":    ui.StreamURL(origin, cfg.StreamPath),
		"Request timeout": cfg.RequestTimeout.String(),
		"Reconnect":       fmt.Sprint(cfg.Reconnect.Enabled),
	}
}
