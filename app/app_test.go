package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ui "github.com/floeit/floedash"
	"github.com/floeit/floedash/app"
	"github.com/floeit/floedash/config"
	"github.com/floeit/floedash/dom"
	"github.com/floeit/floedash/pages"
)

// floe is a fake floe server. Until a login succeeds every API call but login
// answers 401.
type floe struct {
	authed atomic.Bool
	live   chan string
}

func (f *floe) handler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, payload any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{"Message": http.StatusText(status), "Payload": payload})
	}
	guard := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !f.authed.Load() {
				reply(w, http.StatusUnauthorized, nil)
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("POST /build/api/login", func(w http.ResponseWriter, r *http.Request) {
		var c pages.Credentials
		json.NewDecoder(r.Body).Decode(&c)
		if c.User != "admin" || c.Password != "secret" {
			reply(w, http.StatusUnauthorized, nil)
			return
		}
		f.authed.Store(true)
		reply(w, http.StatusOK, map[string]any{"User": "admin", "Role": "admin", "Token": "t"})
	})
	mux.HandleFunc("POST /build/api/logout", guard(func(w http.ResponseWriter, r *http.Request) {
		f.authed.Store(false)
		reply(w, http.StatusOK, nil)
	}))
	mux.HandleFunc("GET /build/api/flows", guard(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"Flows": []any{
			map[string]any{"ID": "build-project", "Ver": 1, "Name": "build project"},
			map[string]any{"ID": "deploy", "Ver": 1, "Name": "deploy"},
		}})
	}))
	mux.HandleFunc("GET /build/api/flows/{id}", guard(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{
			"Config": map[string]any{"ID": r.PathValue("id"), "Ver": 1, "Name": "flow " + r.PathValue("id")},
			"Runs":   map[string]any{"Pending": []any{}, "Active": []any{}, "Archive": []any{}},
		})
	}))
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := c.CloseRead(r.Context())
		for {
			select {
			case m := <-f.live:
				if c.Write(ctx, websocket.MessageText, []byte(m)) != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})
	return mux
}

type harness struct {
	app *app.App
	doc *dom.Headless
	srv *floe
}

func start(t *testing.T, path string, cookie bool, stream bool) *harness {
	t.Helper()
	f := &floe{live: make(chan string, 4)}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	doc, err := dom.NewHeadless(srv.URL+path, "<html><body>"+pages.Layout+"</body></html>")
	require.NoError(t, err)
	if cookie {
		doc.SetCookie(ui.DefaultSessionCookie, "x")
		f.authed.Store(true)
	}
	a, err := app.New(doc, app.Options{Client: config.DefaultClient(), NoStream: !stream})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	h := &harness{app: a, doc: doc, srv: f}
	h.settle(t)
	return h
}

func (h *harness) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, h.app.Settle(ctx))
}

func (h *harness) state(t *testing.T) ui.AuthState {
	t.Helper()
	var s ui.AuthState
	require.NoError(t, h.app.Loop.DoSync(context.Background(), func() { s = h.app.Controller.State() }))
	return s
}

func TestLoginThenDash(t *testing.T) {
	h := start(t, "/app/dash", false, false)
	assert.Equal(t, ui.Unauthenticated, h.state(t))
	require.Equal(t, 1, h.doc.Count("#main #login"))
	assert.Equal(t, 0, h.doc.Count("header #logout"))

	require.NoError(t, h.doc.SetValue(`#main input[name="Username"]`, "admin"))
	require.NoError(t, h.doc.SetValue(`#main input[name="Password"]`, "wrong"))
	require.NoError(t, h.doc.Click(`#main button[name="Submit"]`))
	h.settle(t)
	assert.Equal(t, 1, h.doc.Count("#main #login .error"))

	require.NoError(t, h.doc.SetValue(`#main input[name="Password"]`, "secret"))
	require.NoError(t, h.doc.Click(`#main button[name="Submit"]`))
	h.settle(t)

	assert.Equal(t, ui.Authenticated, h.state(t))
	assert.Equal(t, 2, h.doc.Count("#main li.flow"))
	assert.Equal(t, 1, h.doc.Count("header #logout"))
}

func TestPendingSessionRestoresDeepLink(t *testing.T) {
	h := start(t, "/app/flows/deploy", true, false)
	assert.Equal(t, ui.Authenticated, h.state(t))
	assert.Equal(t, 0, h.doc.Count("#main #login"))
	html, err := h.doc.InnerHTML("#main summary")
	require.NoError(t, err)
	assert.Contains(t, html, "flow deploy")
}

func TestFlowClickNavigates(t *testing.T) {
	h := start(t, "/app/dash", true, false)
	require.NoError(t, h.doc.Click("#flow-build-project .flow-link"))
	h.settle(t)

	assert.Contains(t, h.doc.History(), "/app/flows/build-project")
	assert.Empty(t, h.doc.Navigations(), "no full page load")
	html, err := h.doc.InnerHTML("#main summary")
	require.NoError(t, err)
	assert.Contains(t, html, "flow build-project")

	require.True(t, h.doc.Back())
	h.settle(t)
	assert.Equal(t, 2, h.doc.Count("#main li.flow"))
}

func TestUnknownPathGoesHome(t *testing.T) {
	h := start(t, "/app/nowhere", true, false)
	assert.Contains(t, h.doc.History(), "/app/dash")
	assert.Equal(t, 2, h.doc.Count("#main li.flow"))
}

func TestLogout(t *testing.T) {
	h := start(t, "/app/dash", true, false)
	require.NoError(t, h.doc.Click("header #logout"))
	h.settle(t)

	assert.Equal(t, ui.Unauthenticated, h.state(t))
	assert.Equal(t, 1, h.doc.Count("#main #login"))
	for name, p := range h.app.Pages.Panels {
		if name == ui.PageLogin {
			continue
		}
		var empty bool
		require.NoError(t, h.app.Loop.DoSync(context.Background(), func() { empty = p.IsEmpty() }))
		assert.True(t, empty, name)
	}
}

func TestLiveUpdatesReachTheDash(t *testing.T) {
	h := start(t, "/app/dash", true, true)
	h.srv.live <- `{"Tag":"sys.end.all","RunRef":{"FlowRef":{"ID":"deploy","Ver":1},"Run":{"HostID":"h1","ID":3}},"SourceNode":{"Class":"","ID":""},"ID":9,"Opts":null,"Good":true}`

	assert.Eventually(t, func() bool {
		return h.doc.Count("#flow-deploy.changed") == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestNewRejectsBadConfig(t *testing.T) {
	doc, err := dom.NewHeadless("http://localhost/app/dash", "<html><body></body></html>")
	require.NoError(t, err)
	cfg := config.DefaultClient()
	cfg.BasePath = "app"
	_, err = app.New(doc, app.Options{Client: cfg})
	assert.Error(t, err)

	_, err = app.New(doc, app.Options{Client: config.DefaultClient(), Origin: &url.URL{Path: "/"}})
	assert.Error(t, err)
}
