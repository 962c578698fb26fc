package ui

import (
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/floeit/floedash/dom"
)

// AuthState is the state of the session as far as the client knows.
type AuthState int

const (
	// Unauthenticated means there is no session.
	Unauthenticated AuthState = iota
	// AuthPending means a session cookie was found at startup and the server
	// has not confirmed it yet.
	AuthPending
	// Authenticated means the server accepted the session.
	Authenticated
)

func (s AuthState) String() string {
	switch s {
	case AuthPending:
		return "pending"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

const (
	PageLogin    = "login"
	PageDash     = "dash"
	PageFlow     = "flow"
	PageRun      = "run"
	PageSettings = "settings"

	LoginPath  = "/login"
	LogoutPath = "/logout"

	DefaultSessionCookie = "floe-sesh"
	DefaultVerifyPath    = "/flows"
)

// Stream message tags that carry live state.
var liveTags = []string{"sys.node.", "sys.end.", "sys.state", "task.", "merge."}

// Panels that show live state.
var livePanels = []string{PageDash, PageFlow, PageRun}

// Navigator moves the application to an in-app path. *Router satisfies it.
type Navigator interface {
	Navigate(path string)
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Header *Panel
	// Panels are the named pages. Exactly one of them is active at a time.
	Panels map[string]*Panel

	Bus  *EventBus
	Rest Requester
	Doc  dom.Document
	Nav  Navigator
	// NewStream opens a live updates connection.
	NewStream func() Stream

	Base          string
	SessionCookie string
	// VerifyPath is called at start to check a session found in a cookie.
	VerifyPath string
	Logger     *slog.Logger
}

// Target is a page and the ids it was activated with.
type Target struct {
	Name string
	IDs  []string
}

// Controller owns the named panels and the authentication state, and turns bus
// events into panel activations and notifications.
//
// It runs on the UI goroutine.
type Controller struct {
	header  *Panel
	panels  map[string]*Panel
	names   []string
	rest    Requester
	nav     Navigator
	open    func() Stream
	stream  Stream
	base    string
	verify  string
	log     *slog.Logger
	state   AuthState
	current Target
}

// NewController builds the controller and subscribes it to the bus. The initial
// state is AuthPending when the session cookie is present and Unauthenticated
// otherwise.
func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		header: cfg.Header,
		panels: cfg.Panels,
		rest:   cfg.Rest,
		nav:    cfg.Nav,
		open:   cfg.NewStream,
		base:   strings.TrimSuffix(cfg.Base, "/"),
		verify: cfg.VerifyPath,
		log:    cfg.Logger,
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.verify == "" {
		c.verify = DefaultVerifyPath
	}
	for n := range c.panels {
		c.names = append(c.names, n)
	}
	sort.Strings(c.names)

	cookie := cfg.SessionCookie
	if cookie == "" {
		cookie = DefaultSessionCookie
	}
	if cfg.Doc != nil {
		if _, ok := cfg.Doc.Cookie(cookie); ok {
			c.state = AuthPending
		}
	}
	if cfg.Bus != nil {
		cfg.Bus.Subscribe("controller", c)
	}
	return c
}

// State returns the authentication state.
func (c *Controller) State() AuthState { return c.state }

// Current returns the page to show once authenticated.
func (c *Controller) Current() Target { return c.current }

// Panel returns a named panel.
func (c *Controller) Panel(name string) (*Panel, bool) {
	p, ok := c.panels[name]
	return p, ok
}

// Start shows the header and, when the session is pending, asks the server to
// confirm it.
func (c *Controller) Start() {
	if c.header != nil {
		c.header.Activate()
	}
	if c.state == AuthPending && c.rest != nil {
		c.log.Debug("verifying session", "path", c.verify)
		c.rest.Call(http.MethodGet, c.verify, nil)
	}
}

// Close tears the live updates connection down.
func (c *Controller) Close() {
	c.closeStream()
}

// Activate shows the named page. Pages other than login are remembered so they
// can be restored after a login. Without a session the login page is shown
// instead, and while the session is being verified nothing is shown yet.
func (c *Controller) Activate(name string, ids ...string) {
	if _, ok := c.panels[name]; !ok {
		c.log.Warn("unknown page", "page", name)
		return
	}
	if name != PageLogin {
		c.current = Target{Name: name, IDs: append([]string(nil), ids...)}
	}
	switch {
	case name == PageLogin:
	case c.state == AuthPending:
		return
	case c.state == Unauthenticated:
		c.deauth()
		return
	}
	c.show(name, ids)
}

// AuthCheck reports whether the session is authenticated. Without a session it
// starts the deauthentication flow.
func (c *Controller) AuthCheck() bool {
	switch c.state {
	case Authenticated:
		return true
	case Unauthenticated:
		c.deauth()
	}
	return false
}

// NotifyPanel forwards evt to a named panel.
func (c *Controller) NotifyPanel(name string, evt Event) {
	p, ok := c.panels[name]
	if !ok {
		return
	}
	p.Notify(evt)
}

// Notify implements Subscriber.
func (c *Controller) Notify(evt Event) {
	switch e := evt.(type) {
	case RestEvent:
		c.onRest(e)
	case StreamEvent:
		c.onStream(e)
	case ClickEvent:
		c.onClick(e)
	case ErrorEvent:
		if c.header != nil {
			c.header.Notify(e)
		}
	}
}

func (c *Controller) onRest(e RestEvent) {
	if e.Status == http.StatusUnauthorized || (e.URL == LogoutPath && e.OK()) {
		c.log.Info("session ended", "url", e.URL, "status", e.Status)
		c.deauth()
		if e.URL == LoginPath {
			c.NotifyPanel(PageLogin, e)
		}
		return
	}
	if e.Status == http.StatusNotFound {
		c.log.Warn("not found", "url", e.URL)
		return
	}
	if e.Status >= http.StatusInternalServerError {
		c.log.Error("server error", "url", e.URL, "status", e.Status)
		if c.header != nil {
			c.header.Notify(ErrorEvent{Message: "Server error", Status: e.Status, Body: string(e.Body)})
		}
		return
	}
	if e.URL == LoginPath {
		if e.OK() {
			c.log.Info("logged in")
			c.authenticate()
		} else {
			c.NotifyPanel(PageLogin, e)
		}
		return
	}
	if c.state == Unauthenticated {
		c.log.Debug("dropping response without session", "url", e.URL, "status", e.Status)
		return
	}

	if name := panelFor(e.URL); name != "" {
		c.NotifyPanel(name, e)
	}
	if c.state == AuthPending && e.OK() {
		c.log.Info("session confirmed")
		c.authenticate()
	}
}

func (c *Controller) onStream(e StreamEvent) {
	if c.state != Authenticated || !e.Msg.HasPrefix(liveTags...) {
		return
	}
	for _, n := range livePanels {
		c.NotifyPanel(n, e)
	}
}

func (c *Controller) onClick(e ClickEvent) {
	if !c.AuthCheck() {
		return
	}
	switch e.What {
	case PageFlow:
		c.navigate("/flows/" + url.PathEscape(e.ID))
	case PageRun:
		c.navigate("/flows/" + url.PathEscape(e.ParentID) + "/runs/" + url.PathEscape(e.ID))
	case PageSettings:
		c.navigate("/settings")
	case PageDash:
		c.navigate("/dash")
	}
}

func (c *Controller) navigate(path string) {
	if c.nav == nil {
		return
	}
	c.nav.Navigate(c.base + path)
}

func (c *Controller) authenticate() {
	c.state = Authenticated
	if c.header != nil {
		c.header.Notify(AuthEvent{})
	}
	c.closeStream()
	if c.open != nil {
		c.stream = c.open()
	}
	t := c.current
	if t.Name == "" {
		t.Name = PageDash
	}
	c.show(t.Name, t.IDs)
}

func (c *Controller) deauth() {
	c.state = Unauthenticated
	if c.header != nil {
		c.header.Notify(UnauthEvent{})
	}
	for _, n := range c.names {
		c.panels[n].WipeData()
	}
	c.closeStream()
	c.show(PageLogin, nil)
}

// show deactivates every named panel but the requested one, then activates it.
func (c *Controller) show(name string, ids []string) {
	p, ok := c.panels[name]
	if !ok {
		c.log.Warn("unknown page", "page", name)
		return
	}
	for _, n := range c.names {
		if n != name {
			c.panels[n].Deactivate()
		}
	}
	p.Activate(ids...)
}

func (c *Controller) closeStream() {
	if c.stream == nil {
		return
	}
	if err := c.stream.Close(); err != nil {
		c.log.Warn("closing stream", "err", err)
	}
	c.stream = nil
}

// panelFor maps the path of an API call to the page showing its result.
func panelFor(path string) string {
	switch {
	case strings.Contains(path, "/runs/") || strings.HasPrefix(path, "/push/"):
		return PageRun
	case strings.HasPrefix(path, "/flows/"):
		return PageFlow
	case path == "/flows":
		return PageDash
	}
	return ""
}
