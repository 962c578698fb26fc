package ui

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/floeit/floedash/dom"
)

// Env is what panels share: the document, the gateways and the UI goroutine.
type Env struct {
	Doc  dom.Document
	Rest Requester
	Bus  *EventBus
	Post Poster
	Log  *slog.Logger
	// Base is the path prefix of in-app links.
	Base string
}

func (e Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

// Template renders a view model. *html/template.Template satisfies it.
type Template interface {
	Execute(w io.Writer, data any) error
}

// ViewModel is what a panel template and AfterRender hooks are given.
type ViewModel struct {
	IDs  []string
	Data map[string]any
	Base string
}

// ID returns the i-th activation id or the empty string.
func (vm ViewModel) ID(i int) string {
	if i < 0 || i >= len(vm.IDs) {
		return ""
	}
	return vm.IDs[i]
}

// Patch is the change a page derives from an event.
type Patch struct {
	Values map[string]any
	// Whole replaces the store content with Values instead of merging key by key.
	Whole bool
}

// Merge returns a patch updating the given keys.
func Merge(values map[string]any) Patch { return Patch{Values: values} }

// Replace returns a patch replacing the whole data set.
func Replace(data map[string]any) Patch { return Patch{Values: data, Whole: true} }

// Empty reports a patch that changes nothing.
func (p Patch) Empty() bool { return !p.Whole && len(p.Values) == 0 }

// Page maps the events a panel is notified of onto its data.
// Events a page does not care about must yield an empty patch.
type Page interface {
	MapEvent(evt Event, current map[string]any) Patch
}

// PageFunc adapts a function to the Page interface.
type PageFunc func(evt Event, current map[string]any) Patch

func (f PageFunc) MapEvent(evt Event, current map[string]any) Patch { return f(evt, current) }

// AfterRenderer is implemented by pages that attach child widgets once the
// panel markup is in the document.
type AfterRenderer interface {
	AfterRender(vm ViewModel)
}

// BeforeRenderer is implemented by pages that must read the document before
// the panel markup is replaced.
type BeforeRenderer interface {
	BeforeRender()
}

// Binding attaches Handler to Event on the elements matching Selector inside
// the panel. The default action of the event is always prevented.
type Binding struct {
	Selector string
	Event    string
	Handler  dom.Handler
}

// Request describes an API call.
type Request struct {
	Method string
	Path   string
	Body   any
}

// DataRequest gives the call that fetches the data of a panel.
type DataRequest interface {
	Resolve(ids []string) Request
	// Dynamic reports whether the request depends on the activation ids, in
	// which case it is issued on every activation.
	Dynamic() bool
}

// StaticRequest is issued only while the store is empty.
type StaticRequest Request

func (r StaticRequest) Resolve([]string) Request { return Request(r) }
func (StaticRequest) Dynamic() bool              { return false }

// DynamicRequest computes the request from the activation ids.
type DynamicRequest func(ids []string) Request

func (f DynamicRequest) Resolve(ids []string) Request { return f(ids) }
func (DynamicRequest) Dynamic() bool                  { return true }

// PanelConfig describes a panel.
type PanelConfig struct {
	Name     string
	Page     Page
	Template Template
	// Attach is the selector of the element whose content the panel owns.
	Attach   string
	Bindings []Binding
	Request  DataRequest
	// Initial is the starting data. Nil means the data must be fetched.
	Initial map[string]any
}

// Panel is an activatable region of the page. It owns a store, renders it with
// its template into the attach element and rebinds its event handlers after
// every render.
//
// Panels live on the UI goroutine.
type Panel struct {
	env    Env
	cfg    PanelConfig
	store  *Store
	log    *slog.Logger
	active bool
	ids    []string
}

// NewPanel returns an inactive panel.
func NewPanel(env Env, cfg PanelConfig) *Panel {
	return &Panel{
		env:   env,
		cfg:   cfg,
		store: NewStore(cfg.Initial),
		log:   env.logger().With("panel", cfg.Name),
	}
}

func (p *Panel) Name() string { return p.cfg.Name }

// Active reports whether the panel renders into the document.
func (p *Panel) Active() bool { return p.active }

// IDs returns the ids of the current activation.
func (p *Panel) IDs() []string { return append([]string(nil), p.ids...) }

// IsEmpty reports whether the panel has no data.
func (p *Panel) IsEmpty() bool { return p.store.IsEmpty() }

// Data returns the current data without consuming pending changes.
func (p *Panel) Data() map[string]any { return p.store.Peek() }

// Env returns the environment the panel was built with.
func (p *Panel) Env() Env { return p.env }

// Activate shows the panel for the given ids. It does nothing when the panel is
// already active with the same ids. Otherwise the data is fetched when the store
// is empty or the request depends on the ids, and the panel is rendered.
func (p *Panel) Activate(ids ...string) {
	if p.active && slices.Equal(p.ids, ids) {
		return
	}
	p.ids = append([]string(nil), ids...)
	p.active = true
	p.log.Debug("activate", "ids", p.ids)

	if p.store.IsEmpty() || (p.cfg.Request != nil && p.cfg.Request.Dynamic()) {
		p.Fetch()
	}
	p.Render(true)
}

// Deactivate stops rendering until the next activation.
func (p *Panel) Deactivate() {
	p.active = false
}

// Fetch requests the panel data. The response comes back as a bus event.
func (p *Panel) Fetch() {
	if p.cfg.Request == nil || p.env.Rest == nil {
		return
	}
	r := p.cfg.Request.Resolve(p.ids)
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	p.env.Rest.Call(r.Method, r.Path, r.Body)
}

// Notify maps evt through the page and renders what changed.
func (p *Panel) Notify(evt Event) {
	if p.cfg.Page == nil {
		return
	}
	patch := p.cfg.Page.MapEvent(evt, p.store.Peek())
	if patch.Empty() {
		return
	}
	if patch.Whole {
		p.store.Replace(patch.Values)
	} else {
		for k, v := range patch.Values {
			p.store.Update(k, v)
		}
	}
	p.Render(false)
}

// Update sets a single key and renders.
func (p *Panel) Update(key string, val any) {
	p.store.Update(key, val)
	p.Render(false)
}

// WipeData empties the store, so the next activation fetches again.
func (p *Panel) WipeData() {
	p.store.Reset()
}

// Render writes the panel into the document. Inactive panels are skipped, and
// so is an unforced render when the data did not change.
func (p *Panel) Render(force bool) {
	if !p.active {
		return
	}
	data, ok := p.store.Get(force)
	if !ok {
		return
	}
	vm := ViewModel{IDs: p.IDs(), Data: data, Base: p.env.Base}

	var buf bytes.Buffer
	if p.cfg.Template != nil {
		if err := p.cfg.Template.Execute(&buf, vm); err != nil {
			p.log.Error("template failed", "err", err)
			return
		}
	}
	if br, ok := p.cfg.Page.(BeforeRenderer); ok {
		br.BeforeRender()
	}
	if err := p.env.Doc.SetInnerHTML(p.cfg.Attach, buf.String()); err != nil {
		p.log.Error("render failed", "attach", p.cfg.Attach, "err", err)
		return
	}
	p.bind()

	if ar, ok := p.cfg.Page.(AfterRenderer); ok {
		ar.AfterRender(vm)
	}
}

func (p *Panel) bind() {
	for _, b := range p.cfg.Bindings {
		h := b.Handler
		sel := p.cfg.Attach + " " + b.Selector
		p.env.Doc.Bind(sel, b.Event, func(e dom.Event, el dom.Element) {
			e.PreventDefault()
			p.env.Post.Do(func() { h(e, el) })
		})
	}
}
