package dom

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Headless is a Document held in memory as an x/net/html tree.
//
// Event dispatch is synchronous: Click runs the listeners of the target and its
// ancestors (bubbling), then the document listeners, then the default action of
// anchors when nobody prevented it.
type Headless struct {
	mu sync.Mutex

	root     *html.Node
	location *url.URL
	cookies  map[string]string

	listeners    map[*html.Node][]listener
	docListeners []listener
	popstate     []func(string)
	unload       []func()

	history     []string
	navigations []string
}

type listener struct {
	event string
	h     Handler
}

// NewHeadless parses markup as a full document located at rawURL.
func NewHeadless(rawURL, markup string) (*Headless, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("headless: bad location %q: %w", rawURL, err)
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("headless: parse document: %w", err)
	}
	return &Headless{
		root:      root,
		location:  u,
		cookies:   make(map[string]string),
		listeners: make(map[*html.Node][]listener),
		history:   []string{u.EscapedPath()},
	}, nil
}

func (d *Headless) Location() *url.URL {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := *d.location
	return &u
}

func (d *Headless) Cookie(name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.cookies[name]
	return v, ok
}

// SetCookie sets a cookie visible to Cookie.
func (d *Headless) SetCookie(name, value string) {
	d.mu.Lock()
	d.cookies[name] = value
	d.mu.Unlock()
}

// DeleteCookie removes a cookie.
func (d *Headless) DeleteCookie(name string) {
	d.mu.Lock()
	delete(d.cookies, name)
	d.mu.Unlock()
}

func (d *Headless) SetInnerHTML(selector, markup string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.first(selector)
	if err != nil {
		return err
	}
	frag, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return fmt.Errorf("headless: parse fragment for %q: %w", selector, err)
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		d.forget(c)
		c = next
	}
	for _, c := range frag {
		n.AppendChild(c)
	}
	return nil
}

func (d *Headless) Bind(selector, event string, h Handler) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	nodes, err := d.query(selector)
	if err != nil {
		return 0
	}
	for _, n := range nodes {
		d.listeners[n] = append(d.listeners[n], listener{event, h})
	}
	return len(nodes)
}

func (d *Headless) Value(selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.first(selector)
	if err != nil {
		return ""
	}
	if n.DataAtom == atom.Textarea {
		return textOf(n)
	}
	v, _ := attr(n, "value")
	return v
}

// SetValue sets the value attribute of the first element matching selector.
func (d *Headless) SetValue(selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.first(selector)
	if err != nil {
		return err
	}
	for i, a := range n.Attr {
		if a.Key == "value" {
			n.Attr[i].Val = value
			return nil
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "value", Val: value})
	return nil
}

func (d *Headless) Listen(event string, h Handler) {
	d.mu.Lock()
	d.docListeners = append(d.docListeners, listener{event, h})
	d.mu.Unlock()
}

func (d *Headless) PushState(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.moveTo(path)
	d.history = append(d.history, d.location.EscapedPath())
}

func (d *Headless) OnPopState(fn func(path string)) {
	d.mu.Lock()
	d.popstate = append(d.popstate, fn)
	d.mu.Unlock()
}

func (d *Headless) OnUnload(fn func()) {
	d.mu.Lock()
	d.unload = append(d.unload, fn)
	d.mu.Unlock()
}

// Click dispatches a primary button click on the first element matching selector.
func (d *Headless) Click(selector string) error {
	return d.dispatch(selector, &event{typ: "click"})
}

// ClickButton dispatches a click made with the given mouse button.
func (d *Headless) ClickButton(selector string, button int) error {
	return d.dispatch(selector, &event{typ: "click", button: button})
}

// Back traverses the history one step back and fires popstate listeners.
func (d *Headless) Back() bool {
	d.mu.Lock()
	if len(d.history) < 2 {
		d.mu.Unlock()
		return false
	}
	d.history = d.history[:len(d.history)-1]
	path := d.history[len(d.history)-1]
	d.moveTo(path)
	fns := append([]func(string){}, d.popstate...)
	d.mu.Unlock()

	for _, fn := range fns {
		fn(path)
	}
	return true
}

// moveTo sets the location to path, which is in its escaped form.
func (d *Headless) moveTo(path string) {
	ref, err := url.Parse(path)
	if err != nil {
		ref = &url.URL{Path: path}
	}
	d.location = d.location.ResolveReference(ref)
}

// Unload runs the unload listeners, as a browser does before leaving the page.
func (d *Headless) Unload() {
	d.mu.Lock()
	fns := append([]func(){}, d.unload...)
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// History returns the paths pushed on the session history, oldest first.
func (d *Headless) History() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.history...)
}

// Navigations lists the full page loads that anchors triggered because their
// click was not prevented.
func (d *Headless) Navigations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigations...)
}

// InnerHTML serialises the children of the first element matching selector.
func (d *Headless) InnerHTML(selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.first(selector)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// HTML serialises the whole document.
func (d *Headless) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// Pretty returns the whole document indented for reading.
func (d *Headless) Pretty() string {
	return gohtml.Format(d.HTML())
}

// Count returns the number of elements matching selector.
func (d *Headless) Count(selector string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, _ := d.query(selector)
	return len(nodes)
}

// ListenerCount returns how many listeners are attached to the elements matching selector.
func (d *Headless) ListenerCount(selector string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, _ := d.query(selector)
	total := 0
	for _, n := range nodes {
		total += len(d.listeners[n])
	}
	return total
}

func (d *Headless) dispatch(selector string, evt *event) error {
	d.mu.Lock()
	target, err := d.first(selector)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	type call struct {
		h  Handler
		el Element
	}
	var calls []call
	for n := target; n != nil; n = n.Parent {
		for _, l := range d.listeners[n] {
			if l.event == evt.typ {
				calls = append(calls, call{l.h, element{n}})
			}
		}
	}
	for _, l := range d.docListeners {
		if l.event == evt.typ {
			calls = append(calls, call{l.h, element{target}})
		}
	}
	d.mu.Unlock()

	for _, c := range calls {
		c.h(evt, c.el)
	}

	if evt.typ != "click" || evt.prevented {
		return nil
	}
	a := Closest(element{target}, "a")
	if a == nil {
		return nil
	}
	href, ok := a.Attr("href")
	if !ok {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	d.location = d.location.ResolveReference(ref)
	d.navigations = append(d.navigations, d.location.String())
	return nil
}

func (d *Headless) query(selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrBadSelector, selector, err)
	}
	return sel.MatchAll(d.root), nil
}

func (d *Headless) first(selector string) (*html.Node, error) {
	nodes, err := d.query(selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoElement, selector)
	}
	return nodes[0], nil
}

// forget drops the listeners of a detached subtree.
func (d *Headless) forget(n *html.Node) {
	delete(d.listeners, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.forget(c)
	}
}

type element struct {
	n *html.Node
}

func (e element) TagName() string { return e.n.Data }

func (e element) Attr(name string) (string, bool) { return attr(e.n, name) }

func (e element) Parent() Element {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return element{p}
}

func (e element) Text() string { return textOf(e.n) }

type event struct {
	typ       string
	button    int
	modified  bool
	prevented bool
}

func (e *event) Type() string           { return e.typ }
func (e *event) Button() int            { return e.button }
func (e *event) Modified() bool         { return e.modified }
func (e *event) PreventDefault()        { e.prevented = true }
func (e *event) DefaultPrevented() bool { return e.prevented }

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
