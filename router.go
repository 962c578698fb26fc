package ui

import (
	"errors"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/floeit/floedash/dom"
)

var (
	ErrNotFound = errors.New("Not Found")
)

// Params holds the values of the named segments of a matched route.
type Params map[string]string

// RouteHandler is invoked when its route matches.
type RouteHandler func(Params)

type route struct {
	pattern  string
	segs     []string
	literals int
	order    int
	h        RouteHandler
}

// Router dispatches in-app paths to handlers.
//
// A pattern is a sequence of literal segments and named segments (":id").
// Matching is exact-length, segment by segment; named segments match anything
// and are captured. When several patterns match, the one with more literal
// segments wins, then the lexically smaller pattern.
type Router struct {
	base     string
	notFound func(path string)
	routes   []route
	seq      int
	doc      dom.Document
	current  string
	log      *slog.Logger

	// LeaveTrailingSlash keeps a trailing slash significant when matching.
	LeaveTrailingSlash bool
}

// NewRouter returns a router for the paths under base. notFound is called with
// the full path when nothing matches or the path is outside base.
func NewRouter(base string, notFound func(path string), table map[string]RouteHandler) *Router {
	r := &Router{
		base:     strings.TrimSuffix(base, "/"),
		notFound: notFound,
		log:      slog.Default(),
	}
	for p, h := range table {
		r.Handle(p, h)
	}
	return r
}

// WithLogger sets the logger of the router.
func (r *Router) WithLogger(l *slog.Logger) *Router {
	if l != nil {
		r.log = l
	}
	return r
}

// Handle adds a route. Registering a pattern again replaces its handler.
func (r *Router) Handle(pattern string, h RouteHandler) {
	segs := split(pattern)
	for i, rt := range r.routes {
		if rt.pattern == pattern {
			r.routes[i].h = h
			return
		}
	}
	lit := 0
	for _, s := range segs {
		if !strings.HasPrefix(s, ":") {
			lit++
		}
	}
	r.seq++
	r.routes = append(r.routes, route{pattern: pattern, segs: segs, literals: lit, order: r.seq, h: h})
	sort.SliceStable(r.routes, func(i, j int) bool {
		a, b := r.routes[i], r.routes[j]
		if a.literals != b.literals {
			return a.literals > b.literals
		}
		if a.pattern != b.pattern {
			return a.pattern < b.pattern
		}
		return a.order < b.order
	})
}

// RouteList returns the patterns in matching order.
func (r *Router) RouteList() []string {
	l := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		l = append(l, rt.pattern)
	}
	return l
}

// Base returns the path prefix of the router.
func (r *Router) Base() string { return r.base }

// Current returns the last path that was routed successfully.
func (r *Router) Current() string { return r.current }

// Match finds the route for an in-app path, base excluded.
func (r *Router) Match(path string) (Params, error) {
	_, p, err := r.lookup(path)
	return p, err
}

// Route dispatches a full path. It reports whether a route handled it.
func (r *Router) Route(path string) bool {
	rel, ok := r.strip(path)
	if !ok {
		r.miss(path)
		return false
	}
	h, params, err := r.lookup(rel)
	if err != nil {
		r.miss(path)
		return false
	}
	r.current = path
	h(params)
	return true
}

// Navigate pushes path onto the session history and routes it.
func (r *Router) Navigate(path string) {
	if r.doc != nil {
		r.doc.PushState(path)
	}
	r.Route(path)
}

// TrapAnchors intercepts clicks on same-origin anchors pointing under the base
// path and turns them into in-app navigation. History traversal re-routes the
// restored path.
func (r *Router) TrapAnchors(doc dom.Document, post Poster) {
	r.doc = doc
	doc.Listen("click", func(e dom.Event, el dom.Element) {
		if e.DefaultPrevented() || e.Button() != 0 || e.Modified() {
			return
		}
		a := dom.Closest(el, "a")
		if a == nil {
			return
		}
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		if t, ok := a.Attr("target"); ok && t != "" && t != "_self" {
			return
		}
		loc := doc.Location()
		u, err := loc.Parse(href)
		if err != nil {
			return
		}
		if u.Scheme != loc.Scheme || u.Host != loc.Host {
			return
		}
		path := u.EscapedPath()
		if _, under := r.strip(path); !under || path == loc.EscapedPath() {
			return
		}
		e.PreventDefault()
		post.Do(func() { r.Navigate(path) })
	})
	doc.OnPopState(func(path string) {
		post.Do(func() { r.Route(path) })
	})
}

func (r *Router) miss(path string) {
	r.log.Debug("route not found", "path", path)
	if r.notFound != nil {
		r.notFound(path)
	}
}

// strip removes the base from path and reports whether path is under it.
func (r *Router) strip(path string) (string, bool) {
	if r.base != "" {
		switch {
		case path == r.base:
			path = "/"
		case strings.HasPrefix(path, r.base+"/"):
			path = path[len(r.base):]
		default:
			return "", false
		}
	}
	if !r.LeaveTrailingSlash && len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path, true
}

func (r *Router) lookup(path string) (RouteHandler, Params, error) {
	segs := split(path)
	for _, rt := range r.routes {
		if len(rt.segs) != len(segs) {
			continue
		}
		params := Params{}
		matched := true
		for i, s := range rt.segs {
			if strings.HasPrefix(s, ":") {
				v, err := url.PathUnescape(segs[i])
				if err != nil {
					matched = false
					break
				}
				params[s[1:]] = v
				continue
			}
			if s != segs[i] {
				matched = false
				break
			}
		}
		if matched {
			return rt.h, params, nil
		}
	}
	return nil, nil, ErrNotFound
}

func split(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
