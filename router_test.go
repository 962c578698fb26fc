package ui

import (
	"net/url"
	"testing"

	"github.com/floeit/floedash/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterMatching(t *testing.T) {
	var got []string
	var params Params
	var missed []string
	r := NewRouter("/app", func(p string) { missed = append(missed, p) }, map[string]RouteHandler{
		"/dash":      func(Params) { got = append(got, "dash") },
		"/flows/:id": func(p Params) { got = append(got, "flow"); params = p },
	})

	assert.True(t, r.Route("/app/flows/build-project"))
	assert.Equal(t, []string{"flow"}, got)
	assert.Equal(t, Params{"id": "build-project"}, params)

	assert.False(t, r.Route("/app/unknown"))
	assert.Equal(t, []string{"/app/unknown"}, missed)
}

func TestRouterPaths(t *testing.T) {
	r := NewRouter("/app", nil, map[string]RouteHandler{
		"/dash":                   func(Params) {},
		"/flows/:id":              func(Params) {},
		"/flows/:fid/runs/:rid":   func(Params) {},
		"/flows/:fid/runs/latest": func(Params) {},
		"/settings":               func(Params) {},
	})

	tests := []struct {
		path   string
		ok     bool
		params Params
	}{
		{"/app/dash", true, Params{}},
		{"/app/dash/", true, Params{}},
		{"/app/flows/f1/runs/h1-3", true, Params{"fid": "f1", "rid": "h1-3"}},
		{"/app/flows/f1/runs/latest", true, Params{"fid": "f1"}},
		{"/app/flows", false, nil},
		{"/app/flows/f1/extra", false, nil},
		{"/dash", false, nil},
		{"/application/dash", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rel, under := r.strip(tt.path)
			if !under {
				assert.False(t, tt.ok)
				return
			}
			p, err := r.Match(rel)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.params, p)
		})
	}
}

func TestRouterOrdering(t *testing.T) {
	r := NewRouter("", nil, nil)
	r.Handle("/flows/:id", func(Params) {})
	r.Handle("/flows/new", func(Params) {})
	r.Handle("/:a/:b", func(Params) {})
	r.Handle("/dash", func(Params) {})

	assert.Equal(t, []string{"/flows/new", "/dash", "/flows/:id", "/:a/:b"}, r.RouteList())

	var hit string
	r.Handle("/flows/new", func(Params) { hit = "new" })
	assert.True(t, r.Route("/flows/new"))
	assert.Equal(t, "new", hit)
}

func TestRouterTrailingSlash(t *testing.T) {
	r := NewRouter("/app", nil, map[string]RouteHandler{"/dash": func(Params) {}})
	r.LeaveTrailingSlash = true
	assert.True(t, r.Route("/app/dash"))
	assert.False(t, r.Route("/app/dash/"))
}

const anchorPage = `<html><body>
<a id="flow" href="/app/flows/f1">flow</a>
<a id="same" href="/app/dash">dash</a>
<a id="ext" href="https://example.com/app/dash">ext</a>
<a id="out" href="/docs">docs</a>
<a id="blank" href="/app/settings" target="_blank">settings</a>
<a id="nested" href="/app/settings"><b id="inside">settings</b></a>
</body></html>`

func newAnchorRouter(t *testing.T) (*Router, *dom.Headless, *[]string) {
	t.Helper()
	doc, err := dom.NewHeadless("http://localhost:8080/app/dash", anchorPage)
	require.NoError(t, err)
	var routed []string
	r := NewRouter("/app", nil, map[string]RouteHandler{
		"/dash":      func(Params) { routed = append(routed, "dash") },
		"/flows/:id": func(p Params) { routed = append(routed, "flow:"+p["id"]) },
		"/settings":  func(Params) { routed = append(routed, "settings") },
	})
	r.TrapAnchors(doc, Inline{})
	return r, doc, &routed
}

func TestTrapAnchorsNavigatesInApp(t *testing.T) {
	_, doc, routed := newAnchorRouter(t)

	require.NoError(t, doc.Click("#flow"))
	assert.Equal(t, []string{"flow:f1"}, *routed)
	assert.Empty(t, doc.Navigations())
	assert.Equal(t, []string{"/app/dash", "/app/flows/f1"}, doc.History())

	require.NoError(t, doc.Click("#inside"))
	assert.Equal(t, []string{"flow:f1", "settings"}, *routed)

	assert.True(t, doc.Back())
	assert.Equal(t, []string{"flow:f1", "settings", "flow:f1"}, *routed)
}

func TestEscapedIDsRouteOneWay(t *testing.T) {
	doc, err := dom.NewHeadless("http://localhost:8080/app/dash",
		`<html><body><a id="odd" href="/app/flows/a%2Fb%20c">odd</a></body></html>`)
	require.NoError(t, err)
	var ids []string
	r := NewRouter("/app", nil, map[string]RouteHandler{
		"/flows/:id": func(p Params) { ids = append(ids, p["id"]) },
	})
	r.TrapAnchors(doc, Inline{})

	require.NoError(t, doc.Click("#odd"))
	r.Navigate("/app/flows/" + url.PathEscape("a/b c"))

	assert.Equal(t, []string{"a/b c", "a/b c"}, ids)
	assert.Equal(t, "/app/flows/a%2Fb%20c", doc.History()[1])
}

func TestTrapAnchorsLetsOthersThrough(t *testing.T) {
	tests := []struct {
		name   string
		click  func(d *dom.Headless) error
		target string
	}{
		{"same path", func(d *dom.Headless) error { return d.Click("#same") }, "http://localhost:8080/app/dash"},
		{"other origin", func(d *dom.Headless) error { return d.Click("#ext") }, "https://example.com/app/dash"},
		{"outside base", func(d *dom.Headless) error { return d.Click("#out") }, "http://localhost:8080/docs"},
		{"new window", func(d *dom.Headless) error { return d.Click("#blank") }, "http://localhost:8080/app/settings"},
		{"middle button", func(d *dom.Headless) error { return d.ClickButton("#flow", 1) }, "http://localhost:8080/app/flows/f1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, doc, routed := newAnchorRouter(t)
			require.NoError(t, tt.click(doc))
			assert.Empty(t, *routed)
			assert.Equal(t, []string{tt.target}, doc.Navigations())
		})
	}
}
