package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html><html><body>
<div id="main"><p class="x">old</p></div>
<nav><a id="home" href="/app/dash"><span id="inner">home</span></a></nav>
<input id="user" value="alice">
</body></html>`

func newDoc(t *testing.T) *Headless {
	t.Helper()
	d, err := NewHeadless("http://localhost:8080/app/dash", page)
	require.NoError(t, err)
	return d
}

func TestSetInnerHTMLReplacesChildren(t *testing.T) {
	d := newDoc(t)
	require.NoError(t, d.SetInnerHTML("#main", `<ul><li>a</li><li>b</li></ul>`))

	inner, err := d.InnerHTML("#main")
	require.NoError(t, err)
	assert.Equal(t, `<ul><li>a</li><li>b</li></ul>`, inner)
	assert.Equal(t, 0, d.Count("#main p"))
	assert.Equal(t, 2, d.Count("#main li"))
}

func TestSetInnerHTMLErrors(t *testing.T) {
	d := newDoc(t)
	assert.ErrorIs(t, d.SetInnerHTML("#missing", "x"), ErrNoElement)
	assert.ErrorIs(t, d.SetInnerHTML("[[", "x"), ErrBadSelector)
}

func TestReplacedSubtreeDropsListeners(t *testing.T) {
	d := newDoc(t)
	n := d.Bind("#main p", "click", func(Event, Element) {})
	require.Equal(t, 1, n)
	require.Equal(t, 1, d.ListenerCount("#main p"))

	require.NoError(t, d.SetInnerHTML("#main", `<p class="x">new</p>`))
	assert.Equal(t, 0, d.ListenerCount("#main p"))
}

func TestClickBubblesThenReachesDocument(t *testing.T) {
	d := newDoc(t)
	var order []string
	d.Bind("#home", "click", func(e Event, el Element) {
		id, _ := el.Attr("id")
		order = append(order, "anchor:"+id)
	})
	d.Listen("click", func(e Event, el Element) {
		order = append(order, "document:"+el.TagName())
		e.PreventDefault()
	})

	require.NoError(t, d.Click("#inner"))
	assert.Equal(t, []string{"anchor:home", "document:span"}, order)
	assert.Empty(t, d.Navigations())
}

func TestUnpreventedAnchorNavigates(t *testing.T) {
	d := newDoc(t)
	require.NoError(t, d.Click("#inner"))
	assert.Equal(t, []string{"http://localhost:8080/app/dash"}, d.Navigations())
}

func TestClosestWalksToAnchor(t *testing.T) {
	d := newDoc(t)
	var got Element
	d.Listen("click", func(e Event, el Element) {
		got = Closest(el, "a")
		e.PreventDefault()
	})
	require.NoError(t, d.Click("#inner"))
	require.NotNil(t, got)
	href, ok := got.Attr("href")
	assert.True(t, ok)
	assert.Equal(t, "/app/dash", href)
}

func TestHistory(t *testing.T) {
	d := newDoc(t)
	var popped []string
	d.OnPopState(func(p string) { popped = append(popped, p) })

	d.PushState("/app/flows/f1")
	assert.Equal(t, "/app/flows/f1", d.Location().Path)
	assert.True(t, d.Back())
	assert.Equal(t, []string{"/app/dash"}, popped)
	assert.Equal(t, "/app/dash", d.Location().Path)
	assert.False(t, d.Back())
}

func TestValueAndCookies(t *testing.T) {
	d := newDoc(t)
	assert.Equal(t, "alice", d.Value("#user"))
	require.NoError(t, d.SetValue("#user", "bob"))
	assert.Equal(t, "bob", d.Value("#user"))
	assert.Equal(t, "", d.Value("#nope"))

	_, ok := d.Cookie("floe-sesh")
	assert.False(t, ok)
	d.SetCookie("floe-sesh", "abc")
	v, ok := d.Cookie("floe-sesh")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestPrettyIndents(t *testing.T) {
	d := newDoc(t)
	assert.Contains(t, d.Pretty(), "\n")
	assert.Contains(t, d.Pretty(), `id="main"`)
}
