//go:build js && wasm

package dom

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"syscall/js"
)

// Browser is the Document of the page the wasm module runs in.
type Browser struct {
	window   js.Value
	document js.Value

	mu       sync.Mutex
	bindings []binding
	globals  []js.Func
}

type binding struct {
	el js.Value
	fn js.Func
}

// NewBrowser returns the driver for the current page.
func NewBrowser() *Browser {
	w := js.Global()
	return &Browser{window: w, document: w.Get("document")}
}

func (b *Browser) Location() *url.URL {
	u, err := url.Parse(b.window.Get("location").Get("href").String())
	if err != nil {
		return &url.URL{Path: "/"}
	}
	return u
}

func (b *Browser) Cookie(name string) (string, bool) {
	for _, c := range strings.Split(b.document.Get("cookie").String(), ";") {
		k, v, _ := strings.Cut(strings.TrimSpace(c), "=")
		if k == name {
			return v, true
		}
	}
	return "", false
}

func (b *Browser) SetInnerHTML(selector, markup string) error {
	el, err := b.querySelector(selector)
	if err != nil {
		return err
	}
	el.Set("innerHTML", markup)
	b.sweep()
	return nil
}

func (b *Browser) Bind(selector, event string, h Handler) int {
	list, err := b.querySelectorAll(selector)
	if err != nil {
		return 0
	}
	n := list.Length()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < n; i++ {
		el := list.Index(i)
		fn := js.FuncOf(func(this js.Value, args []js.Value) any {
			h(jsEvent{args[0]}, jsElement{el})
			return nil
		})
		el.Call("addEventListener", event, fn)
		b.bindings = append(b.bindings, binding{el, fn})
	}
	return n
}

func (b *Browser) Value(selector string) string {
	el, err := b.querySelector(selector)
	if err != nil {
		return ""
	}
	v := el.Get("value")
	if v.IsUndefined() || v.IsNull() {
		return ""
	}
	return v.String()
}

func (b *Browser) Listen(event string, h Handler) {
	fn := js.FuncOf(func(this js.Value, args []js.Value) any {
		target := args[0].Get("target")
		if target.Get("nodeType").Int() != 1 {
			target = target.Get("parentElement")
		}
		if target.IsNull() || target.IsUndefined() {
			return nil
		}
		h(jsEvent{args[0]}, jsElement{target})
		return nil
	})
	b.document.Call("addEventListener", event, fn)
	b.mu.Lock()
	b.globals = append(b.globals, fn)
	b.mu.Unlock()
}

func (b *Browser) PushState(path string) {
	b.window.Get("history").Call("pushState", js.Null(), "", path)
}

func (b *Browser) OnPopState(fn func(path string)) {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn(b.window.Get("location").Get("pathname").String())
		return nil
	})
	b.window.Call("addEventListener", "popstate", f)
	b.mu.Lock()
	b.globals = append(b.globals, f)
	b.mu.Unlock()
}

func (b *Browser) OnUnload(fn func()) {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn()
		return nil
	})
	b.window.Call("addEventListener", "beforeunload", f)
	b.mu.Lock()
	b.globals = append(b.globals, f)
	b.mu.Unlock()
}

// ScriptJSON returns the text content of the script element with the given id.
// Pages use it to hand JSON configuration to the wasm module.
func (b *Browser) ScriptJSON(id string) ([]byte, bool) {
	el := b.document.Call("getElementById", id)
	if el.IsNull() {
		return nil, false
	}
	return []byte(el.Get("textContent").String()), true
}

// sweep releases the callbacks of elements that were removed from the document.
func (b *Browser) sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.bindings[:0]
	for _, bd := range b.bindings {
		if bd.el.Get("isConnected").Bool() {
			kept = append(kept, bd)
			continue
		}
		bd.fn.Release()
	}
	b.bindings = kept
}

func (b *Browser) querySelector(selector string) (v js.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w %q: %v", ErrBadSelector, selector, r)
		}
	}()
	v = b.document.Call("querySelector", selector)
	if v.IsNull() {
		return v, fmt.Errorf("%w %q", ErrNoElement, selector)
	}
	return v, nil
}

func (b *Browser) querySelectorAll(selector string) (v js.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w %q: %v", ErrBadSelector, selector, r)
		}
	}()
	return b.document.Call("querySelectorAll", selector), nil
}

type jsElement struct {
	v js.Value
}

func (e jsElement) TagName() string { return strings.ToLower(e.v.Get("tagName").String()) }

func (e jsElement) Attr(name string) (string, bool) {
	if !e.v.Call("hasAttribute", name).Bool() {
		return "", false
	}
	return e.v.Call("getAttribute", name).String(), true
}

func (e jsElement) Parent() Element {
	p := e.v.Get("parentElement")
	if p.IsNull() || p.IsUndefined() {
		return nil
	}
	return jsElement{p}
}

func (e jsElement) Text() string { return e.v.Get("textContent").String() }

type jsEvent struct {
	v js.Value
}

func (e jsEvent) Type() string { return e.v.Get("type").String() }

func (e jsEvent) Button() int {
	b := e.v.Get("button")
	if b.IsUndefined() {
		return 0
	}
	return b.Int()
}

func (e jsEvent) Modified() bool {
	for _, k := range []string{"ctrlKey", "metaKey", "shiftKey", "altKey"} {
		if v := e.v.Get(k); !v.IsUndefined() && v.Bool() {
			return true
		}
	}
	return false
}

func (e jsEvent) PreventDefault() { e.v.Call("preventDefault") }

func (e jsEvent) DefaultPrevented() bool { return e.v.Get("defaultPrevented").Bool() }
