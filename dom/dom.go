// Package dom defines the small slice of the DOM that the floedash runtime needs,
// together with its drivers.
//
// The Browser driver (js && wasm) talks to the real document through syscall/js.
// The Headless driver keeps an x/net/html tree in memory. It is what the tests and
// the render command run against.
package dom

import (
	"errors"
	"net/url"
	"strings"
)

var (
	// ErrNoElement is returned when a selector does not match any element of the document.
	ErrNoElement = errors.New("dom: no element matches selector")
	// ErrBadSelector is returned when a selector cannot be parsed.
	ErrBadSelector = errors.New("dom: invalid selector")
)

// Event is a DOM event as seen by a Handler.
type Event interface {
	Type() string
	// Button is the mouse button of a click event. 0 is the primary button.
	Button() int
	// Modified reports whether a modifier key (ctrl, meta, shift, alt) was held.
	Modified() bool
	PreventDefault()
	DefaultPrevented() bool
}

// Element is a read-only view of a DOM element.
type Element interface {
	TagName() string
	Attr(name string) (string, bool)
	// Parent returns the parent element or nil once the document node is reached.
	Parent() Element
	Text() string
}

// Handler reacts to a DOM event. The element is the one the listener was
// attached to or, for document level listeners, the event target.
type Handler func(Event, Element)

// Document is the DOM surface used by panels and the router.
type Document interface {
	// Location returns the current document URL.
	Location() *url.URL
	// Cookie reports whether the named cookie is present and its value.
	Cookie(name string) (string, bool)

	// SetInnerHTML replaces the content of the first element matching selector.
	SetInnerHTML(selector, markup string) error
	// Bind attaches h to every element matching selector. It returns the number
	// of elements the handler was attached to.
	Bind(selector, event string, h Handler) int
	// Value returns the value of the first form control matching selector.
	Value(selector string) string

	// Listen registers a document level listener. Handlers receive the event target.
	Listen(event string, h Handler)
	// PushState appends path to the session history without navigating.
	PushState(path string)
	// OnPopState registers fn to be called with the restored path on history traversal.
	OnPopState(fn func(path string))
	// OnUnload registers fn to run before the document is unloaded.
	OnUnload(fn func())
}

// Closest walks up from e, e included, to the nearest element with the given tag name.
func Closest(e Element, tag string) Element {
	for e != nil {
		if strings.EqualFold(e.TagName(), tag) {
			return e
		}
		e = e.Parent()
	}
	return nil
}
