package pages

import (
	"maps"

	ui "github.com/floeit/floedash"
	"github.com/floeit/floedash/dom"
)

// Expander opens and closes the collapsible sections of a panel. A control is
// an element of class expander-ctrl whose for attribute names the section
// #expander-{for}. The open set is kept in the panel data under Key.
type Expander struct {
	Key   string
	panel *ui.Panel
	open  map[string]bool
}

// NewExpander returns an expander storing its state under key.
func NewExpander(key string) *Expander {
	return &Expander{Key: key, open: map[string]bool{}}
}

// Attach sets the panel the expander re-renders.
func (x *Expander) Attach(p *ui.Panel) { x.panel = p }

// Binding is the click binding of the controls.
func (x *Expander) Binding() ui.Binding {
	return ui.Binding{Selector: ".expander-ctrl", Event: "click", Handler: x.toggle}
}

// Reset closes every section.
func (x *Expander) Reset() { clear(x.open) }

// State returns a copy of the open set.
func (x *Expander) State() map[string]bool { return maps.Clone(x.open) }

func (x *Expander) toggle(_ dom.Event, el dom.Element) {
	id, ok := el.Attr("for")
	if !ok || x.panel == nil {
		return
	}
	x.open[id] = !x.open[id]
	x.panel.Update(x.Key, x.State())
}

func opened(v any, id string) bool {
	m, _ := v.(map[string]bool)
	return m[id]
}
