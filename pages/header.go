package pages

import (
	"net/http"

	ui "github.com/floeit/floedash"
	"github.com/floeit/floedash/dom"
)

type header struct {
	panel *ui.Panel
}

// NewHeader returns the header panel. It shows the navigation, with the logout
// link once authenticated, and the error banner.
func NewHeader(env ui.Env) *ui.Panel {
	h := &header{}
	h.panel = ui.NewPanel(env, ui.PanelConfig{
		Name:     "header",
		Page:     h,
		Template: Template("header"),
		Attach:   HeaderAttach,
		Initial:  map[string]any{"Authed": false},
		Bindings: []ui.Binding{
			{Selector: "#settings", Event: "click", Handler: func(dom.Event, dom.Element) {
				env.Bus.Fire(ui.ClickEvent{What: ui.PageSettings})
			}},
			{Selector: ".home", Event: "click", Handler: func(dom.Event, dom.Element) {
				env.Bus.Fire(ui.ClickEvent{What: ui.PageDash})
			}},
			{Selector: "#logout", Event: "click", Handler: func(dom.Event, dom.Element) {
				env.Rest.Call(http.MethodPost, ui.LogoutPath, nil)
			}},
			{Selector: "#dismiss", Event: "click", Handler: func(dom.Event, dom.Element) {
				h.panel.Update("Error", nil)
			}},
		},
	})
	return h.panel
}

func (h *header) MapEvent(evt ui.Event, _ map[string]any) ui.Patch {
	switch e := evt.(type) {
	case ui.AuthEvent:
		return ui.Merge(map[string]any{"Authed": true, "Error": nil})
	case ui.UnauthEvent:
		return ui.Merge(map[string]any{"Authed": false})
	case ui.ErrorEvent:
		return ui.Merge(map[string]any{"Error": e})
	}
	return ui.Patch{}
}
