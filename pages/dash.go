package pages

import (
	ui "github.com/floeit/floedash"
	"github.com/floeit/floedash/dom"
)

// NewDash returns the dashboard listing the flows.
func NewDash(env ui.Env) *ui.Panel {
	return ui.NewPanel(env, ui.PanelConfig{
		Name:     ui.PageDash,
		Page:     ui.PageFunc(mapDash),
		Template: Template("dash"),
		Attach:   MainAttach,
		Request:  ui.StaticRequest{Path: "/flows"},
		Bindings: []ui.Binding{
			{Selector: ".flow-link", Event: "click", Handler: func(_ dom.Event, el dom.Element) {
				id, _ := el.Attr("data-id")
				env.Bus.Fire(ui.ClickEvent{What: ui.PageFlow, ID: id})
			}},
		},
	})
}

func mapDash(evt ui.Event, current map[string]any) ui.Patch {
	switch e := evt.(type) {
	case ui.RestEvent:
		if e.URL != "/flows" || !e.OK() {
			return ui.Patch{}
		}
		flows := asList(e.Payload()["Flows"])
		if flows == nil {
			flows = []any{}
		}
		return ui.Replace(map[string]any{"Flows": flows})

	case ui.StreamEvent:
		m := e.Msg
		if m.RunRef == nil || !m.HasPrefix("sys.end.all", "sys.state") {
			return ui.Patch{}
		}
		flows := asList(current["Flows"])
		for _, f := range flows {
			if fm := asMap(f); fm != nil && str(fm["ID"]) == m.RunRef.FlowRef.ID {
				fm["Changed"] = true
				return ui.Merge(map[string]any{"Flows": flows})
			}
		}
	}
	return ui.Patch{}
}
