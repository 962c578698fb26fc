package pages

import (
	"net/url"
	"slices"

	ui "github.com/floeit/floedash"
	"github.com/floeit/floedash/dom"
)

// Run list names of the flow page.
const (
	Pending = "Pending"
	Active  = "Active"
	Archive = "Archive"
)

type flow struct {
	panel *ui.Panel
}

// NewFlow returns the page of a single flow, activated with the flow id. It
// lists the pending, active and archived runs and keeps the lists current from
// the live updates.
func NewFlow(env ui.Env) *ui.Panel {
	f := &flow{}
	f.panel = ui.NewPanel(env, ui.PanelConfig{
		Name:     ui.PageFlow,
		Page:     f,
		Template: Template("flow"),
		Attach:   MainAttach,
		Request: ui.DynamicRequest(func(ids []string) ui.Request {
			return ui.Request{Path: flowPath(ids)}
		}),
		Bindings: []ui.Binding{
			{Selector: ".run", Event: "click", Handler: func(_ dom.Event, el dom.Element) {
				id, _ := el.Attr("data-id")
				env.Bus.Fire(ui.ClickEvent{What: ui.PageRun, ID: id, ParentID: f.flowID()})
			}},
		},
	})
	return f.panel
}

func flowPath(ids []string) string {
	if len(ids) == 0 {
		return "/flows"
	}
	return "/flows/" + url.PathEscape(ids[0])
}

func (f *flow) flowID() string {
	ids := f.panel.IDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

func (f *flow) MapEvent(evt ui.Event, current map[string]any) ui.Patch {
	switch e := evt.(type) {
	case ui.RestEvent:
		// a response for a flow that is no longer shown is stale
		if !e.OK() || e.URL != flowPath(f.panel.IDs()) {
			return ui.Patch{}
		}
		p := e.Payload()
		return ui.Replace(map[string]any{"Config": p["Config"], "Runs": runLists(p["Runs"])})

	case ui.StreamEvent:
		m := e.Msg
		runs := asMap(current["Runs"])
		if runs == nil || m.RunRef == nil || m.RunRef.FlowRef.ID != f.flowID() {
			return ui.Patch{}
		}
		if !moveRun(runs, m) {
			return ui.Patch{}
		}
		return ui.Merge(map[string]any{"Runs": runs})
	}
	return ui.Patch{}
}

// runLists normalises the Runs payload so every list is present.
func runLists(v any) map[string]any {
	in := asMap(v)
	out := make(map[string]any, 3)
	for _, k := range []string{Pending, Active, Archive} {
		l := asList(in[k])
		if l == nil {
			l = []any{}
		}
		out[k] = l
	}
	return out
}

// moveRun applies a live run state change to the lists and reports whether
// anything changed.
func moveRun(runs map[string]any, m ui.StreamMessage) bool {
	key := m.RunRef.Run.String()
	switch {
	case m.Tag == "sys.state" && m.Action() == "add-pend":
		if findRun(runs, Pending, key) >= 0 {
			return false
		}
		addRun(runs, Pending, summary(m, "pending"))
	case m.Tag == "sys.state" && m.Action() == "remove-pend":
		return takeRun(runs, Pending, key) != nil
	case m.Tag == "sys.state" && m.Action() == "activate":
		s := takeRun(runs, Pending, key)
		if findRun(runs, Active, key) >= 0 {
			return s != nil
		}
		if s == nil {
			s = summary(m, "running")
		}
		s["Status"] = "running"
		addRun(runs, Active, s)
	case m.Tag == "sys.end.all":
		s := takeRun(runs, Active, key)
		if s == nil {
			if findRun(runs, Archive, key) >= 0 {
				return false
			}
			s = summary(m, "")
		}
		s["Status"] = "finished"
		s["Ended"] = true
		s["Good"] = m.Good
		runs[Archive] = append([]any{s}, asList(runs[Archive])...)
	default:
		return false
	}
	return true
}

func summary(m ui.StreamMessage, status string) map[string]any {
	return map[string]any{"Ref": plain(m.RunRef), "Status": status}
}

func findRun(runs map[string]any, list, key string) int {
	return slices.IndexFunc(asList(runs[list]), func(s any) bool { return summaryKey(s) == key })
}

func addRun(runs map[string]any, list string, s map[string]any) {
	runs[list] = append(asList(runs[list]), s)
}

func takeRun(runs map[string]any, list, key string) map[string]any {
	i := findRun(runs, list, key)
	if i < 0 {
		return nil
	}
	l := asList(runs[list])
	s := asMap(l[i])
	runs[list] = slices.Delete(slices.Clone(l), i, i+1)
	return s
}
