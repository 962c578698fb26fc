package pages

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	ui "github.com/floeit/floedash"
)

// PushDataPath is where data forms are posted.
const PushDataPath = "/push/data"

// PushData is the body of a data form submission.
type PushData struct {
	Ref  ui.FlowRef
	Run  string
	Form FormValues
}

// Node states shown on the run page.
const (
	NodeWaiting = "waiting"
	NodeRunning = "running"
)

type run struct {
	env      ui.Env
	panel    *ui.Panel
	expander *Expander
	forms    map[string]*ui.Panel
	defs     map[string]DataForm
	typed    map[string]map[string]string
}

// NewRun returns the page of a single run, activated with the flow id and the
// run id. Live node events of that run update the node states, and the forms of
// the data nodes waiting for input are attached as child panels.
func NewRun(env ui.Env) *ui.Panel {
	r := &run{
		env:      env,
		expander: NewExpander("Open"),
		forms:    map[string]*ui.Panel{},
		defs:     map[string]DataForm{},
		typed:    map[string]map[string]string{},
	}
	r.panel = ui.NewPanel(env, ui.PanelConfig{
		Name:     ui.PageRun,
		Page:     r,
		Template: Template("run"),
		Attach:   MainAttach,
		Request: ui.DynamicRequest(func(ids []string) ui.Request {
			return ui.Request{Path: runPath(ids)}
		}),
		Bindings: []ui.Binding{r.expander.Binding()},
	})
	r.expander.Attach(r.panel)
	return r.panel
}

func runPath(ids []string) string {
	if len(ids) < 2 {
		return ""
	}
	return "/flows/" + url.PathEscape(ids[0]) + "/runs/" + url.PathEscape(ids[1])
}

func (r *run) MapEvent(evt ui.Event, current map[string]any) ui.Patch {
	ids := r.panel.IDs()
	switch e := evt.(type) {
	case ui.RestEvent:
		if e.URL == PushDataPath {
			if e.OK() {
				return ui.Merge(map[string]any{"Notice": "data submitted"})
			}
			return ui.Merge(map[string]any{"Notice": "data submission failed"})
		}
		if !e.OK() || e.URL != runPath(ids) {
			return ui.Patch{}
		}
		return ui.Replace(r.fromPayload(ids, e.Payload(), current))

	case ui.StreamEvent:
		m := e.Msg
		if m.RunRef == nil || len(ids) < 2 || current == nil {
			return ui.Patch{}
		}
		if m.RunRef.FlowRef.ID != ids[0] || m.RunRef.Run.String() != ids[1] {
			return ui.Patch{}
		}
		return r.live(m, current)
	}
	return ui.Patch{}
}

func (r *run) fromPayload(ids []string, p map[string]any, current map[string]any) map[string]any {
	key := runPath(ids)
	run := asMap(p["Run"])

	nodes := map[string]any{}
	if current["Key"] == key {
		// a refetch of the same run keeps the states learnt from live events
		for k, v := range asMap(current["Nodes"]) {
			nodes[k] = v
		}
	} else {
		r.expander.Reset()
		clear(r.forms)
		clear(r.defs)
		clear(r.typed)
	}

	var forms []DataForm
	ended, _ := run["Ended"].(bool)
	for id, n := range asMap(run["DataNodes"]) {
		f, ok := parseForm(id, n)
		if !ok {
			continue
		}
		if _, seen := nodes[id]; !seen {
			nodes[id] = NodeWaiting
		}
		if !ended {
			forms = append(forms, f)
		}
	}
	sort.Slice(forms, func(i, j int) bool { return forms[i].ID < forms[j].ID })

	logs := map[string]any{}
	for id, n := range asMap(run["ExecNodes"]) {
		if l := asList(asMap(n)["Logs"]); len(l) > 0 {
			logs[id] = l
		}
	}

	return map[string]any{
		"Key":      key,
		"Parent":   "/flows/" + url.PathEscape(ids[0]),
		"Config":   p["Config"],
		"Graph":    p["Graph"],
		"Problems": p["Problems"],
		"Run":      run,
		"Nodes":    nodes,
		"Forms":    forms,
		"Logs":     logs,
		"Open":     r.expander.State(),
	}
}

// live maps a node event of the shown run onto the node states.
func (r *run) live(m ui.StreamMessage, current map[string]any) ui.Patch {
	nodes := asMap(current["Nodes"])
	if nodes == nil {
		nodes = map[string]any{}
	}
	switch {
	case m.Tag == "sys.end.all":
		run := asMap(current["Run"])
		if run == nil {
			run = map[string]any{}
		}
		run["Ended"] = true
		run["Good"] = m.Good
		return ui.Merge(map[string]any{"Run": run, "Forms": []DataForm(nil)})

	case m.HasPrefix("sys.node.start", "sys.node.update"):
		if m.SourceNode == nil {
			return ui.Patch{}
		}
		nodes[m.SourceNode.ID] = NodeRunning

	case m.HasPrefix("task.", "merge."):
		id, state, ok := nodeResult(m.Tag)
		if !ok {
			return ui.Patch{}
		}
		nodes[id] = state

	default:
		return ui.Patch{}
	}
	return ui.Merge(map[string]any{"Nodes": nodes})
}

// nodeResult splits a task.<id>.<result> or merge.<id>.<result> tag.
func nodeResult(tag string) (id, result string, ok bool) {
	_, rest, _ := strings.Cut(tag, ".")
	i := strings.LastIndex(rest, ".")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// BeforeRender saves what was typed in the forms, which the render is about to
// replace.
func (r *run) BeforeRender() {
	for id := range r.forms {
		r.typed[id] = readForm(r.env.Doc, "#form-"+id, r.defs[id])
	}
}

// AfterRender attaches the data forms into their placeholders.
func (r *run) AfterRender(vm ui.ViewModel) {
	forms, _ := vm.Data["Forms"].([]DataForm)
	for _, f := range forms {
		if p, ok := r.forms[f.ID]; ok {
			typed := r.typed[f.ID]
			if typed == nil {
				typed = map[string]string{}
			}
			p.Update("Values", typed)
			continue
		}
		p := NewForm(r.env, "#form-"+f.ID, f, r.submit)
		r.forms[f.ID] = p
		r.defs[f.ID] = f
		p.Activate()
	}
}

func (r *run) submit(v FormValues) {
	ids := r.panel.IDs()
	if len(ids) < 2 {
		return
	}
	ref := ui.FlowRef{ID: ids[0]}
	if ver, ok := asMap(r.panel.Data()["Config"])["Ver"].(float64); ok {
		ref.Ver = int(ver)
	}
	r.env.Rest.Call(http.MethodPost, PushDataPath, PushData{Ref: ref, Run: ids[1], Form: v})
}
