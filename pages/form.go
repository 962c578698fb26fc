package pages

import (
	ui "github.com/floeit/floedash"
	"github.com/floeit/floedash/dom"
)

// DataForm is the form a data node waits on.
type DataForm struct {
	ID     string
	Title  string
	Fields []Field
}

// Field is one input of a DataForm.
type Field struct {
	ID     string
	Prompt string
	Type   string
}

// FormValues is a submitted DataForm.
type FormValues struct {
	ID     string
	Values map[string]string
}

// NewForm returns a child panel rendering f into attach. Submitting reads every
// field and hands the values to onSubmit.
func NewForm(env ui.Env, attach string, f DataForm, onSubmit func(FormValues)) *ui.Panel {
	submit := func(dom.Event, dom.Element) {
		onSubmit(FormValues{ID: f.ID, Values: readForm(env.Doc, attach, f)})
	}
	return ui.NewPanel(env, ui.PanelConfig{
		Name:     "form-" + f.ID,
		Page:     ui.PageFunc(func(ui.Event, map[string]any) ui.Patch { return ui.Patch{} }),
		Template: Template("form"),
		Attach:   attach,
		Initial:  map[string]any{"ID": f.ID, "Title": f.Title, "Fields": f.Fields, "Values": map[string]string{}},
		Bindings: []ui.Binding{
			{Selector: "#submit-" + f.ID, Event: "click", Handler: submit},
		},
	})
}

// readForm returns the values currently typed in the fields of f.
func readForm(doc dom.Document, attach string, f DataForm) map[string]string {
	values := make(map[string]string, len(f.Fields))
	for _, fld := range f.Fields {
		values[fld.ID] = doc.Value(attach + ` input[name="field-` + fld.ID + `"]`)
	}
	return values
}

// parseForm reads the form of an enabled data node of a run:
// {Enabled, Opts: {form: {title, fields: [{id, prompt, type}]}}}.
func parseForm(id string, node any) (DataForm, bool) {
	n := asMap(node)
	if enabled, _ := n["Enabled"].(bool); !enabled {
		return DataForm{}, false
	}
	form := asMap(asMap(n["Opts"])["form"])
	if form == nil {
		return DataForm{}, false
	}
	f := DataForm{ID: id, Title: str(form["title"])}
	if f.Title == "" {
		f.Title = id
	}
	for _, fv := range asList(form["fields"]) {
		fm := asMap(fv)
		if fm == nil || str(fm["id"]) == "" {
			continue
		}
		f.Fields = append(f.Fields, Field{ID: str(fm["id"]), Prompt: str(fm["prompt"]), Type: str(fm["type"])})
	}
	return f, true
}
