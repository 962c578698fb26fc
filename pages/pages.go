// Package pages holds the floe dashboard pages and the widgets they embed.
//
// Every constructor returns a *ui.Panel ready to be handed to the controller.
// Pages only map events onto their data; fetching, rendering and binding are
// done by the panel.
package pages

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"

	ui "github.com/floeit/floedash"
)

//go:embed templates/*.gohtml
var files embed.FS

var funcs = template.FuncMap{
	"link":   link,
	"join":   join,
	"runID":  runKey,
	"state":  nodeState,
	"opened": opened,
	"seg":    url.PathEscape,
}

var templates = template.Must(template.New("pages").Funcs(funcs).ParseFS(files, "templates/*.gohtml"))

// Template returns the named page template.
func Template(name string) *template.Template {
	t := templates.Lookup(name)
	if t == nil {
		panic(fmt.Sprintf("pages: no template %q", name))
	}
	return t
}

// Attach points of the page layout.
const (
	HeaderAttach = "header"
	MainAttach   = "#main"
)

// Layout is the body every page set renders into.
const Layout = `<header></header><div id="main"></div>`

// Set is the complete page set of the dashboard.
type Set struct {
	Header *ui.Panel
	Panels map[string]*ui.Panel
}

// NewSet builds every page against env.
func NewSet(env ui.Env, settings map[string]any) Set {
	return Set{
		Header: NewHeader(env),
		Panels: map[string]*ui.Panel{
			ui.PageLogin:    NewLogin(env),
			ui.PageDash:     NewDash(env),
			ui.PageFlow:     NewFlow(env),
			ui.PageRun:      NewRun(env),
			ui.PageSettings: NewSettings(env, settings),
		},
	}
}
