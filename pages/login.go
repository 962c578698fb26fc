package pages

import (
	"net/http"

	ui "github.com/floeit/floedash"
	"github.com/floeit/floedash/dom"
)

// Credentials is the body of a login call.
type Credentials struct {
	User     string
	Password string
}

// NewLogin returns the login page. Submitting the form posts the credentials;
// a rejected login shows "bad credentials".
func NewLogin(env ui.Env) *ui.Panel {
	submit := func(dom.Event, dom.Element) {
		user := env.Doc.Value(MainAttach + ` input[name="Username"]`)
		pass := env.Doc.Value(MainAttach + ` input[name="Password"]`)
		env.Rest.Call(http.MethodPost, ui.LoginPath, Credentials{User: user, Password: pass})
	}
	return ui.NewPanel(env, ui.PanelConfig{
		Name:     ui.PageLogin,
		Page:     ui.PageFunc(mapLogin),
		Template: Template("login"),
		Attach:   MainAttach,
		Bindings: []ui.Binding{
			{Selector: `button[name="Submit"]`, Event: "click", Handler: submit},
		},
	})
}

func mapLogin(evt ui.Event, _ map[string]any) ui.Patch {
	e, ok := evt.(ui.RestEvent)
	if !ok || e.URL != ui.LoginPath {
		return ui.Patch{}
	}
	if e.Status == http.StatusUnauthorized {
		return ui.Merge(map[string]any{"Error": "bad credentials"})
	}
	if !e.OK() {
		return ui.Merge(map[string]any{"Error": "login failed"})
	}
	return ui.Merge(map[string]any{"Error": nil})
}
