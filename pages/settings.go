package pages

import (
	ui "github.com/floeit/floedash"
)

type settings struct {
	panel  *ui.Panel
	values map[string]any
}

// NewSettings returns the settings page showing the given values. The values
// are local, so they are put back whenever a logout wiped them.
func NewSettings(env ui.Env, values map[string]any) *ui.Panel {
	s := &settings{values: values}
	s.panel = ui.NewPanel(env, ui.PanelConfig{
		Name:     ui.PageSettings,
		Page:     s,
		Template: Template("settings"),
		Attach:   MainAttach,
		Initial:  map[string]any{"Values": values},
	})
	return s.panel
}

func (s *settings) MapEvent(ui.Event, map[string]any) ui.Patch { return ui.Patch{} }

func (s *settings) AfterRender(ui.ViewModel) {
	if s.panel.IsEmpty() {
		s.panel.Update("Values", s.values)
	}
}
