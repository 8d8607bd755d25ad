// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-tfe"
)

// SelectStateVersions runs an interactive picker over the given state
// versions and returns the two the user selected. A quit returns nil.
func SelectStateVersions(items []*tfe.StateVersion) []*tfe.StateVersion {
	p := tea.NewProgram(model{items: items})
	m, _ := p.Run()
	return m.(model).selected
}

type model struct {
	items    []*tfe.StateVersion
	cursor   int
	selected []*tfe.StateVersion
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "w":
		return m, tea.WindowSize()
	case "q", "esc":
		m.selected = nil
		return m, tea.Quit
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ":
		m.selected = m.toggle(m.items[m.cursor])
	case "enter":
		if len(m.selected) == 2 {
			return m, tea.Quit
		}
	}

	return m, nil
}

// toggle adds or removes a version from the selection, capping it at two.
func (m model) toggle(sv *tfe.StateVersion) []*tfe.StateVersion {
	for i, v := range m.selected {
		if v.ID == sv.ID {
			return append(m.selected[:i], m.selected[i+1:]...)
		}
	}
	if len(m.selected) < 2 {
		return append(m.selected, sv)
	}
	return m.selected
}

func (m model) View() string {
	s := "Select two state versions:\n\n"
	for i, sv := range m.items {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}
		mark := " "
		if contains(m.selected, sv) {
			mark = "x"
		}

		s += fmt.Sprintf("%s [%s] %s %4d %s\n", cursor, mark, sv.ID, sv.Serial, sv.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return s + "\nSPACE: toggle, ENTER: go, Q/ESCAPE: quit\n"
}

func contains(versions []*tfe.StateVersion, version *tfe.StateVersion) bool {
	for _, v := range versions {
		if v.ID == version.ID {
			return true
		}
	}
	return false
}
