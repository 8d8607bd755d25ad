// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/command/si"
	"github.com/tfcheck/tfcheck/internal/config"
	"github.com/tfcheck/tfcheck/internal/log"
	"github.com/tfcheck/tfcheck/internal/meta"
	"github.com/tfcheck/tfcheck/internal/state"
)

// siCommandAction loads state for the target root directory and launches an
// interactive inspector to explore resources and outputs.
func siCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "si"

	// Same backend detection and state loading as sq.
	stateData, err := state.LoadStateData(ctx, cmd, m.RootDir)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newInspectorModel(stateData))
	_, err = p.Run()
	return err
}

// inspectorModel is the Bubble Tea model for the si console.
type inspectorModel struct {
	input          textinput.Model
	history        []string // full history, seeded from the history file
	sessionHistory []string // commands from this session, paired with outputs
	histIndex      int
	output         []string
	stateData      map[string]interface{}
}

func newInspectorModel(stateData map[string]interface{}) inspectorModel {
	ti := textinput.New()
	ti.Placeholder = ""
	ti.Focus()
	ti.CharLimit = 2048
	ti.Width = 999
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorBlink)

	history := loadInspectorHistory(inspectorHistoryFile())

	var output []string
	if resources, ok := stateData["resources"].([]interface{}); ok {
		output = append(output, fmt.Sprintf("Interactive state console loaded. %d resources found.", len(resources)))
	}
	output = append(output, "Type 'help' for syntax, 'exit' or Ctrl+C to quit.")

	return inspectorModel{
		input:          ti,
		history:        history,
		sessionHistory: []string{},
		histIndex:      -1,
		output:         output,
		stateData:      stateData,
	}
}

func (m inspectorModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			entry := m.input.Value()
			if strings.TrimSpace(entry) != "" {
				if entry == "exit" || entry == "quit" {
					return m, tea.Quit
				}

				var result string
				if entry == "help" {
					result = inspectorHelp()
				} else {
					result = runInspectorQuery(m.stateData, entry)
				}

				m.history = append(m.history, entry)
				m.sessionHistory = append(m.sessionHistory, entry)
				m.histIndex = -1
				m.output = append(m.output, result)
				saveInspectorHistory(inspectorHistoryFile(), m.history)
			}
			m.input.SetValue("")
			return m, nil

		case "up":
			if len(m.history) == 0 {
				return m, nil
			}
			if m.histIndex == -1 {
				m.histIndex = len(m.history) - 1
			} else if m.histIndex > 0 {
				m.histIndex--
			}
			m.input.SetValue(m.history[m.histIndex])
			m.input.CursorEnd()
			return m, nil

		case "down":
			if len(m.history) == 0 {
				return m, nil
			}
			if m.histIndex >= 0 && m.histIndex < len(m.history)-1 {
				m.histIndex++
				m.input.SetValue(m.history[m.histIndex])
				m.input.CursorEnd()
			} else {
				m.histIndex = -1
				m.input.SetValue("")
			}
			return m, nil

		case "ctrl+c", "esc":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inspectorModel) View() string {
	promptStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#623CE4"))

	var lines []string

	// Welcome messages come first, then each session command with its output.
	if len(m.output) >= 2 {
		lines = append(lines, m.output[0])
		lines = append(lines, m.output[1])
	}

	for i := 0; i < len(m.sessionHistory); i++ {
		lines = append(lines, promptStyle.Render("> ")+m.sessionHistory[i])

		if (i + 2) < len(m.output) {
			lines = append(lines, m.output[i+2])
		}
	}

	lines = append(lines, promptStyle.Render("> ")+m.input.View())

	return strings.Join(lines, "\n")
}

func inspectorHelp() string {
	return `Query syntax:
  Three query modes supported:

  1. JSON output (queries starting with '.')
     .module.services                  - All resources in module.services
     .module.services.xxx.data        - All data sources in module.services.xxx
     .module.services.random_id.sfx   - Specific resource as JSON
     .module.services.google_storage_bucket[3]       - Indexed resource
     .module.services.google_storage_bucket["state"] - Named resource

  2. List output (queries not starting with '.')
     module.services                  - List all resources in module.services
     module.services.google_sql_database - List all matching resources
     module.services.google_sql_database.main - List specific resource
     module.services.google_storage_bucket[3]       - List indexed resource
     module.services.google_storage_bucket["state"] - List named resource

  3. Function evaluation (queries starting with '/')
     /coalesce(null, "default")       - Evaluate coalesce function
     /length("hello")                 - Get string length
     /upper("world")                  - Convert to uppercase
     /keys(outputs)                   - List output keys

  Special queries:
     terraform_version                - Get Terraform version
     version                          - Get state file version
     outputs.name                     - Get output value

  Navigation:
     ↑/↓ arrows                       - Navigate command history
     Ctrl+C                           - Exit

  Examples:
     .google_compute_instance.web[0]  - JSON for first matching instance
     /coalesce(null, "fallback")      - Function evaluation`
}

func inspectorHistoryFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".tfcheck_si_history"
	}
	return filepath.Join(homeDir, ".tfcheck_si_history")
}

func loadInspectorHistory(filename string) []string {
	var history []string

	file, err := os.Open(filename)
	if err != nil {
		return history
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			history = append(history, line)
		}
	}

	return history
}

// runInspectorQuery evaluates one query, capturing the printed output so the
// Bubble Tea view can render it inline.
func runInspectorQuery(stateData map[string]interface{}, query string) string {
	var result strings.Builder

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	si.ProcessQuery(stateData, query)

	w.Close()
	os.Stdout = oldStdout

	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			result.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	r.Close()

	output := result.String()
	if output == "" {
		return "No results found."
	}
	return strings.TrimSuffix(output, "\n")
}

// saveInspectorHistory trims the history to the most recent 1000 entries and
// writes it back. Failures are silent; history is best effort.
func saveInspectorHistory(filename string, history []string) {
	maxHistory := 1000
	start := 0
	if len(history) > maxHistory {
		start = len(history) - maxHistory
	}

	file, err := os.Create(filename)
	if err != nil {
		return
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for i := start; i < len(history); i++ {
		fmt.Fprintln(writer, history[i])
	}
	writer.Flush()
}

// NewSiCommand constructs the cli.Command for "si".
func NewSiCommand(m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "si",
		Hidden:    true,
		Usage:     "State inspector",
		UsageText: "tfcheck si rootdir [options]",
		Metadata: map[string]any{
			"meta": m,
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "passphrase",
				Aliases: []string{"p"},
				Usage:   "passphrase for encrypted state files",
				Value:   "",
			},
			&cli.StringFlag{
				Name:        "sv",
				Usage:       "state version to query",
				Value:       "0",
				HideDefault: true,
			},
			workspaceFlag,
		}, NewGlobalFlags("si")...),
		Action: siCommandAction,
	}
}
