// Package prompt asks for a date on the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user dismisses the prompt.
var ErrCancelled = errors.New("prompt cancelled")

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

type model struct {
	title     string
	input     textinput.Model
	submitted bool
	cancelled bool
}

func newModel(title, initial, placeholder string) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	ti.CharLimit = 64
	ti.Width = 32
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	ti.SetValue(initial)
	ti.CursorEnd()
	ti.Focus()
	return model{title: title, input: ti}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n%s\n",
		titleStyle.Render(m.title),
		m.input.View(),
		hintStyle.Render("enter to fetch, esc to cancel"))
}

// value returns the trimmed input once submitted.
func (m model) value() (string, error) {
	if m.cancelled || !m.submitted {
		return "", ErrCancelled
	}
	return strings.TrimSpace(m.input.Value()), nil
}

// Date runs an inline prompt pre-filled with initial and returns what the
// user entered. format is shown as the placeholder.
func Date(ctx context.Context, initial, format string, in io.Reader, out io.Writer) (string, error) {
	p := tea.NewProgram(
		newModel("Fetch WakaTime summary for date", initial, format),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("run prompt: %w", err)
	}
	return final.(model).value()
}
