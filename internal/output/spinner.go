package output

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// spinDoneMsg tells the spinner that the work finished.
type spinDoneMsg struct{}

type spinModel struct {
	spinner spinner.Model
	label   string
	done    bool
}

func newSpinModel(label string) spinModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = tagStyle
	return spinModel{spinner: sp, label: label}
}

func (m spinModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + subtleStyle.Render(m.label)
}

// Spin runs fn while a spinner labelled label animates on stderr. Off a
// terminal fn just runs. An interrupt cancels the context passed to fn.
func Spin(ctx context.Context, label string, fn func(context.Context) error) error {
	if !IsTerminal() {
		return fn(ctx)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpinModel(label),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(os.Stderr),
	)
	errc := make(chan error, 1)
	go func() {
		errc <- fn(ctx)
		p.Send(spinDoneMsg{})
	}()
	if _, err := p.Run(); err != nil {
		cancel()
	}
	return <-errc
}
