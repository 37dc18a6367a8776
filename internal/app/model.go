package app

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/mass-rtp-search/internal/services"
	"github.com/j-veylop/mass-rtp-search/internal/ui/styles"
)

// KeyMap defines the keybindings for the progress view.
type KeyMap struct {
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "stop")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// Model is the progress view. It renders manager events until the caller
// sends RunDoneMsg or the user stops the run.
type Model struct {
	events   <-chan services.ServiceEvent
	cancel   context.CancelFunc
	state    *State
	doneErr  error
	keys     KeyMap
	spinner  spinner.Model
	bar      progress.Model
	width    int
	watch    bool
	quitting bool
	finished bool
}

// New creates the progress view. cancel is called when the user quits; watch
// only changes the header.
func New(events <-chan services.ServiceEvent, cancel context.CancelFunc, watch bool) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	bar := progress.New(
		progress.WithScaledGradient("#ff6b6b", "#51cf66"),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return Model{
		events:  events,
		cancel:  cancel,
		state:   NewState(),
		keys:    DefaultKeyMap(),
		spinner: s,
		bar:     bar,
		width:   80,
		watch:   watch,
	}
}

// Init starts the spinner and begins listening for events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForServiceEventCmd(m.events))
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(60, msg.Width-24))

	case ServiceEventMsg:
		m.state.Apply(msg.Event)
		return m, waitForServiceEventCmd(m.events)

	case RunDoneMsg:
		m.finished = true
		m.doneErr = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// State returns the run progress.
func (m Model) State() *State {
	return m.state
}

// Quitting reports whether the user stopped the run.
func (m Model) Quitting() bool {
	return m.quitting
}

// Finished reports whether the caller signalled completion.
func (m Model) Finished() bool {
	return m.finished
}
