package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/mass-rtp-search/internal/services"
)

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}
