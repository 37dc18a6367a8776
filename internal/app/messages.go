package app

import "github.com/j-veylop/mass-rtp-search/internal/services"

// ServiceEventMsg wraps an event received from the manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// RunDoneMsg is sent by the caller when the run (or watch loop) returns.
type RunDoneMsg struct {
	Err error
}
