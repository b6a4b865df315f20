// Package viewstate holds per-screen state for the project list and the
// project detail screens. Controllers fetch once on entry, then apply user
// actions to their cached copy instead of refetching.
//
// Every controller follows the same machine:
//
//	idle -> loading -> ready | error
//	ready -> mutating(action) -> ready            (success)
//	ready -> mutating(action) -> ready + Err()    (failure, data unchanged)
//
// Only one action runs at a time. Results that arrive after Close are dropped.
package viewstate

import (
	"errors"
	"log"
	"sync"

	"github.com/tgienger/taskmgr/internal/apiclient"
)

// Phase is the lifecycle stage of a controller
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError
	PhaseMutating
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	case PhaseMutating:
		return "mutating"
	}
	return "unknown"
}

// Action names the mutation in flight
type Action string

const (
	ActionNone          Action = ""
	ActionCreateProject Action = "create-project"
	ActionUpdateProject Action = "update-project"
	ActionDeleteProject Action = "delete-project"
	ActionCreateTask    Action = "create-task"
	ActionUpdateTask    Action = "update-task"
	ActionCompleteTask  Action = "complete-task"
	ActionDeleteTask    Action = "delete-task"
)

var (
	ErrBusy         = errors.New("another action is in progress")
	ErrNotReady     = errors.New("view is not loaded")
	ErrClosed       = errors.New("view closed")
	ErrNotConfirmed = errors.New("delete was not confirmed")
	ErrNotFound     = errors.New("not found")
)

// ValidationError is returned before any call is made when input is incomplete
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// machine is the state shared by all controllers. Fields are guarded by mu.
type machine struct {
	mu     sync.Mutex
	name   string
	phase  Phase
	action Action
	err    error
	notice *Notice
	closed bool
}

func (m *machine) beginLoadLocked() error {
	if m.closed {
		return ErrClosed
	}
	if m.phase == PhaseLoading || m.phase == PhaseMutating {
		return ErrBusy
	}
	m.phase = PhaseLoading
	m.err = nil
	return nil
}

func (m *machine) beginLocked(a Action) error {
	if m.closed {
		return ErrClosed
	}
	switch m.phase {
	case PhaseReady:
	case PhaseMutating, PhaseLoading:
		return ErrBusy
	default:
		return ErrNotReady
	}
	m.phase = PhaseMutating
	m.action = a
	m.err = nil
	return nil
}

// endLocked returns to ready, recording err when the action failed
func (m *machine) endLocked(err error) {
	m.phase = PhaseReady
	m.action = ActionNone
	m.err = err
}

// failLocked ends a failed action and reports it, unless the failure was a
// 401, which the API client already handled globally.
func (m *machine) failLocked(a Action, notice string, err error) {
	m.endLocked(err)
	log.Printf("%s: %s failed: %v", m.name, a, err)
	if apiclient.IsAuthExpired(err) {
		return
	}
	m.notice = &Notice{Level: NoticeError, Text: notice}
}

func (m *machine) invalidLocked(err *ValidationError) error {
	m.notice = &Notice{Level: NoticeError, Text: err.Message}
	return err
}

func (m *machine) succeedLocked(text string) {
	m.endLocked(nil)
	m.notice = &Notice{Level: NoticeSuccess, Text: text}
}

// Phase returns the current lifecycle stage
func (m *machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Err returns the failure of the last load or action, if any
func (m *machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// TakeNotice returns and clears the pending notice
func (m *machine) TakeNotice() (Notice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notice == nil {
		return Notice{}, false
	}
	n := *m.notice
	m.notice = nil
	return n, true
}

// Close tears the controller down; late results are discarded
func (m *machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// Closed reports whether Close has been called
func (m *machine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
