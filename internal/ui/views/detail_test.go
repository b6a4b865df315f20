package views

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/taskmgr/internal/apiclient"
	"github.com/tgienger/taskmgr/internal/apitest"
	"github.com/tgienger/taskmgr/internal/models"
	"github.com/tgienger/taskmgr/internal/service"
	"github.com/tgienger/taskmgr/internal/viewstate"
)

type tokenCreds struct{ token string }

func (c *tokenCreds) Token() string { return c.token }
func (c *tokenCreds) Logout() error { c.token = ""; return nil }

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive runs cmd and feeds its message back, like the program loop would
func drive(t *testing.T, v tea.Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	v.Update(cmd())
}

func newDetailView(t *testing.T) (*ProjectDetailView, *apitest.Server, models.Project) {
	t.Helper()
	srv := apitest.New(t)
	token := srv.AddUser("Ada", "ada@example.com", "pw")
	api := apiclient.New(srv.URL, &tokenCreds{token: token})

	today := models.NewDate(2026, 3, 10)
	p := srv.SeedProject("ada@example.com", "Launch", "")
	srv.SeedTask(p.ID, "Late", today.AddDays(-1), false)
	srv.SeedTask(p.ID, "Soon", today.AddDays(2), false)
	srv.SeedTask(p.ID, "Done", today.AddDays(-5), true)

	ctrl := viewstate.NewProjectDetail(p.ID, service.NewProjectService(api), service.NewTaskService(api))
	v := NewProjectDetailView(ctrl)
	v.today = func() models.Date { return today }
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	drive(t, v, v.Init())
	return v, srv, p
}

func TestDetailRendersDueStates(t *testing.T) {
	v, _, _ := newDetailView(t)

	out := v.View()
	for _, want := range []string{"Launch", "Due 09/03/2026 (overdue)", "Due 12/03/2026 (due soon)", "Due 05/03/2026", "33%", "1 of 3 tasks completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in view:\n%s", want, out)
		}
	}
}

func TestDetailCompleteUpdatesProgress(t *testing.T) {
	v, srv, p := newDetailView(t)

	_, cmd := v.Update(keyMsg("c"))
	drive(t, v, cmd)

	snap := v.ctrl.Snapshot()
	if snap.Project.CompletedTasks != 2 {
		t.Fatalf("expected 2 completed, got %+v", snap.Project)
	}
	remote, _ := srv.Project(p.ID)
	if remote.CompletedTasks != snap.Project.CompletedTasks {
		t.Fatalf("local %+v drifted from server %+v", snap.Project, remote)
	}
	if out := v.View(); !strings.Contains(out, "Task completed!") || !strings.Contains(out, "67%") {
		t.Fatalf("expected notice and new progress in view:\n%s", out)
	}
}

func TestDetailNewTaskValidationKeepsForm(t *testing.T) {
	v, srv, p := newDetailView(t)

	v.Update(keyMsg("n"))
	for _, r := range "Write docs" {
		v.Update(keyMsg(string(r)))
	}
	_, cmd := v.Update(keyMsg("ctrl+s"))
	drive(t, v, cmd)

	if v.form != formNewTask {
		t.Fatal("form should stay open on validation failure")
	}
	if !strings.Contains(v.View(), "Title and due date are required") {
		t.Fatalf("expected validation message in view:\n%s", v.View())
	}
	if n := srv.Calls("POST", "/api/projects/:id/tasks"); n != 0 {
		t.Fatalf("expected no create call, got %d", n)
	}

	v.focusIdx = 2
	v.updateEditFocus()
	for _, r := range "2026-04-01" {
		v.Update(keyMsg(string(r)))
	}
	_, cmd = v.Update(keyMsg("ctrl+s"))
	drive(t, v, cmd)
	if v.form != formNone {
		t.Fatalf("expected form closed, error %q", v.formErr)
	}
	remote, _ := srv.Project(p.ID)
	if remote.TotalTasks != 4 || v.ctrl.Snapshot().Project.TotalTasks != 4 {
		t.Fatalf("expected 4 tasks locally and remotely, got %+v / %+v", v.ctrl.Snapshot().Project, remote)
	}
}

func TestDetailDeleteNeedsConfirmation(t *testing.T) {
	v, srv, _ := newDetailView(t)

	v.Update(keyMsg("d"))
	if !strings.Contains(v.View(), "Delete Task?") {
		t.Fatalf("expected confirmation prompt:\n%s", v.View())
	}
	v.Update(keyMsg("n"))
	if v.ctrl.Snapshot().PendingTask != nil {
		t.Fatal("expected pending delete cancelled")
	}

	v.Update(keyMsg("D"))
	_, cmd := v.Update(keyMsg("y"))
	msg := cmd()
	_, next := v.Update(msg)
	if next == nil {
		t.Fatal("expected ProjectDeleted command")
	}
	if _, ok := next().(ProjectDeleted); !ok {
		t.Fatal("expected ProjectDeleted message")
	}
	if n := srv.Calls("DELETE", "/api/projects/:id"); n != 1 {
		t.Fatalf("expected one project delete, got %d", n)
	}
}

func TestDetailIgnoresOtherControllersResults(t *testing.T) {
	v, _, _ := newDetailView(t)
	before := v.ctrl.Snapshot()

	other := viewstate.NewProjectDetail(999, nil, nil)
	v.Update(detailActionMsg{ctrl: other, err: nil})
	v.Update(detailLoadedMsg{ctrl: other, err: nil})

	if got := v.ctrl.Snapshot(); len(got.Tasks) != len(before.Tasks) || got.Project != before.Project {
		t.Fatal("results from another controller must not touch this view")
	}
}
