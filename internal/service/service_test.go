package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/tgienger/taskmgr/internal/apiclient"
	"github.com/tgienger/taskmgr/internal/apitest"
	"github.com/tgienger/taskmgr/internal/models"
)

type staticCreds struct{ token string }

func (s *staticCreds) Token() string { return s.token }
func (s *staticCreds) Logout() error { s.token = ""; return nil }

func setup(t *testing.T) (*apitest.Server, *staticCreds, *apiclient.Client) {
	t.Helper()
	srv := apitest.New(t)
	creds := &staticCreds{token: srv.AddUser("Ada", "ada@example.com", "secret")}
	return srv, creds, apiclient.New(srv.URL, creds)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	srv := apitest.New(t)
	auth := NewAuthService(apiclient.New(srv.URL, &staticCreds{}))
	ctx := context.Background()

	reg, err := auth.Register(ctx, "Bob", "bob@example.com", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !reg.Success || reg.Token == "" {
		t.Fatalf("expected success with token, got %+v", reg)
	}

	res, err := auth.Login(ctx, "bob@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.Success || res.Token == "" {
		t.Fatalf("expected success with token, got %+v", res)
	}

	_, err = auth.Login(ctx, "bob@example.com", "wrong")
	if apiclient.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %v", err)
	}

	_, err = auth.Register(ctx, "Bob", "bob@example.com", "pw")
	if apiclient.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %v", err)
	}
}

func TestProjectLifecycle(t *testing.T) {
	_, _, api := setup(t)
	projects := NewProjectService(api)
	ctx := context.Background()

	list, err := projects.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}

	p, err := projects.Create(ctx, "Plan", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 || p.Title != "Plan" || p.TotalTasks != 0 || p.ProgressPercentage != 0 {
		t.Fatalf("unexpected created project: %+v", p)
	}

	got, err := projects.Get(ctx, p.ID)
	if err != nil || got.Title != "Plan" {
		t.Fatalf("get: %+v %v", got, err)
	}

	upd, err := projects.Update(ctx, p.ID, "Plan v2", "details")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.Title != "Plan v2" || upd.Description != "details" {
		t.Fatalf("unexpected updated project: %+v", upd)
	}

	prog, err := projects.Progress(ctx, p.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if prog.TotalTasks != 0 || prog.ProgressPercentage != 0 {
		t.Fatalf("unexpected progress: %+v", prog)
	}

	if err := projects.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = projects.Get(ctx, p.ID)
	if apiclient.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	srv, _, api := setup(t)
	projects := NewProjectService(api)
	tasks := NewTaskService(api)
	ctx := context.Background()

	p, err := projects.Create(ctx, "Plan", "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	due := models.Today().AddDays(1)

	task, err := tasks.Create(ctx, p.ID, "Draft", "", due)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ProjectID != p.ID || task.DueDate != due || task.Completed {
		t.Fatalf("unexpected task: %+v", task)
	}

	list, err := tasks.List(ctx, p.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}

	upd, err := tasks.Update(ctx, p.ID, task.ID, "Draft 2", "more", due.AddDays(1))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.Title != "Draft 2" || upd.DueDate != due.AddDays(1) {
		t.Fatalf("unexpected update: %+v", upd)
	}

	done, err := tasks.Complete(ctx, p.ID, task.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completed {
		t.Fatal("expected completed task in response")
	}
	if n := srv.Calls(http.MethodPatch, "/api/projects/:id/tasks/:taskId/complete"); n != 1 {
		t.Fatalf("expected 1 complete call, got %d", n)
	}

	got, err := tasks.Get(ctx, p.ID, task.ID)
	if err != nil || !got.Completed {
		t.Fatalf("get: %+v %v", got, err)
	}

	prog, err := projects.Progress(ctx, p.ID)
	if err != nil || prog.ProgressPercentage != 100 {
		t.Fatalf("expected 100%% progress, got %+v %v", prog, err)
	}

	if err := tasks.Delete(ctx, p.ID, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err = tasks.List(ctx, p.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no tasks, got %v %v", list, err)
	}
}

func TestExpiredTokenTearsDownCredentials(t *testing.T) {
	srv, creds, api := setup(t)
	srv.ExpireTokens()

	_, err := NewProjectService(api).List(context.Background())
	if !apiclient.IsAuthExpired(err) {
		t.Fatalf("expected auth expired, got %v", err)
	}
	if creds.token != "" {
		t.Fatal("expected credentials cleared after 401")
	}
}
