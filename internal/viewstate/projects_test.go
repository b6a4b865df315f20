package viewstate

import (
	"context"
	"errors"
	"testing"

	"github.com/tgienger/taskmgr/internal/models"
)

func loadedList(t *testing.T, api *fakeAPI) *ProjectList {
	t.Helper()
	v := NewProjectList(api)
	if v.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %s", v.Phase())
	}
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if v.Phase() != PhaseReady {
		t.Fatalf("expected ready, got %s", v.Phase())
	}
	return v
}

func TestProjectListLoadFailureEntersError(t *testing.T) {
	api := newFakeAPI()
	api.failNext("projects.List", errServer)
	v := NewProjectList(api)
	if err := v.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if v.Phase() != PhaseError {
		t.Fatalf("expected error phase, got %s", v.Phase())
	}
	if n, ok := v.TakeNotice(); !ok || n.Level != NoticeError {
		t.Fatalf("expected error notice, got %+v ok=%v", n, ok)
	}
	if _, err := v.Create(context.Background(), "Plan", ""); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady before a successful load, got %v", err)
	}
}

func TestProjectListCreateAppendsServerCopy(t *testing.T) {
	api := newFakeAPI()
	api.seed(models.Project{ID: 1, Title: "Existing"})
	v := loadedList(t, api)

	created, err := v.Create(context.Background(), "  Plan  ", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Title != "Plan" {
		t.Fatalf("expected trimmed title, got %q", created.Title)
	}
	got := v.Projects()
	if len(got) != 2 || got[1].ID != created.ID {
		t.Fatalf("expected created project appended, got %+v", got)
	}
	if got[1].TotalTasks != 0 || got[1].CompletedTasks != 0 || got[1].ProgressPercentage != 0 {
		t.Fatalf("expected empty counters, got %+v", got[1])
	}
	if api.count("projects.List") != 1 {
		t.Fatalf("create must not refetch the list, got %d list calls", api.count("projects.List"))
	}
}

func TestProjectListBlankTitleNeverCallsAPI(t *testing.T) {
	api := newFakeAPI()
	v := loadedList(t, api)

	_, err := v.Create(context.Background(), "   ", "desc")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "title" {
		t.Fatalf("expected title validation error, got %v", err)
	}
	if api.count("projects.Create") != 0 {
		t.Fatal("validation failure must not reach the API")
	}
	if v.Phase() != PhaseReady {
		t.Fatalf("expected ready, got %s", v.Phase())
	}
}

func TestProjectListDeleteRequiresConfirmation(t *testing.T) {
	api := newFakeAPI()
	api.seed(models.Project{ID: 1, Title: "A"})
	v := loadedList(t, api)

	if err := v.ConfirmDelete(context.Background()); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if err := v.RequestDelete(1); err != nil {
		t.Fatalf("request: %v", err)
	}
	if snap := v.Snapshot(); snap.PendingDelete == nil || snap.PendingDelete.ID != 1 {
		t.Fatalf("expected pending delete of 1, got %+v", snap.PendingDelete)
	}
	v.CancelDelete()
	if err := v.ConfirmDelete(context.Background()); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed after cancel, got %v", err)
	}
	if api.count("projects.Delete") != 0 {
		t.Fatal("no delete call expected without confirmation")
	}

	if err := v.RequestDelete(1); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := v.ConfirmDelete(context.Background()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(v.Projects()) != 0 {
		t.Fatalf("expected project removed, got %+v", v.Projects())
	}
	if err := v.RequestDelete(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectListFailedDeleteKeepsList(t *testing.T) {
	api := newFakeAPI()
	api.seed(models.Project{ID: 1, Title: "A"})
	v := loadedList(t, api)

	api.failNext("projects.Delete", errServer)
	if err := v.RequestDelete(1); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := v.ConfirmDelete(context.Background()); err == nil {
		t.Fatal("expected delete error")
	}
	snap := v.Snapshot()
	if len(snap.Projects) != 1 {
		t.Fatalf("expected list unchanged, got %+v", snap.Projects)
	}
	if snap.Phase != PhaseReady || snap.Err == nil {
		t.Fatalf("expected ready-with-error, got %s err=%v", snap.Phase, snap.Err)
	}
	if n, ok := v.TakeNotice(); !ok || n.Text != "Failed to delete project" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestProjectListRejectsConcurrentAction(t *testing.T) {
	api := newFakeAPI()
	v := loadedList(t, api)

	release := api.hold("projects.Create")
	done := make(chan error)
	go func() {
		_, err := v.Create(context.Background(), "First", "")
		done <- err
	}()
	for v.Phase() != PhaseMutating {
	}
	if _, err := v.Create(context.Background(), "Second", ""); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("first create: %v", err)
	}
	if len(v.Projects()) != 1 {
		t.Fatalf("expected exactly one project, got %d", len(v.Projects()))
	}
}

func TestProjectListDropsResultsAfterClose(t *testing.T) {
	api := newFakeAPI()
	v := loadedList(t, api)

	release := api.hold("projects.Create")
	done := make(chan error)
	go func() {
		_, err := v.Create(context.Background(), "Late", "")
		done <- err
	}()
	for v.Phase() != PhaseMutating {
	}
	v.Close()
	release()
	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if len(v.Projects()) != 0 {
		t.Fatal("late result must not be applied to a closed view")
	}
}
