package viewstate

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tgienger/taskmgr/internal/models"
)

// ProjectAPI is the part of the project service the detail screen uses
type ProjectAPI interface {
	Get(ctx context.Context, id int64) (models.Project, error)
	Update(ctx context.Context, id int64, title, description string) (models.Project, error)
	Delete(ctx context.Context, id int64) error
}

// TaskAPI is the part of the task service the detail screen uses
type TaskAPI interface {
	List(ctx context.Context, projectID int64) ([]models.Task, error)
	Create(ctx context.Context, projectID int64, title, description string, due models.Date) (models.Task, error)
	Update(ctx context.Context, projectID, taskID int64, title, description string, due models.Date) (models.Task, error)
	Complete(ctx context.Context, projectID, taskID int64) (models.Task, error)
	Delete(ctx context.Context, projectID, taskID int64) error
}

type deleteTarget struct {
	project bool
	taskID  int64
}

// ProjectDetail is the controller behind the project detail screen: one
// project and its tasks.
//
// Edits (UpdateProject, UpdateTask) take the server's returned entity as the
// new truth. Count changes (create, complete, delete task) are applied to the
// cached project with local arithmetic only.
type ProjectDetail struct {
	machine
	projects ProjectAPI
	tasks    TaskAPI

	id      int64
	project models.Project
	list    []models.Task
	pending *deleteTarget
	deleted bool
}

// DetailSnapshot is a consistent copy of the detail state
type DetailSnapshot struct {
	Phase   Phase
	Action  Action
	Err     error
	Project models.Project
	Tasks   []models.Task
	// PendingTask is set while a task delete awaits confirmation
	PendingTask *models.Task
	// PendingProject is set while the project delete awaits confirmation
	PendingProject bool
	// Deleted is set once the project itself has been deleted
	Deleted bool
}

func NewProjectDetail(projectID int64, projects ProjectAPI, tasks TaskAPI) *ProjectDetail {
	return &ProjectDetail{
		machine:  machine{name: fmt.Sprintf("project %d", projectID)},
		projects: projects,
		tasks:    tasks,
		id:       projectID,
	}
}

// ProjectID returns the id this controller was opened for
func (v *ProjectDetail) ProjectID() int64 { return v.id }

// Load fetches the project and its tasks concurrently. Both must succeed;
// otherwise nothing is applied and the controller enters the error phase.
func (v *ProjectDetail) Load(ctx context.Context) error {
	v.mu.Lock()
	if err := v.beginLoadLocked(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()

	var (
		project models.Project
		tasks   []models.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		project, err = v.projects.Get(gctx, v.id)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = v.tasks.List(gctx, v.id)
		return err
	})
	err := g.Wait()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err != nil {
		v.phase = PhaseError
		v.err = err
		log.Printf("%s: load failed: %v", v.name, err)
		v.notice = &Notice{Level: NoticeError, Text: "Failed to load project"}
		return err
	}
	v.project = project.WithCounts(project.TotalTasks, project.CompletedTasks)
	v.list = tasks
	v.phase = PhaseReady
	return nil
}

// Snapshot returns a copy of the current state
func (v *ProjectDetail) Snapshot() DetailSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := DetailSnapshot{
		Phase:   v.phase,
		Action:  v.action,
		Err:     v.err,
		Project: v.project,
		Tasks:   slices.Clone(v.list),
		Deleted: v.deleted,
	}
	if v.pending != nil {
		if v.pending.project {
			s.PendingProject = true
		} else if i := v.taskIndexLocked(v.pending.taskID); i >= 0 {
			t := v.list[i]
			s.PendingTask = &t
		}
	}
	return s
}

func (v *ProjectDetail) taskIndexLocked(id int64) int {
	return slices.IndexFunc(v.list, func(t models.Task) bool { return t.ID == id })
}

func validateTask(title string, due models.Date) *ValidationError {
	if title == "" || due.IsZero() {
		return &ValidationError{Field: "title", Message: "Title and due date are required"}
	}
	return nil
}

// CreateTask creates a task, appends it and counts it in the project totals
func (v *ProjectDetail) CreateTask(ctx context.Context, title, description string, due models.Date) (models.Task, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	v.mu.Lock()
	if verr := validateTask(title, due); verr != nil {
		defer v.mu.Unlock()
		return models.Task{}, v.invalidLocked(verr)
	}
	if err := v.beginLocked(ActionCreateTask); err != nil {
		v.mu.Unlock()
		return models.Task{}, err
	}
	v.mu.Unlock()

	created, err := v.tasks.Create(ctx, v.id, title, description, due)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return models.Task{}, ErrClosed
	}
	if err != nil {
		v.failLocked(ActionCreateTask, "Failed to create task", err)
		return models.Task{}, err
	}
	v.list = append(v.list, created)
	v.project = v.project.WithCounts(v.project.TotalTasks+1, v.project.CompletedTasks)
	v.succeedLocked("Task created")
	return created, nil
}

// UpdateTask edits a task and replaces the cached copy with the server's
func (v *ProjectDetail) UpdateTask(ctx context.Context, taskID int64, title, description string, due models.Date) (models.Task, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	v.mu.Lock()
	if v.taskIndexLocked(taskID) < 0 {
		v.mu.Unlock()
		return models.Task{}, ErrNotFound
	}
	if verr := validateTask(title, due); verr != nil {
		defer v.mu.Unlock()
		return models.Task{}, v.invalidLocked(verr)
	}
	if err := v.beginLocked(ActionUpdateTask); err != nil {
		v.mu.Unlock()
		return models.Task{}, err
	}
	v.mu.Unlock()

	updated, err := v.tasks.Update(ctx, v.id, taskID, title, description, due)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return models.Task{}, ErrClosed
	}
	if err != nil {
		v.failLocked(ActionUpdateTask, "Failed to update task", err)
		return models.Task{}, err
	}
	if i := v.taskIndexLocked(taskID); i >= 0 {
		// Completion is owned by CompleteTask; an edit never reopens a task.
		updated.Completed = updated.Completed || v.list[i].Completed
		v.list[i] = updated
	}
	v.succeedLocked("Task updated")
	return updated, nil
}

// CompleteTask marks a task done. Completing a task that is already done is a
// no-op: no call is made and nothing changes.
func (v *ProjectDetail) CompleteTask(ctx context.Context, taskID int64) error {
	v.mu.Lock()
	i := v.taskIndexLocked(taskID)
	if i < 0 {
		v.mu.Unlock()
		return ErrNotFound
	}
	if v.list[i].Completed {
		v.mu.Unlock()
		return nil
	}
	if err := v.beginLocked(ActionCompleteTask); err != nil {
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()

	_, err := v.tasks.Complete(ctx, v.id, taskID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err != nil {
		v.failLocked(ActionCompleteTask, describe(err), err)
		return err
	}
	if i := v.taskIndexLocked(taskID); i >= 0 {
		v.list[i].Completed = true
	}
	v.project = v.project.WithCounts(v.project.TotalTasks, v.project.CompletedTasks+1)
	v.succeedLocked("Task completed!")
	return nil
}

// RequestDeleteTask marks a task for deletion; ConfirmDelete performs it
func (v *ProjectDetail) RequestDeleteTask(taskID int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.taskIndexLocked(taskID) < 0 {
		return ErrNotFound
	}
	v.pending = &deleteTarget{taskID: taskID}
	return nil
}

// RequestDeleteProject marks the project itself for deletion
func (v *ProjectDetail) RequestDeleteProject() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.phase != PhaseReady && v.phase != PhaseMutating {
		return ErrNotReady
	}
	v.pending = &deleteTarget{project: true}
	return nil
}

// CancelDelete drops a pending delete request
func (v *ProjectDetail) CancelDelete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = nil
}

// ConfirmDelete performs the delete chosen with RequestDeleteTask or
// RequestDeleteProject. The target is fixed when the action begins.
func (v *ProjectDetail) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	target := v.pending
	if target == nil {
		v.mu.Unlock()
		return ErrNotConfirmed
	}
	action := ActionDeleteProject
	var removed models.Task
	if !target.project {
		i := v.taskIndexLocked(target.taskID)
		if i < 0 {
			v.pending = nil
			v.mu.Unlock()
			return ErrNotFound
		}
		removed = v.list[i]
		action = ActionDeleteTask
	}
	if err := v.beginLocked(action); err != nil {
		v.mu.Unlock()
		return err
	}
	v.pending = nil
	v.mu.Unlock()

	if target.project {
		return v.deleteProject(ctx)
	}
	return v.deleteTask(ctx, removed)
}

// deleteTask runs once ConfirmDelete has begun ActionDeleteTask. Counts are
// adjusted from removed, the task as it was before the call.
func (v *ProjectDetail) deleteTask(ctx context.Context, removed models.Task) error {
	taskID := removed.ID
	err := v.tasks.Delete(ctx, v.id, taskID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err != nil {
		v.failLocked(ActionDeleteTask, "Failed to delete task", err)
		return err
	}
	v.list = slices.DeleteFunc(v.list, func(t models.Task) bool { return t.ID == taskID })
	completed := v.project.CompletedTasks
	if removed.Completed {
		completed--
	}
	v.project = v.project.WithCounts(v.project.TotalTasks-1, completed)
	v.succeedLocked("Task deleted")
	return nil
}

func (v *ProjectDetail) deleteProject(ctx context.Context) error {
	err := v.projects.Delete(ctx, v.id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err != nil {
		v.failLocked(ActionDeleteProject, "Failed to delete project", err)
		return err
	}
	v.project = models.Project{}
	v.list = nil
	v.deleted = true
	v.succeedLocked("Project deleted")
	return nil
}

// UpdateProject edits the project and takes the server's copy as-is
func (v *ProjectDetail) UpdateProject(ctx context.Context, title, description string) (models.Project, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	v.mu.Lock()
	if title == "" {
		defer v.mu.Unlock()
		return models.Project{}, v.invalidLocked(&ValidationError{Field: "title", Message: "Title is required"})
	}
	if err := v.beginLocked(ActionUpdateProject); err != nil {
		v.mu.Unlock()
		return models.Project{}, err
	}
	v.mu.Unlock()

	updated, err := v.projects.Update(ctx, v.id, title, description)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return models.Project{}, ErrClosed
	}
	if err != nil {
		v.failLocked(ActionUpdateProject, "Failed to update project", err)
		return models.Project{}, err
	}
	v.project = updated
	v.succeedLocked("Project updated")
	return updated, nil
}
