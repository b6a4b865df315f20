package viewstate

import (
	"context"
	"log"
	"slices"
	"strings"

	"github.com/tgienger/taskmgr/internal/models"
)

// ProjectLister is the part of the project service the list screen uses
type ProjectLister interface {
	List(ctx context.Context) ([]models.Project, error)
	Create(ctx context.Context, title, description string) (models.Project, error)
	Delete(ctx context.Context, id int64) error
}

// ProjectList is the controller behind the project list screen
type ProjectList struct {
	machine
	api      ProjectLister
	projects []models.Project
	pending  *int64
}

// ProjectListSnapshot is a consistent copy of the list state
type ProjectListSnapshot struct {
	Phase    Phase
	Action   Action
	Err      error
	Projects []models.Project
	// PendingDelete is set while a delete awaits confirmation
	PendingDelete *models.Project
}

func NewProjectList(api ProjectLister) *ProjectList {
	return &ProjectList{machine: machine{name: "projects"}, api: api}
}

// Load fetches the full project list
func (v *ProjectList) Load(ctx context.Context) error {
	v.mu.Lock()
	if err := v.beginLoadLocked(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()

	projects, err := v.api.List(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err != nil {
		v.phase = PhaseError
		v.err = err
		log.Printf("projects: load failed: %v", err)
		v.notice = &Notice{Level: NoticeError, Text: "Failed to load projects"}
		return err
	}
	v.projects = projects
	v.phase = PhaseReady
	return nil
}

// Snapshot returns a copy of the current state
func (v *ProjectList) Snapshot() ProjectListSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := ProjectListSnapshot{
		Phase:    v.phase,
		Action:   v.action,
		Err:      v.err,
		Projects: slices.Clone(v.projects),
	}
	if v.pending != nil {
		if i := v.indexLocked(*v.pending); i >= 0 {
			p := v.projects[i]
			s.PendingDelete = &p
		}
	}
	return s
}

// Projects returns a copy of the cached list
func (v *ProjectList) Projects() []models.Project {
	return v.Snapshot().Projects
}

func (v *ProjectList) indexLocked(id int64) int {
	return slices.IndexFunc(v.projects, func(p models.Project) bool { return p.ID == id })
}

// Create validates the title, creates the project and appends the server's copy
func (v *ProjectList) Create(ctx context.Context, title, description string) (models.Project, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	v.mu.Lock()
	if title == "" {
		defer v.mu.Unlock()
		return models.Project{}, v.invalidLocked(&ValidationError{Field: "title", Message: "Title is required"})
	}
	if err := v.beginLocked(ActionCreateProject); err != nil {
		v.mu.Unlock()
		return models.Project{}, err
	}
	v.mu.Unlock()

	created, err := v.api.Create(ctx, title, description)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return models.Project{}, ErrClosed
	}
	if err != nil {
		v.failLocked(ActionCreateProject, "Failed to create project", err)
		return models.Project{}, err
	}
	v.projects = append(v.projects, created)
	v.succeedLocked("Project created")
	return created, nil
}

// RequestDelete marks a project for deletion; ConfirmDelete performs it
func (v *ProjectList) RequestDelete(id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.indexLocked(id) < 0 {
		return ErrNotFound
	}
	v.pending = &id
	return nil
}

// CancelDelete drops a pending delete request
func (v *ProjectList) CancelDelete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = nil
}

// ConfirmDelete deletes the project chosen with RequestDelete. On success the
// project is removed from the local list; on failure the list is unchanged.
func (v *ProjectList) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	if v.pending == nil {
		v.mu.Unlock()
		return ErrNotConfirmed
	}
	id := *v.pending
	if err := v.beginLocked(ActionDeleteProject); err != nil {
		v.mu.Unlock()
		return err
	}
	v.pending = nil
	v.mu.Unlock()

	err := v.api.Delete(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err != nil {
		v.failLocked(ActionDeleteProject, "Failed to delete project", err)
		return err
	}
	v.projects = slices.DeleteFunc(v.projects, func(p models.Project) bool { return p.ID == id })
	v.succeedLocked("Project deleted")
	return nil
}
