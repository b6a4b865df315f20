package viewstate

import (
	"context"
	"errors"
	"sync"

	"github.com/tgienger/taskmgr/internal/apiclient"
	"github.com/tgienger/taskmgr/internal/models"
)

var errServer = &apiclient.Error{Kind: apiclient.KindStatus, Method: "X", Path: "/x", Status: 500, Message: "boom"}

// fakeAPI implements every service interface the controllers use. Each call is
// counted; failNext makes the next call of a method fail.
type fakeAPI struct {
	mu       sync.Mutex
	nextID   int64
	projects map[int64]models.Project
	tasks    map[int64][]models.Task
	calls    map[string]int
	fail     map[string]error
	// gate, when set, is waited on inside the named method
	gate map[string]chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID:   100,
		projects: map[int64]models.Project{},
		tasks:    map[int64][]models.Task{},
		calls:    map[string]int{},
		fail:     map[string]error{},
		gate:     map[string]chan struct{}{},
	}
}

func (f *fakeAPI) enter(method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.fail[method]
	delete(f.fail, method)
	gate := f.gate[method]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeAPI) failNext(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeAPI) hold(method string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gate[method] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) seed(p models.Project, tasks ...models.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[p.ID] = p
	f.tasks[p.ID] = tasks
}

func (f *fakeAPI) id() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID
}

// ProjectLister / ProjectAPI

func (f *fakeAPI) List(ctx context.Context) ([]models.Project, error) {
	if err := f.enter("projects.List"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Project{}
	for _, p := range f.projects {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeAPI) Get(ctx context.Context, id int64) (models.Project, error) {
	if err := f.enter("projects.Get"); err != nil {
		return models.Project{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return models.Project{}, errors.New("project not found")
	}
	return p, nil
}

func (f *fakeAPI) Create(ctx context.Context, title, description string) (models.Project, error) {
	if err := f.enter("projects.Create"); err != nil {
		return models.Project{}, err
	}
	p := models.Project{ID: f.id(), Title: title, Description: description}
	f.seed(p)
	return p, nil
}

func (f *fakeAPI) Update(ctx context.Context, id int64, title, description string) (models.Project, error) {
	if err := f.enter("projects.Update"); err != nil {
		return models.Project{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.projects[id]
	p.Title, p.Description = title, description
	f.projects[id] = p
	return p, nil
}

func (f *fakeAPI) Delete(ctx context.Context, id int64) error {
	if err := f.enter("projects.Delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.projects, id)
	delete(f.tasks, id)
	return nil
}

// taskFake adapts fakeAPI to TaskAPI; method names collide with the project side
type taskFake struct{ *fakeAPI }

func (f taskFake) List(ctx context.Context, projectID int64) ([]models.Task, error) {
	if err := f.enter("tasks.List"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Task{}, f.tasks[projectID]...), nil
}

func (f taskFake) Create(ctx context.Context, projectID int64, title, description string, due models.Date) (models.Task, error) {
	if err := f.enter("tasks.Create"); err != nil {
		return models.Task{}, err
	}
	t := models.Task{ID: f.id(), ProjectID: projectID, Title: title, Description: description, DueDate: due}
	f.mu.Lock()
	f.tasks[projectID] = append(f.tasks[projectID], t)
	f.mu.Unlock()
	return t, nil
}

func (f taskFake) Update(ctx context.Context, projectID, taskID int64, title, description string, due models.Date) (models.Task, error) {
	if err := f.enter("tasks.Update"); err != nil {
		return models.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks[projectID] {
		if t.ID == taskID {
			t.Title, t.Description, t.DueDate = title, description, due
			f.tasks[projectID][i] = t
			return t, nil
		}
	}
	return models.Task{}, errors.New("task not found")
}

func (f taskFake) Complete(ctx context.Context, projectID, taskID int64) (models.Task, error) {
	if err := f.enter("tasks.Complete"); err != nil {
		return models.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks[projectID] {
		if t.ID == taskID {
			t.Completed = true
			f.tasks[projectID][i] = t
			return t, nil
		}
	}
	return models.Task{}, errors.New("task not found")
}

func (f taskFake) Delete(ctx context.Context, projectID, taskID int64) error {
	if err := f.enter("tasks.Delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.tasks[projectID][:0]
	for _, t := range f.tasks[projectID] {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	f.tasks[projectID] = kept
	return nil
}
