package service

import (
	"context"
	"net/http"

	"github.com/tgienger/taskmgr/internal/models"
)

// TaskService maps task operations to REST calls
type TaskService struct {
	api Caller
}

func NewTaskService(api Caller) *TaskService {
	return &TaskService{api: api}
}

type taskRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	DueDate     models.Date `json:"dueDate"`
}

// emptyBody is sent with the complete call so the server sees a JSON request
type emptyBody struct{}

func (s *TaskService) List(ctx context.Context, projectID int64) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.api.Do(ctx, http.MethodGet, tasksPath(projectID), nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, projectID, taskID int64) (models.Task, error) {
	var t models.Task
	err := s.api.Do(ctx, http.MethodGet, taskPath(projectID, taskID), nil, &t)
	return t, err
}

func (s *TaskService) Create(ctx context.Context, projectID int64, title, description string, due models.Date) (models.Task, error) {
	var t models.Task
	err := s.api.Do(ctx, http.MethodPost, tasksPath(projectID), taskRequest{Title: title, Description: description, DueDate: due}, &t)
	return t, err
}

func (s *TaskService) Update(ctx context.Context, projectID, taskID int64, title, description string, due models.Date) (models.Task, error) {
	var t models.Task
	err := s.api.Do(ctx, http.MethodPut, taskPath(projectID, taskID), taskRequest{Title: title, Description: description, DueDate: due}, &t)
	return t, err
}

// Complete marks a task done. The returned body is the server's view of the task.
func (s *TaskService) Complete(ctx context.Context, projectID, taskID int64) (models.Task, error) {
	var t models.Task
	err := s.api.Do(ctx, http.MethodPatch, completeTaskPath(projectID, taskID), emptyBody{}, &t)
	return t, err
}

func (s *TaskService) Delete(ctx context.Context, projectID, taskID int64) error {
	return s.api.Do(ctx, http.MethodDelete, taskPath(projectID, taskID), nil, nil)
}
