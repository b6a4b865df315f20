package service

import (
	"context"
	"net/http"

	"github.com/tgienger/taskmgr/internal/models"
)

// ProjectService maps project operations to REST calls
type ProjectService struct {
	api Caller
}

func NewProjectService(api Caller) *ProjectService {
	return &ProjectService{api: api}
}

type projectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// List returns all projects of the signed-in user
func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := s.api.Do(ctx, http.MethodGet, projectsPath, nil, &projects); err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	err := s.api.Do(ctx, http.MethodGet, projectPath(id), nil, &p)
	return p, err
}

func (s *ProjectService) Create(ctx context.Context, title, description string) (models.Project, error) {
	var p models.Project
	err := s.api.Do(ctx, http.MethodPost, projectsPath, projectRequest{Title: title, Description: description}, &p)
	return p, err
}

func (s *ProjectService) Update(ctx context.Context, id int64, title, description string) (models.Project, error) {
	var p models.Project
	err := s.api.Do(ctx, http.MethodPut, projectPath(id), projectRequest{Title: title, Description: description}, &p)
	return p, err
}

// Delete removes a project; the server drops its tasks with it
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	return s.api.Do(ctx, http.MethodDelete, projectPath(id), nil, nil)
}

func (s *ProjectService) Progress(ctx context.Context, id int64) (models.Progress, error) {
	var p models.Progress
	err := s.api.Do(ctx, http.MethodGet, projectProgressPath(id), nil, &p)
	return p, err
}
