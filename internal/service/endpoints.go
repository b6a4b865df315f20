package service

import (
	"context"
	"fmt"
)

// Caller is the transport the services run on. *apiclient.Client satisfies it.
type Caller interface {
	Do(ctx context.Context, method, path string, in, out any) error
}

const (
	registerPath = "/auth/register"
	loginPath    = "/auth/login"
	projectsPath = "/api/projects"
)

func projectPath(id int64) string {
	return fmt.Sprintf("%s/%d", projectsPath, id)
}

func projectProgressPath(id int64) string {
	return projectPath(id) + "/progress"
}

func tasksPath(projectID int64) string {
	return projectPath(projectID) + "/tasks"
}

func taskPath(projectID, taskID int64) string {
	return fmt.Sprintf("%s/%d", tasksPath(projectID), taskID)
}

func completeTaskPath(projectID, taskID int64) string {
	return taskPath(projectID, taskID) + "/complete"
}
